package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"group-access-api/internal/config"
	"group-access-api/internal/database"
	"group-access-api/internal/models"
	"group-access-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewInviteToken mints an opaque 32 character token used to correlate a
// Telegram join event back to its subscription.
func NewInviteToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// SubscriptionService owns the subscription lifecycle: creation with invite
// issuance, confirmation on join, cancellation and expiry.
type SubscriptionService struct {
	db       *gorm.DB
	products *ProductService
	gateway  GroupGateway
	mailer   *InviteMailer
	notifier *WebhookNotifier
}

// NewSubscriptionService creates a new subscription service. The mailer may
// be nil when invite emails are not configured.
func NewSubscriptionService(gateway GroupGateway, mailer *InviteMailer) *SubscriptionService {
	return &SubscriptionService{
		db:       database.GetDB(),
		products: NewProductService(),
		gateway:  gateway,
		mailer:   mailer,
		notifier: NewWebhookNotifier(),
	}
}

// notify pushes a lifecycle event to the operator webhook, reloading the
// row so the payload carries the user, product and group
func (s *SubscriptionService) notify(event string, subscriptionID uint) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	go func() {
		subscription, err := database.GetSubscriptionByID(subscriptionID)
		if err != nil {
			logging.Warnf("Skipping %s webhook for subscription %d: %v", event, subscriptionID, err)
			return
		}
		s.notifier.Notify(event, subscription)
	}()
}

// Create creates a subscription for the given email and product, issuing a
// single-use invite link through the gateway. The whole operation is
// all-or-nothing: a gateway failure rolls back every local write.
//
// At most one pending_join or active subscription may exist per user and
// product. The user row is locked for the duration of the transaction to
// serialize concurrent creates for the same pair, and a partial unique
// index over the open statuses enforces the same rule at the database in
// case two transactions still race past the check.
func (s *SubscriptionService) Create(email, productID string, expiresAt *time.Time) (*models.Subscription, error) {
	product, err := s.products.GetProductByExternalID(productID)
	if err != nil {
		return nil, err
	}
	return s.create(email, product, expiresAt)
}

// CreateByProductName is the variant used by callers that only know the
// product's display name.
func (s *SubscriptionService) CreateByProductName(email, productName string, expiresAt *time.Time) (*models.Subscription, error) {
	product, err := s.products.GetProductByName(productName)
	if err != nil {
		return nil, err
	}
	return s.create(email, product, expiresAt)
}

func (s *SubscriptionService) create(email string, product *models.Product, expiresAt *time.Time) (*models.Subscription, error) {
	var created models.Subscription

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Get or create the user, locking the row to serialize
		// concurrent creates for the same user.
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{Email: email}
			if err := tx.Create(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("user %s was created concurrently: %w", email, ErrConflict)
				}
				return fmt.Errorf("failed to create user: %w", err)
			}
		} else if err != nil {
			return err
		}

		var open int64
		err = tx.Model(&models.Subscription{}).
			Where("user_id = ? AND product_id = ? AND status IN ?",
				user.ID, product.ID,
				[]string{models.StatusPendingJoin, models.StatusActive}).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("user already has an open subscription for this product: %w", ErrConflict)
		}

		var group models.Group
		err = tx.Where("product_id = ? AND is_active = ?", product.ID, true).
			Order("id").First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoGroupMapping
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		subscriptionExpiresAt := now.AddDate(0, 0, config.AppConfig.SubscriptionDays)
		if expiresAt != nil {
			subscriptionExpiresAt = expiresAt.UTC()
		}
		inviteExpiresAt := now.Add(time.Duration(config.AppConfig.InviteExpireHours) * time.Hour)
		token := NewInviteToken()

		// The gateway call happens before the row is written so a
		// platform failure leaves no subscription behind; the
		// subscription insert failing afterwards rolls the row back
		// and at worst strands an unused invite link on the platform.
		inviteURL, err := s.gateway.CreateInvite(context.Background(), group.ExternalID, token, inviteExpiresAt)
		if err != nil {
			return fmt.Errorf("%w: failed to create invite link: %v", ErrGateway, err)
		}

		subscription := models.Subscription{
			UserID:          user.ID,
			ProductID:       product.ID,
			GroupID:         group.ID,
			InviteToken:     &token,
			InviteURL:       inviteURL,
			InviteExpiresAt: &inviteExpiresAt,
			StartsAt:        now,
			ExpiresAt:       subscriptionExpiresAt,
			Status:          models.StatusPendingJoin,
		}
		if err := tx.Create(&subscription).Error; err != nil {
			// The partial unique index rejects a second open row for
			// the same user and product that slipped past the check.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user already has an open subscription for this product: %w", ErrConflict)
			}
			return fmt.Errorf("failed to persist subscription: %w", err)
		}

		subscription.User = user
		subscription.Product = *product
		subscription.Group = group
		created = subscription
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.mailer != nil && s.mailer.Enabled() {
		sub := created
		go s.mailer.SendInviteEmail(sub.User.Email, sub.Product.Name, sub.InviteURL, *sub.InviteExpiresAt, sub.ExpiresAt)
	}

	s.notify("subscription.created", created.ID)

	logging.Infof("Subscription %d created for %s, product %s, invite token %s",
		created.ID, email, product.ProductID, *created.InviteToken)
	return &created, nil
}

// ConfirmJoin binds the Telegram identity carried by a join event to the
// subscription the invite token was minted for and activates it.
//
// The platform may deliver the same join notification more than once, so a
// subscription that is no longer pending_join is returned as-is without
// touching the user binding.
func (s *SubscriptionService) ConfirmJoin(token, telegramUserID, telegramUsername string) (*models.Subscription, error) {
	var confirmed models.Subscription

	activated := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var subscription models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invite_token = ?", token).First(&subscription).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription for token %s: %w", token, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if subscription.Status != models.StatusPendingJoin {
			confirmed = subscription
			return nil
		}

		updates := map[string]interface{}{
			"telegram_user_id": telegramUserID,
		}
		if telegramUsername != "" {
			updates["telegram_username"] = telegramUsername
		}
		err = tx.Model(&models.User{}).
			Where("id = ?", subscription.UserID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("failed to bind Telegram user: %w", err)
		}

		err = tx.Model(&models.Subscription{}).
			Where("id = ?", subscription.ID).
			Update("status", models.StatusActive).Error
		if err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}

		subscription.Status = models.StatusActive
		confirmed = subscription
		activated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if activated {
		s.notify("subscription.activated", confirmed.ID)
	}

	logging.Infof("Subscription %d confirmed for Telegram user %s (%s)",
		confirmed.ID, telegramUserID, telegramUsername)
	return &confirmed, nil
}

// GetByInviteToken looks a subscription up by its invite token
func (s *SubscriptionService) GetByInviteToken(token string) (*models.Subscription, error) {
	subscription, err := database.GetSubscriptionByInviteToken(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription for token %s: %w", token, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return subscription, nil
}

// Cancel transitions an open subscription to cancelled. Removing the member
// from the Telegram group is best effort: a gateway failure is logged but
// never blocks the cancellation.
func (s *SubscriptionService) Cancel(subscriptionID uint) (*models.Subscription, error) {
	subscription, err := database.GetSubscriptionByID(subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription %d: %w", subscriptionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.cancel(subscription)
}

// CancelByEmailAndProduct cancels the open subscription for an email and
// external product id.
func (s *SubscriptionService) CancelByEmailAndProduct(email, productID string) (*models.Subscription, error) {
	subscription, err := s.FindOpenByEmailAndProduct(email, productID)
	if err != nil {
		return nil, err
	}
	return s.cancel(subscription)
}

// FindOpenByEmailAndProduct returns the open subscription for an email and
// external product id, with its relations preloaded
func (s *SubscriptionService) FindOpenByEmailAndProduct(email, productID string) (*models.Subscription, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProductByExternalID(productID)
	if err != nil {
		return nil, err
	}

	subscription, err := database.GetOpenSubscription(user.ID, product.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no open subscription for %s and product %s: %w", email, productID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *SubscriptionService) cancel(subscription *models.Subscription) (*models.Subscription, error) {
	if !subscription.IsOpen() {
		return nil, fmt.Errorf("subscription %d is already %s: %w",
			subscription.ID, subscription.Status, ErrConflict)
	}

	// A pending_join subscription may not have a Telegram identity yet;
	// there is nobody to remove in that case.
	if subscription.User.TelegramUserID != nil {
		err := s.gateway.RemoveMember(context.Background(),
			subscription.Group.ExternalID, *subscription.User.TelegramUserID)
		if err != nil {
			logging.Warnf("Best-effort removal of user %s from group %s failed: %v",
				*subscription.User.TelegramUserID, subscription.Group.ExternalID, err)
		}
	}

	err := s.db.Model(&models.Subscription{}).
		Where("id = ?", subscription.ID).
		Update("status", models.StatusCancelled).Error
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	subscription.Status = models.StatusCancelled
	s.notify("subscription.cancelled", subscription.ID)
	logging.Infof("Subscription %d cancelled", subscription.ID)
	return subscription, nil
}

// RemoveFromGroup kicks the subscription's user out of its group. Unlike
// the best-effort removal during cancellation, a failure here is returned
// to the caller: the expiry sweeper leaves the subscription active and
// retries on its next pass. A subscription whose user never joined has no
// member to remove and succeeds immediately.
func (s *SubscriptionService) RemoveFromGroup(subscription *models.Subscription) error {
	if subscription.User.TelegramUserID == nil {
		return nil
	}
	err := s.gateway.RemoveMember(context.Background(),
		subscription.Group.ExternalID, *subscription.User.TelegramUserID)
	if err != nil {
		return fmt.Errorf("failed to remove user %s from group %s: %w",
			*subscription.User.TelegramUserID, subscription.Group.ExternalID, err)
	}
	return nil
}

// ListExpired returns every active subscription whose validity window has
// elapsed as of the given instant. Used by the expiry sweeper.
func (s *SubscriptionService) ListExpired(asOf time.Time) ([]models.Subscription, error) {
	return database.GetExpiredSubscriptions(asOf)
}

// Expire marks a subscription expired. The sweeper calls this after the
// member has been removed from the group.
func (s *SubscriptionService) Expire(subscriptionID uint) error {
	result := s.db.Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("status", models.StatusExpired)
	if result.Error != nil {
		return fmt.Errorf("failed to expire subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription %d: %w", subscriptionID, ErrNotFound)
	}
	s.notify("subscription.expired", subscriptionID)
	return nil
}

// ExpireStalePending expires pending_join subscriptions whose validity
// window elapsed before the user ever joined. No member removal is needed;
// nobody joined. Returns the number of rows transitioned.
func (s *SubscriptionService) ExpireStalePending(asOf time.Time) (int64, error) {
	result := s.db.Model(&models.Subscription{}).
		Where("status = ? AND expires_at <= ?", models.StatusPendingJoin, asOf).
		Update("status", models.StatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire stale pending subscriptions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RegenerateInvite mints a fresh invite token and link for an open
// subscription, replacing the previous ones. customToken overrides the
// generated token when non-empty.
func (s *SubscriptionService) RegenerateInvite(subscriptionID uint, customToken string) (*models.Subscription, error) {
	subscription, err := database.GetSubscriptionByID(subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription %d: %w", subscriptionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.regenerateInvite(subscription, customToken)
}

// RegenerateInviteByProduct regenerates the invite for the open
// subscription identified by email and external product id.
func (s *SubscriptionService) RegenerateInviteByProduct(productID, email, customToken string) (*models.Subscription, error) {
	subscription, err := s.FindOpenByEmailAndProduct(email, productID)
	if err != nil {
		return nil, err
	}
	return s.regenerateInvite(subscription, customToken)
}

func (s *SubscriptionService) regenerateInvite(subscription *models.Subscription, customToken string) (*models.Subscription, error) {
	if !subscription.IsOpen() {
		return nil, fmt.Errorf("subscription %d is %s: %w",
			subscription.ID, subscription.Status, ErrConflict)
	}

	token := customToken
	if token == "" {
		token = NewInviteToken()
	}
	inviteExpiresAt := time.Now().UTC().Add(time.Duration(config.AppConfig.InviteExpireHours) * time.Hour)

	inviteURL, err := s.gateway.CreateInvite(context.Background(),
		subscription.Group.ExternalID, token, inviteExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create invite link: %v", ErrGateway, err)
	}

	err = s.db.Model(&models.Subscription{}).
		Where("id = ?", subscription.ID).
		Updates(map[string]interface{}{
			"invite_token":      token,
			"invite_url":        inviteURL,
			"invite_expires_at": inviteExpiresAt,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store regenerated invite: %w", err)
	}

	subscription.InviteToken = &token
	subscription.InviteURL = inviteURL
	subscription.InviteExpiresAt = &inviteExpiresAt
	logging.Infof("Invite regenerated for subscription %d", subscription.ID)
	return subscription, nil
}

package database

import (
	"time"

	"group-access-api/internal/models"
)

// GetSubscriptionByInviteToken looks a subscription up by its invite token
func GetSubscriptionByInviteToken(token string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Preload("User").Preload("Product").Preload("Group").
		Where("invite_token = ?", token).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetSubscriptionByID loads a subscription with its relations
func GetSubscriptionByID(id uint) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Preload("User").Preload("Product").Preload("Group").
		First(&subscription, id).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetExpiredSubscriptions returns active subscriptions whose validity
// window has elapsed as of the given instant
func GetExpiredSubscriptions(asOf time.Time) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := DB.Preload("User").Preload("Group").
		Where("status = ? AND expires_at <= ?", models.StatusActive, asOf).
		Find(&subscriptions).Error
	return subscriptions, err
}

// GetOpenSubscription returns the pending_join or active subscription for a
// user and product, if one exists, with its relations loaded
func GetOpenSubscription(userID, productID uint) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Preload("User").Preload("Product").Preload("Group").
		Where("user_id = ? AND product_id = ? AND status IN ?",
			userID, productID, []string{models.StatusPendingJoin, models.StatusActive}).
		First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

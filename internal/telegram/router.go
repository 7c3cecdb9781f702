package telegram

import (
	"context"
	"errors"

	"group-access-api/internal/models"
	"group-access-api/internal/services"
	"group-access-api/pkg/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// joinApprover is the slice of the gateway the router needs to answer
// join requests
type joinApprover interface {
	ApproveJoinRequest(ctx context.Context, chatID string, userID int64) error
	DeclineJoinRequest(ctx context.Context, chatID string, userID int64) error
}

// Router turns decoded platform events into lifecycle and registry
// mutations. Every handler catches its own failures and logs them; one
// bad update never stops the stream.
type Router struct {
	subscriptions *services.SubscriptionService
	groups        *services.GroupService
	approver      joinApprover
}

// NewRouter creates an event router
func NewRouter(subscriptions *services.SubscriptionService, groups *services.GroupService, approver joinApprover) *Router {
	return &Router{
		subscriptions: subscriptions,
		groups:        groups,
		approver:      approver,
	}
}

// Run consumes raw updates until the channel's producer stops; used in
// polling mode. Webhook mode calls HandleUpdate directly instead.
func (r *Router) Run(updates <-chan tgbotapi.Update) {
	for update := range updates {
		r.HandleUpdate(update)
	}
}

// HandleUpdate decodes and dispatches one raw update
func (r *Router) HandleUpdate(update tgbotapi.Update) {
	r.HandleEvent(DecodeUpdate(update))
}

// HandleEvent dispatches one decoded event
func (r *Router) HandleEvent(event Event) {
	switch event.Kind {
	case EventJoinRequest:
		r.handleJoinRequest(event)
	case EventMemberJoined:
		r.handleMemberJoined(event)
	case EventBotMembership:
		r.handleBotMembership(event)
	}
}

// handleJoinRequest resolves the invite token, activates the matching
// subscription, and answers the request: approve while the subscription
// is open, decline once it is expired or cancelled.
func (r *Router) handleJoinRequest(event Event) {
	ctx := context.Background()

	if event.InviteToken == "" {
		logging.Infof("Declining join request from user %s in chat %s: no invite token", event.User.UserID, event.ChatID)
		r.decline(ctx, event)
		return
	}

	subscription, err := r.subscriptions.ConfirmJoin(event.InviteToken, event.User.UserID, event.User.Username)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logging.Infof("Declining join request from user %s in chat %s: unknown invite token", event.User.UserID, event.ChatID)
			r.decline(ctx, event)
			return
		}
		logging.Errorf("Failed to confirm join for token in chat %s: %v", event.ChatID, err)
		return
	}

	switch subscription.Status {
	case models.StatusActive, models.StatusPendingJoin:
		if err := r.approver.ApproveJoinRequest(ctx, event.ChatID, mustUserID(event.User.UserID)); err != nil {
			logging.Errorf("Failed to approve join request for subscription %d: %v", subscription.ID, err)
			return
		}
		logging.Infof("Approved join request for subscription %d (user %s)", subscription.ID, event.User.UserID)
	default:
		logging.Infof("Declining join request for subscription %d: status is %s", subscription.ID, subscription.Status)
		r.decline(ctx, event)
	}
}

func (r *Router) decline(ctx context.Context, event Event) {
	if err := r.approver.DeclineJoinRequest(ctx, event.ChatID, mustUserID(event.User.UserID)); err != nil {
		logging.Errorf("Failed to decline join request from user %s in chat %s: %v", event.User.UserID, event.ChatID, err)
	}
}

// handleMemberJoined confirms subscriptions for users who entered the
// chat through a tokened invite link. Joins with no token attached are
// logged and skipped; nothing ties them to a subscription.
func (r *Router) handleMemberJoined(event Event) {
	members := event.Members
	if len(members) == 0 {
		members = []Member{event.User}
	}

	for _, member := range members {
		if member.IsBot {
			continue
		}
		if event.InviteToken == "" {
			logging.Infof("User %s joined chat %s without a tracked invite link", member.UserID, event.ChatID)
			continue
		}
		subscription, err := r.subscriptions.ConfirmJoin(event.InviteToken, member.UserID, member.Username)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				logging.Warnf("User %s joined chat %s with an unknown invite token", member.UserID, event.ChatID)
				continue
			}
			logging.Errorf("Failed to confirm join for user %s in chat %s: %v", member.UserID, event.ChatID, err)
			continue
		}
		logging.Infof("Subscription %d confirmed: user %s joined chat %s", subscription.ID, member.UserID, event.ChatID)
	}
}

// handleBotMembership keeps the group registry in step with where the
// bot actually is
func (r *Router) handleBotMembership(event Event) {
	if event.BotJoined {
		group, err := r.groups.RegisterOrRefresh(event.ChatID, event.ChatTitle)
		if err != nil {
			logging.Errorf("Failed to register group %s: %v", event.ChatID, err)
			return
		}
		logging.Infof("Bot added to group %s (%s)", group.ExternalID, group.Name)
		return
	}

	if err := r.groups.Deactivate(event.ChatID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return
		}
		logging.Errorf("Failed to deactivate group %s: %v", event.ChatID, err)
		return
	}
	logging.Infof("Bot removed from group %s; group deactivated", event.ChatID)
}

// mustUserID converts an event user id back to the platform's numeric
// form. Decoded events always carry ids produced by FormatInt, so a
// parse failure means a programming error; 0 is returned and the
// platform call fails loudly.
func mustUserID(userID string) int64 {
	id, err := parseUserID(userID)
	if err != nil {
		logging.Errorf("Malformed event user id %q", userID)
		return 0
	}
	return id
}

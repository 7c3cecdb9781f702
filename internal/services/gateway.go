package services

import (
	"context"
	"time"
)

// GroupGateway is the boundary to the external messaging platform. The
// Telegram implementation lives in internal/telegram; services only depend
// on this interface so the lifecycle engine can be tested with fakes.
//
// Implementations do not retry: every failure is returned to the caller,
// which decides whether to roll back (synchronous paths) or log and retry
// on the next cycle (background paths).
type GroupGateway interface {
	// CreateInvite creates a join-request invite link for the chat whose
	// platform-visible name is the given token. The token is the only
	// piece of metadata that reliably survives the join flow, so it is
	// what correlates a join event back to a subscription.
	CreateInvite(ctx context.Context, chatID, token string, expiresAt time.Time) (string, error)

	// RemoveMember kicks a user from a chat without a permanent ban
	// (ban for the platform's minimum window, then unban).
	RemoveMember(ctx context.Context, chatID, userID string) error
}

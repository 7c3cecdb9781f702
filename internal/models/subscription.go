package models

import (
	"time"
)

// Subscription statuses. A subscription starts as pending_join when the
// invite link is issued, becomes active once the user joins the group, and
// ends up expired or cancelled. Expired and cancelled are terminal.
const (
	StatusPendingJoin = "pending_join"
	StatusActive      = "active"
	StatusExpired     = "expired"
	StatusCancelled   = "cancelled"
)

// Subscription ties a user to a product and the Telegram group that grants
// access to it. Rows are kept after expiry or cancellation as an audit
// trail; only cascading product or user deletion removes them.
type Subscription struct {
	BaseModel

	UserID    uint `json:"user_id" gorm:"not null;index"`
	ProductID uint `json:"product_id" gorm:"not null;index"`
	GroupID   uint `json:"group_id" gorm:"not null;index"`

	// Invite fields. InviteToken doubles as the invite link's
	// platform-visible name so join events can be correlated back to
	// this row.
	InviteToken     *string    `json:"invite_token" gorm:"uniqueIndex;size:64"`
	InviteURL       string     `json:"invite_url" gorm:"size:512"`
	InviteExpiresAt *time.Time `json:"invite_expires_at"`

	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	Status    string    `json:"status" gorm:"not null;size:20;index;default:'pending_join'"`

	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Group   Group   `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

// IsOpen reports whether the subscription still occupies the "one open
// subscription per user and product" slot.
func (s *Subscription) IsOpen() bool {
	return s.Status == StatusPendingJoin || s.Status == StatusActive
}

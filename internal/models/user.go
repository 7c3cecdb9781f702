package models

// User is created lazily on the first subscribe request for an email.
// Telegram identity is only known after the user joins a group through
// their invite link, so both Telegram fields stay null until then.
type User struct {
	BaseModel
	Email            string  `json:"email" gorm:"uniqueIndex;not null;size:255"`
	TelegramUserID   *string `json:"telegram_user_id" gorm:"uniqueIndex;size:100"`
	TelegramUsername *string `json:"telegram_username" gorm:"size:100"`

	Subscriptions []Subscription `json:"-" gorm:"foreignKey:UserID"`
}

package models

// Group represents a Telegram group the bot administers. ExternalID is the
// Telegram chat id kept as a string to survive the int64 chat ids Telegram
// uses for supergroups. Groups are registered when the bot is added to a
// chat and only ever deactivated, never deleted, so that historical
// subscriptions keep their group reference.
type Group struct {
	BaseModel
	ExternalID string `json:"external_id" gorm:"uniqueIndex;not null;size:100"`
	Name       string `json:"name" gorm:"size:255;not null"`
	ProductID  *uint  `json:"product_id" gorm:"index"`
	IsActive   bool   `json:"is_active" gorm:"default:true"`

	Product       *Product       `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Subscriptions []Subscription `json:"-" gorm:"foreignKey:GroupID"`
}

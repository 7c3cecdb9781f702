package models

// Product represents a purchasable product that grants access to one or
// more Telegram groups. ProductID is assigned by the upstream system that
// sells the product, not by this service.
type Product struct {
	BaseModel
	ProductID   string `json:"product_id" gorm:"uniqueIndex;not null"`
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`

	Groups        []Group        `json:"groups,omitempty" gorm:"foreignKey:ProductID"`
	Subscriptions []Subscription `json:"-" gorm:"foreignKey:ProductID"`
}

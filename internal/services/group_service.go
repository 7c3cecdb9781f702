package services

import (
	"errors"
	"fmt"

	"group-access-api/internal/database"
	"group-access-api/internal/models"

	"gorm.io/gorm"
)

// GroupService tracks known Telegram groups and their mapping to products
type GroupService struct {
	db *gorm.DB
}

// NewGroupService creates a new group service
func NewGroupService() *GroupService {
	return &GroupService{
		db: database.GetDB(),
	}
}

// GetAllGroups gets all known groups
func (s *GroupService) GetAllGroups() ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.Preload("Product").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GetUnmappedGroups gets groups not mapped to any product
func (s *GroupService) GetUnmappedGroups() ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.Where("product_id IS NULL").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroupByExternalID gets a group by its Telegram chat id
func (s *GroupService) GetGroupByExternalID(externalID string) (*models.Group, error) {
	var group models.Group
	err := s.db.Where("external_id = ?", externalID).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %s: %w", externalID, ErrNotFound)
		}
		return nil, err
	}
	return &group, nil
}

// ResolveGroupForProduct returns the first active group mapped to a
// product. Subscription creation requires one.
func (s *GroupService) ResolveGroupForProduct(productID uint) (*models.Group, error) {
	var group models.Group
	err := s.db.Where("product_id = ? AND is_active = ?", productID, true).
		Order("id").First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoGroupMapping
		}
		return nil, err
	}
	return &group, nil
}

// RegisterOrRefresh upserts a group on first sight and re-activates a
// previously inactive one. Called when the bot is added to a chat.
func (s *GroupService) RegisterOrRefresh(externalID, name string) (*models.Group, error) {
	var group models.Group
	err := s.db.Where("external_id = ?", externalID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		group = models.Group{
			ExternalID: externalID,
			Name:       name,
			IsActive:   true,
		}
		if err := s.db.Create(&group).Error; err != nil {
			return nil, fmt.Errorf("failed to register group: %w", err)
		}
		return &group, nil
	}
	if err != nil {
		return nil, err
	}

	group.Name = name
	group.IsActive = true
	if err := s.db.Save(&group).Error; err != nil {
		return nil, fmt.Errorf("failed to refresh group: %w", err)
	}
	return &group, nil
}

// Deactivate soft-flags a group when the bot is removed from the chat.
// Existing subscriptions are left untouched.
func (s *GroupService) Deactivate(externalID string) error {
	result := s.db.Model(&models.Group{}).
		Where("external_id = ?", externalID).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("group %s: %w", externalID, ErrNotFound)
	}
	return nil
}

// MapProductToGroup maps a product to a Telegram group, creating the group
// row if the bot has not seen the chat yet. A group belongs to at most one
// product; a product may own several groups.
func (s *GroupService) MapProductToGroup(productID, externalGroupID, name string) (*models.Group, error) {
	var mapped *models.Group
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Where("product_id = ?", productID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		var group models.Group
		err = tx.Where("external_id = ?", externalGroupID).First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			group = models.Group{
				ExternalID: externalGroupID,
				Name:       name,
				ProductID:  &product.ID,
				IsActive:   true,
			}
			if err := tx.Create(&group).Error; err != nil {
				return fmt.Errorf("failed to create group: %w", err)
			}
			mapped = &group
			return nil
		}
		if err != nil {
			return err
		}

		if group.ProductID != nil && *group.ProductID != product.ID {
			return fmt.Errorf("group is already mapped to another product: %w", ErrConflict)
		}

		group.ProductID = &product.ID
		if name != "" {
			group.Name = name
		}
		if err := tx.Save(&group).Error; err != nil {
			return fmt.Errorf("failed to map group: %w", err)
		}
		mapped = &group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapped, nil
}

// UnmapProduct removes the group mapping for a product. Group rows survive
// unmapped so they can be re-mapped later.
func (s *GroupService) UnmapProduct(productID string) error {
	var product models.Product
	err := s.db.Where("product_id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	result := s.db.Model(&models.Group{}).
		Where("product_id = ?", product.ID).
		Update("product_id", nil)
	if result.Error != nil {
		return fmt.Errorf("failed to unmap product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no mapping for product %s: %w", productID, ErrNotFound)
	}
	return nil
}

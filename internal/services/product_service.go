package services

import (
	"errors"
	"fmt"

	"group-access-api/internal/database"
	"group-access-api/internal/models"

	"gorm.io/gorm"
)

// ProductService provides product management operations
type ProductService struct {
	db *gorm.DB
}

// NewProductService creates a new product service
func NewProductService() *ProductService {
	return &ProductService{
		db: database.GetDB(),
	}
}

// GetAllProducts gets all products
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Preload("Groups").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductByExternalID gets a product by its externally assigned id
func (s *ProductService) GetProductByExternalID(productID string) (*models.Product, error) {
	var product models.Product
	err := s.db.Preload("Groups").Where("product_id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByName gets a product by display name
func (s *ProductService) GetProductByName(name string) (*models.Product, error) {
	var product models.Product
	err := s.db.Where("name = ?", name).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(product *models.Product) error {
	var existing models.Product
	err := s.db.Where("product_id = ?", product.ProductID).First(&existing).Error
	if err == nil {
		return fmt.Errorf("product %s already exists: %w", product.ProductID, ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct updates name and description of an existing product
func (s *ProductService) UpdateProduct(productID string, updates map[string]interface{}) (*models.Product, error) {
	result := s.db.Model(&models.Product{}).Where("product_id = ?", productID).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return s.GetProductByExternalID(productID)
}

// DeleteProduct soft-deletes a product and cascades to owned entities:
// its subscriptions are deleted and its group mappings cleared. Group rows
// survive unmapped.
func (s *ProductService) DeleteProduct(productID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Where("product_id = ?", productID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Where("product_id = ?", product.ID).
			Delete(&models.Subscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions: %w", err)
		}

		if err := tx.Model(&models.Group{}).
			Where("product_id = ?", product.ID).
			Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unmap groups: %w", err)
		}

		if err := tx.Delete(&product).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

package services

import (
	"group-access-api/internal/database"
	"group-access-api/internal/models"

	"gorm.io/gorm"
)

// UserService exposes subscriber listings for the admin API
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService() *UserService {
	return &UserService{
		db: database.GetDB(),
	}
}

// GetAllUsers lists every known subscriber with their subscriptions
func (s *UserService) GetAllUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.Preload("Subscriptions").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

package services

import (
	"fmt"
	"strings"

	"group-access-api/internal/models"
)

// SubscriptionListQuery carries the paging, sorting and filter options for
// admin subscription listings.
type SubscriptionListQuery struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
	Search    string // matches against the subscriber email
	Status    string
	ProductID string // external product id
	UserID    uint
}

// SubscriptionPage is one page of subscription results
type SubscriptionPage struct {
	Items   []models.Subscription `json:"items"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
	Pages   int                   `json:"pages"`
}

var sortableColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"starts_at":  true,
	"expires_at": true,
	"status":     true,
}

// List returns a page of subscriptions with relations preloaded
func (s *SubscriptionService) List(q SubscriptionListQuery) (*SubscriptionPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 10
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}

	sortBy := q.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToLower(q.SortOrder)
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	query := s.db.Model(&models.Subscription{})

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.ProductID != "" {
		productIDs := s.db.Model(&models.Product{}).Select("id").
			Where("product_id = ?", q.ProductID)
		query = query.Where("product_id IN (?)", productIDs)
	}
	if q.UserID != 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.Search != "" {
		userIDs := s.db.Model(&models.User{}).Select("id").
			Where("email LIKE ?", "%"+q.Search+"%")
		query = query.Where("user_id IN (?)", userIDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var items []models.Subscription
	err := query.Preload("User").Preload("Product").Preload("Group").
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	pages := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	return &SubscriptionPage{
		Items:   items,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
		Pages:   pages,
	}, nil
}

// MemberFilter narrows joined-member listings
type MemberFilter struct {
	ProductID       string // external product id
	ExternalGroupID string
	Statuses        []string
}

// ListJoinedMembers lists subscriptions whose user joined through an invite
// link, i.e. has a Telegram identity recorded, with relations preloaded.
func (s *SubscriptionService) ListJoinedMembers(filter MemberFilter) ([]models.Subscription, error) {
	joinedUsers := s.db.Model(&models.User{}).Select("id").
		Where("telegram_user_id IS NOT NULL")
	query := s.db.Model(&models.Subscription{}).
		Where("user_id IN (?)", joinedUsers)

	if filter.ProductID != "" {
		productIDs := s.db.Model(&models.Product{}).Select("id").
			Where("product_id = ?", filter.ProductID)
		query = query.Where("product_id IN (?)", productIDs)
	}
	if filter.ExternalGroupID != "" {
		groupIDs := s.db.Model(&models.Group{}).Select("id").
			Where("external_id = ?", filter.ExternalGroupID)
		query = query.Where("group_id IN (?)", groupIDs)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var items []models.Subscription
	err := query.Preload("User").Preload("Product").Preload("Group").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return items, nil
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"group-access-api/internal/services"

	"github.com/gin-gonic/gin"
)

// SubscribeRequest represents a subscription purchase notification. One of
// product_id and product_name selects the product; product_id wins when
// both are present.
type SubscribeRequest struct {
	Email       string     `json:"email" binding:"required,email"`
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Subscribe provisions a subscription and returns the invite link
func Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}
	if req.ProductID == "" && req.ProductName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "product_id or product_name is required",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var (
		subscription interface{}
		err          error
	)
	if req.ProductID != "" {
		subscription, err = subscriptionService.Create(email, req.ProductID, req.ExpiresAt)
	} else {
		subscription, err = subscriptionService.CreateByProductName(email, req.ProductName, req.ExpiresAt)
	}
	if err != nil {
		status, message := subscribeErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Subscription created successfully",
		"data":    subscription,
	})
}

func subscribeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "An open subscription already exists for this email and product"
	case errors.Is(err, services.ErrNoGroupMapping):
		return http.StatusBadRequest, "Product has no active group mapping"
	case errors.Is(err, services.ErrGateway):
		return http.StatusBadGateway, "Failed to generate invite link"
	default:
		return http.StatusInternalServerError, "Failed to create subscription"
	}
}

// ListSubscriptions returns a filtered, paginated subscription listing
func ListSubscriptions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	userID, _ := strconv.Atoi(c.Query("user_id"))

	result, err := subscriptionService.List(services.SubscriptionListQuery{
		Page:      page,
		PerPage:   perPage,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		ProductID: c.Query("product_id"),
		UserID:    uint(userID),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list subscriptions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ListExpiredSubscriptions returns active subscriptions whose validity
// window has already elapsed; the sweeper will pick these up on its next
// pass.
func ListExpiredSubscriptions(c *gin.Context) {
	subscriptions, err := subscriptionService.ListExpired(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list expired subscriptions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    subscriptions,
	})
}

// CancelSubscription cancels a subscription by its id
func CancelSubscription(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid subscription id",
		})
		return
	}

	subscription, err := subscriptionService.Cancel(uint(id))
	if err != nil {
		status, message := cancelErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription cancelled successfully",
		"data":    subscription,
	})
}

// CancelByEmailRequest identifies the open subscription to cancel
type CancelByEmailRequest struct {
	Email     string `json:"email" binding:"required,email"`
	ProductID string `json:"product_id" binding:"required"`
}

// CancelSubscriptionByEmail cancels the open subscription for an email and
// product pair
func CancelSubscriptionByEmail(c *gin.Context) {
	var req CancelByEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	subscription, err := subscriptionService.CancelByEmailAndProduct(email, req.ProductID)
	if err != nil {
		status, message := cancelErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription cancelled successfully",
		"data":    subscription,
	})
}

func cancelErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Subscription not found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "Subscription is not open"
	default:
		return http.StatusInternalServerError, "Failed to cancel subscription"
	}
}

// RegenerateInviteRequest selects the subscription to refresh. Either a
// subscription_id, or an email and product_id pair. custom_token replaces
// the generated token when set; useful for migrating links minted outside
// this service.
type RegenerateInviteRequest struct {
	SubscriptionID uint   `json:"subscription_id"`
	Email          string `json:"email"`
	ProductID      string `json:"product_id"`
	CustomToken    string `json:"custom_token"`
}

// RegenerateInvite mints a fresh invite token and link for an open
// subscription
func RegenerateInvite(c *gin.Context) {
	var req RegenerateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	var err error
	var subscription interface{}
	switch {
	case req.SubscriptionID != 0:
		subscription, err = subscriptionService.RegenerateInvite(req.SubscriptionID, req.CustomToken)
	case req.Email != "" && req.ProductID != "":
		email := strings.ToLower(strings.TrimSpace(req.Email))
		subscription, err = subscriptionService.RegenerateInviteByProduct(req.ProductID, email, req.CustomToken)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "subscription_id or email and product_id are required",
		})
		return
	}
	if err != nil {
		status, message := regenerateErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Invite regenerated successfully",
		"data":    subscription,
	})
}

func regenerateErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Subscription not found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "Subscription is not open"
	case errors.Is(err, services.ErrGateway):
		return http.StatusBadGateway, "Failed to regenerate invite link"
	default:
		return http.StatusInternalServerError, "Failed to regenerate invite"
	}
}

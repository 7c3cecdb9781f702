package api

import (
	"errors"
	"net/http"
	"strings"

	"group-access-api/internal/config"
	"group-access-api/internal/services"
	"group-access-api/pkg/logging"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramWebhook receives platform updates. The bot token in the path is
// the shared secret; Telegram is the only caller that knows it. Always
// acknowledges with 200 once authenticated so the platform does not
// redeliver updates we failed on.
func TelegramWebhook(c *gin.Context) {
	if c.Param("token") != config.AppConfig.TelegramBotToken {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid webhook token",
		})
		return
	}

	// In polling mode the poller already consumes updates; a stray
	// webhook delivery is acknowledged and dropped.
	if !config.AppConfig.TelegramUseWebhook {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logging.Warnf("Discarding malformed webhook update: %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	eventRouter.HandleUpdate(update)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// KickUserRequest identifies the member to remove. The chat is resolved
// from product_id's group mapping, or taken directly from group_id.
type KickUserRequest struct {
	TelegramUserID string `json:"telegram_user_id" binding:"required"`
	ProductID      string `json:"product_id"`
	GroupID        string `json:"group_id"`
}

// KickUser removes a member from a group without touching their
// subscription
func KickUser(c *gin.Context) {
	var req KickUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	groupID := req.GroupID
	if req.ProductID != "" {
		product, err := productService.GetProductByExternalID(req.ProductID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		group, err := groupService.ResolveGroupForProduct(product.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product is not mapped to a group",
			})
			return
		}
		groupID = group.ExternalID
	}
	if groupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "product_id or group_id is required",
		})
		return
	}

	if err := botGateway.RemoveMember(c.Request.Context(), groupID, req.TelegramUserID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Failed to remove user from group",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User removed from group",
	})
}

// KickByEmailRequest identifies the member to remove by subscriber email
type KickByEmailRequest struct {
	Email     string `json:"email" binding:"required,email"`
	ProductID string `json:"product_id" binding:"required"`
}

// KickByEmail removes a subscriber from their product's group. The
// subscription itself is left untouched; use the cancel endpoints to close
// it.
func KickByEmail(c *gin.Context) {
	var req KickByEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	subscription, err := subscriptionService.FindOpenByEmailAndProduct(email, req.ProductID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "No open subscription for this email and product",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to look up subscription",
		})
		return
	}

	if subscription.User.TelegramUserID == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "User has no linked Telegram account",
		})
		return
	}

	err = botGateway.RemoveMember(c.Request.Context(),
		subscription.Group.ExternalID, *subscription.User.TelegramUserID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Failed to remove user from group",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User removed from group",
	})
}

// GetWebhookInfo reports the platform's webhook state, useful for checking
// which ingestion mode is actually live
func GetWebhookInfo(c *gin.Context) {
	info, err := botGateway.GetWebhookInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Failed to fetch webhook info",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"url":                  info.URL,
			"pending_update_count": info.PendingUpdateCount,
			"last_error_date":      info.LastErrorDate,
			"last_error_message":   info.LastErrorMessage,
			"webhook_mode":         config.AppConfig.TelegramUseWebhook,
		},
	})
}

package api

import (
	"time"

	"group-access-api/internal/config"
	"group-access-api/internal/middleware"
	"group-access-api/internal/services"
	"group-access-api/internal/telegram"

	"github.com/gin-gonic/gin"
)

// Handler dependencies shared across the route groups. Set once by
// SetupRoutes before the server starts accepting requests.
var (
	subscriptionService *services.SubscriptionService
	groupService        *services.GroupService
	productService      *services.ProductService
	botGateway          *telegram.Gateway
	eventRouter         *telegram.Router
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, gateway *telegram.Gateway, router *telegram.Router, subscriptions *services.SubscriptionService) {
	subscriptionService = subscriptions
	groupService = services.NewGroupService()
	productService = services.NewProductService()
	botGateway = gateway
	eventRouter = router

	// API route group
	api := r.Group("/api")
	{
		// Public subscription intake, rate limited per subscriber email
		api.POST("/subscribe",
			middleware.RateLimitMiddleware("subscribe", 5,
				time.Duration(config.AppConfig.RateLimitMinutes)*time.Minute,
				middleware.EmailKey),
			Subscribe)

		// Public product catalog
		api.GET("/products", GetProducts)
		api.GET("/products/:id", GetProduct)

		// Management routes (require the admin API key)
		admin := api.Group("")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/subscriptions", ListSubscriptions)
			admin.GET("/subscriptions/expired", ListExpiredSubscriptions)
			admin.POST("/subscriptions/:id/cancel", CancelSubscription)
			admin.DELETE("/subscriptions", CancelSubscriptionByEmail)
			admin.POST("/subscriptions/regenerate-invite", RegenerateInvite)

			admin.POST("/products", CreateProduct)
			admin.PUT("/products/:id", UpdateProduct)
			admin.DELETE("/products/:id", DeleteProduct)
			admin.POST("/products/:id/map", MapProductGroup)
			admin.DELETE("/products/:id/unmap", UnmapProductGroup)
			admin.GET("/products/:id/members", GetProductMembers)

			admin.GET("/groups", GetGroups)
			admin.GET("/groups/unmapped", GetUnmappedGroups)
			admin.GET("/groups/:external_id/members", GetGroupMembers)

			admin.GET("/users", GetUsers)
			admin.GET("/users/joined", GetJoinedMembers)

			admin.POST("/telegram/kick-user", KickUser)
			admin.POST("/telegram/kick-by-email", KickByEmail)
			admin.GET("/telegram/webhook/info", GetWebhookInfo)
		}

		// Platform update intake (Telegram calls this; the bot token in
		// the path is the shared secret)
		api.POST("/telegram/webhook/:token", TelegramWebhook)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.ServiceName,
		})
	})
}

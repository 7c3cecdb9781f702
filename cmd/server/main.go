package main

import (
	"log"
	"time"

	"group-access-api/internal/api"
	"group-access-api/internal/config"
	"group-access-api/internal/database"
	"group-access-api/internal/services"
	"group-access-api/internal/tasks"
	"group-access-api/internal/telegram"
	"group-access-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Start the bot gateway; it owns the Telegram session
	gateway, err := telegram.NewGateway(
		config.AppConfig.TelegramBotToken,
		!config.AppConfig.TelegramUseWebhook,
		time.Duration(config.AppConfig.GatewayTimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatal("Failed to start Telegram gateway:", err)
	}
	gateway.Start()
	defer gateway.Close()

	subscriptionService := services.NewSubscriptionService(gateway, services.NewInviteMailer())
	router := telegram.NewRouter(subscriptionService, services.NewGroupService(), gateway)

	// In polling mode the gateway's update stream feeds the router; in
	// webhook mode updates arrive through the webhook endpoint instead.
	if !config.AppConfig.TelegramUseWebhook {
		go router.Run(gateway.Updates())
		logging.Infof("Telegram ingestion mode: polling")
	} else {
		logging.Infof("Telegram ingestion mode: webhook")
	}

	// Start the expiry sweeper
	sweeper := tasks.NewSweeper(subscriptionService,
		time.Duration(config.AppConfig.SweepIntervalMinutes)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, gateway, router, subscriptionService)

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"group-access-api/internal/config"
	"group-access-api/internal/database"
	"group-access-api/internal/models"
	"group-access-api/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// stubGateway answers every platform call successfully and records the
// join request decisions
type stubGateway struct {
	mu        sync.Mutex
	approvals []int64
	declines  []int64
}

func (s *stubGateway) CreateInvite(ctx context.Context, chatID, token string, expiresAt time.Time) (string, error) {
	return "https://t.me/+" + token, nil
}

func (s *stubGateway) RemoveMember(ctx context.Context, chatID, userID string) error {
	return nil
}

func (s *stubGateway) ApproveJoinRequest(ctx context.Context, chatID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals = append(s.approvals, userID)
	return nil
}

func (s *stubGateway) DeclineJoinRequest(ctx context.Context, chatID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declines = append(s.declines, userID)
	return nil
}

func setupRouterTest(t *testing.T) (*Router, *stubGateway, *services.SubscriptionService) {
	t.Helper()

	config.AppConfig = &config.Config{
		SubscriptionDays:  30,
		InviteExpireHours: 24,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	gateway := &stubGateway{}
	subscriptions := services.NewSubscriptionService(gateway, nil)
	router := NewRouter(subscriptions, services.NewGroupService(), gateway)
	return router, gateway, subscriptions
}

func seedSubscription(t *testing.T, subscriptions *services.SubscriptionService) *models.Subscription {
	t.Helper()

	product := &models.Product{ProductID: "prod_basic", Name: "Basic"}
	require.NoError(t, database.DB.Create(product).Error)
	group := &models.Group{ExternalID: "-1001", Name: "Premium Chat", ProductID: &product.ID, IsActive: true}
	require.NoError(t, database.DB.Create(group).Error)

	subscription, err := subscriptions.Create("alice@example.com", "prod_basic", nil)
	require.NoError(t, err)
	return subscription
}

func TestRouter_JoinRequestApproved(t *testing.T) {
	router, gateway, subscriptions := setupRouterTest(t)
	subscription := seedSubscription(t, subscriptions)

	router.HandleEvent(Event{
		Kind:        EventJoinRequest,
		ChatID:      "-1001",
		InviteToken: *subscription.InviteToken,
		User:        Member{UserID: "777", Username: "alice_tg"},
	})

	assert.Equal(t, []int64{777}, gateway.approvals)
	assert.Empty(t, gateway.declines)

	var stored models.Subscription
	require.NoError(t, database.DB.First(&stored, subscription.ID).Error)
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestRouter_JoinRequestUnknownTokenDeclined(t *testing.T) {
	router, gateway, _ := setupRouterTest(t)

	router.HandleEvent(Event{
		Kind:        EventJoinRequest,
		ChatID:      "-1001",
		InviteToken: "nosuchtoken",
		User:        Member{UserID: "777"},
	})

	assert.Empty(t, gateway.approvals)
	assert.Equal(t, []int64{777}, gateway.declines)
}

func TestRouter_JoinRequestForCancelledSubscriptionDeclined(t *testing.T) {
	router, gateway, subscriptions := setupRouterTest(t)
	subscription := seedSubscription(t, subscriptions)
	_, err := subscriptions.Cancel(subscription.ID)
	require.NoError(t, err)

	router.HandleEvent(Event{
		Kind:        EventJoinRequest,
		ChatID:      "-1001",
		InviteToken: *subscription.InviteToken,
		User:        Member{UserID: "777"},
	})

	assert.Empty(t, gateway.approvals)
	assert.Equal(t, []int64{777}, gateway.declines)

	// Declining must not resurrect or rebind the subscription
	var stored models.Subscription
	require.NoError(t, database.DB.First(&stored, subscription.ID).Error)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestRouter_JoinRequestWithoutTokenDeclined(t *testing.T) {
	router, gateway, _ := setupRouterTest(t)

	router.HandleEvent(Event{
		Kind:   EventJoinRequest,
		ChatID: "-1001",
		User:   Member{UserID: "777"},
	})

	assert.Equal(t, []int64{777}, gateway.declines)
}

func TestRouter_MemberJoinedActivates(t *testing.T) {
	router, _, subscriptions := setupRouterTest(t)
	subscription := seedSubscription(t, subscriptions)

	router.HandleEvent(Event{
		Kind:        EventMemberJoined,
		ChatID:      "-1001",
		InviteToken: *subscription.InviteToken,
		User:        Member{UserID: "777", Username: "alice_tg"},
	})

	var stored models.Subscription
	require.NoError(t, database.DB.First(&stored, subscription.ID).Error)
	assert.Equal(t, models.StatusActive, stored.Status)

	var user models.User
	require.NoError(t, database.DB.Where("email = ?", "alice@example.com").First(&user).Error)
	require.NotNil(t, user.TelegramUserID)
	assert.Equal(t, "777", *user.TelegramUserID)
}

func TestRouter_MemberJoinedWithoutTokenIgnored(t *testing.T) {
	router, _, subscriptions := setupRouterTest(t)
	subscription := seedSubscription(t, subscriptions)

	router.HandleEvent(Event{
		Kind:   EventMemberJoined,
		ChatID: "-1001",
		User:   Member{UserID: "777"},
	})

	var stored models.Subscription
	require.NoError(t, database.DB.First(&stored, subscription.ID).Error)
	assert.Equal(t, models.StatusPendingJoin, stored.Status)
}

func TestRouter_BotMembershipRegistersAndDeactivates(t *testing.T) {
	router, _, _ := setupRouterTest(t)

	router.HandleEvent(Event{
		Kind:      EventBotMembership,
		ChatID:    "-1002",
		ChatTitle: "New Chat",
		BotJoined: true,
	})

	var group models.Group
	require.NoError(t, database.DB.Where("external_id = ?", "-1002").First(&group).Error)
	assert.True(t, group.IsActive)
	assert.Equal(t, "New Chat", group.Name)

	router.HandleEvent(Event{
		Kind:      EventBotMembership,
		ChatID:    "-1002",
		BotJoined: false,
	})

	require.NoError(t, database.DB.Where("external_id = ?", "-1002").First(&group).Error)
	assert.False(t, group.IsActive)
}

func TestRouter_BotRemovedFromUnknownGroup(t *testing.T) {
	router, _, _ := setupRouterTest(t)

	// Must not panic or error loudly; there is just nothing to do
	router.HandleEvent(Event{
		Kind:      EventBotMembership,
		ChatID:    "-1099",
		BotJoined: false,
	})

	var count int64
	require.NoError(t, database.DB.Model(&models.Group{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

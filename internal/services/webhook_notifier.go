package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"group-access-api/internal/config"
	"group-access-api/internal/models"
	"group-access-api/pkg/logging"
)

// WebhookNotifier pushes subscription lifecycle events to the operator's
// backend (billing system, CRM) when a callback URL is configured
type WebhookNotifier struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
}

// NewWebhookNotifier creates a notifier from configuration
func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{
		callbackURL: config.AppConfig.LifecycleWebhookURL,
		secret:      config.AppConfig.LifecycleWebhookSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// LifecyclePayload is the body sent for each lifecycle event
type LifecyclePayload struct {
	Event          string `json:"event"` // e.g. "subscription.activated"
	SubscriptionID uint   `json:"subscription_id"`
	Email          string `json:"email"`
	ProductID      string `json:"product_id"`
	GroupID        string `json:"group_id"`
	Status         string `json:"status"`
	ExpiresAt      string `json:"expires_at"` // ISO 8601 format
	Timestamp      string `json:"timestamp"`  // ISO 8601 format
}

// Enabled reports whether a callback URL is configured
func (wn *WebhookNotifier) Enabled() bool {
	return wn.callbackURL != ""
}

// Notify sends a lifecycle event for a subscription. Called in a
// goroutine; delivery is retried and failures only logged.
func (wn *WebhookNotifier) Notify(event string, subscription *models.Subscription) {
	if !wn.Enabled() {
		return
	}

	payload := LifecyclePayload{
		Event:          event,
		SubscriptionID: subscription.ID,
		Email:          subscription.User.Email,
		ProductID:      subscription.Product.ProductID,
		GroupID:        subscription.Group.ExternalID,
		Status:         subscription.Status,
		ExpiresAt:      subscription.ExpiresAt.Format(time.RFC3339),
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	wn.sendWithRetry(payload)
}

// sendWithRetry delivers the event with backoff
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (wn *WebhookNotifier) sendWithRetry(payload LifecyclePayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := wn.send(payload)
		if err == nil {
			logging.Infof("Lifecycle webhook sent - event: %s, subscription: %d, attempt: %d",
				payload.Event, payload.SubscriptionID, attempt+1)
			return
		}

		logging.Errorf("Lifecycle webhook failed - event: %s, subscription: %d, attempt: %d, error: %v",
			payload.Event, payload.SubscriptionID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Lifecycle webhook dropped after %d attempts - event: %s, subscription: %d",
		maxRetries, payload.Event, payload.SubscriptionID)
}

func (wn *WebhookNotifier) send(payload LifecyclePayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", wn.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "GroupAccess-Webhook/1.0")
	if wn.secret != "" {
		req.Header.Set("X-GroupAccess-Signature", wn.generateSignature(jsonData))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates an HMAC-SHA256 signature for the payload
func (wn *WebhookNotifier) generateSignature(payload []byte) string {
	h := hmac.New(sha256.New, []byte(wn.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

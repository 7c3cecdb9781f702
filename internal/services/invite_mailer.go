package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"group-access-api/internal/config"
	"group-access-api/pkg/logging"
)

// InviteMailer emails freshly minted invite links to subscribers via the
// Brevo transactional email API. Sending is best effort and happens off the
// request path; delivery problems never fail a subscription.
type InviteMailer struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

// NewInviteMailer creates a new invite mailer
func NewInviteMailer() *InviteMailer {
	return &InviteMailer{
		apiKey:    config.AppConfig.BrevoAPIKey,
		fromEmail: config.AppConfig.BrevoFromEmail,
		fromName:  config.AppConfig.ServiceName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the mailer is configured
func (m *InviteMailer) Enabled() bool {
	return m.apiKey != "" && m.fromEmail != ""
}

// EmailRequest represents a Brevo email request
type EmailRequest struct {
	Sender      EmailSender `json:"sender"`
	To          []EmailTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent"`
}

type EmailSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type EmailTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendInviteEmail sends the invite link for a new subscription
func (m *InviteMailer) SendInviteEmail(to, productName, inviteURL string, inviteExpiresAt, subscriptionExpiresAt time.Time) {
	subject := fmt.Sprintf("Your invite link for %s", productName)

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head><meta charset="UTF-8"><title>Group invite</title></head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333;">Welcome to %s</h1>
				<p style="color: #666; font-size: 16px;">Use the link below to join the Telegram group:</p>
				<p><a href="%s" style="background-color: #007bff; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; display: inline-block;">Join the group</a></p>
				<p style="color: #999; font-size: 14px;">The invite link is single use and expires at %s.</p>
				<p style="color: #999; font-size: 14px;">Your subscription is valid until %s.</p>
			</div>
		</body>
		</html>
	`, productName, inviteURL,
		inviteExpiresAt.Format(time.RFC1123),
		subscriptionExpiresAt.Format(time.RFC1123))

	textContent := fmt.Sprintf(`Welcome to %s

Join the Telegram group: %s

The invite link is single use and expires at %s.
Your subscription is valid until %s.
`, productName, inviteURL,
		inviteExpiresAt.Format(time.RFC1123),
		subscriptionExpiresAt.Format(time.RFC1123))

	emailReq := EmailRequest{
		Sender: EmailSender{
			Name:  m.fromName,
			Email: m.fromEmail,
		},
		To: []EmailTo{
			{Email: to},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
		TextContent: textContent,
	}

	if err := m.sendEmail(emailReq); err != nil {
		logging.Errorf("Failed to send invite email to %s: %v", to, err)
		return
	}
	logging.Infof("Invite email sent to %s", to)
}

// sendEmail sends email via Brevo API
func (m *InviteMailer) sendEmail(req EmailRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}

	return nil
}

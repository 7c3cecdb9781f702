package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"group-access-api/pkg/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrGatewayClosed is returned for calls made after Close
var ErrGatewayClosed = errors.New("telegram gateway is closed")

// banWindow is how long a removed member stays banned before the follow-up
// unban. Telegram rejects ban durations under 30 seconds.
const banWindow = 45 * time.Second

// Gateway wraps one long-lived bot session. A single worker goroutine owns
// the session and runs both the update poll (when polling mode is enabled)
// and every outbound API call; all other goroutines marshal their calls
// into the worker over a channel and block until the worker replies or the
// call times out.
//
// The gateway never retries a failed platform call; failures are returned
// to the caller.
type Gateway struct {
	bot     *tgbotapi.BotAPI
	polling bool
	timeout time.Duration

	calls   chan gatewayCall
	updates chan tgbotapi.Update
	stop    chan struct{}
	stopped chan struct{}

	offset int
}

type gatewayCall struct {
	name string
	do   func(bot *tgbotapi.BotAPI) error
	done chan error
}

// NewGateway authenticates the bot session. polling selects long-poll
// ingestion; with polling disabled the worker only serves API calls and
// updates arrive through the webhook endpoint instead.
func NewGateway(botToken string, polling bool, timeout time.Duration) (*Gateway, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate bot: %w", err)
	}
	logging.Infof("Telegram bot authorized as @%s", bot.Self.UserName)

	return &Gateway{
		bot:     bot,
		polling: polling,
		timeout: timeout,
		calls:   make(chan gatewayCall),
		updates: make(chan tgbotapi.Update, 128),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Start launches the worker goroutine
func (g *Gateway) Start() {
	g.offset = loadPollOffset()
	go g.run()
}

// Close stops the worker. Pending calls fail with ErrGatewayClosed.
func (g *Gateway) Close() {
	close(g.stop)
	<-g.stopped
}

// Updates delivers decoded platform updates in polling mode. The channel
// is never closed while the gateway runs; it stays silent in webhook mode.
func (g *Gateway) Updates() <-chan tgbotapi.Update {
	return g.updates
}

func (g *Gateway) run() {
	defer close(g.stopped)
	for {
		// Serve queued API calls before the next poll so request
		// handlers are not starved by the long-poll wait.
		for {
			select {
			case call := <-g.calls:
				call.done <- call.do(g.bot)
				continue
			case <-g.stop:
				return
			default:
			}
			break
		}

		if !g.polling {
			select {
			case call := <-g.calls:
				call.done <- call.do(g.bot)
			case <-g.stop:
				return
			}
			continue
		}

		if err := g.pollOnce(); err != nil {
			logging.Errorf("Update poll failed: %v", err)
			select {
			case call := <-g.calls:
				call.done <- call.do(g.bot)
			case <-time.After(3 * time.Second):
			case <-g.stop:
				return
			}
		}
	}
}

func (g *Gateway) pollOnce() error {
	cfg := tgbotapi.NewUpdate(g.offset)
	cfg.Timeout = 1
	cfg.AllowedUpdates = []string{"message", "chat_member", "my_chat_member", "chat_join_request"}

	updates, err := g.bot.GetUpdates(cfg)
	if err != nil {
		return err
	}

	for _, update := range updates {
		if update.UpdateID >= g.offset {
			g.offset = update.UpdateID + 1
		}
		select {
		case g.updates <- update:
		case <-g.stop:
			return nil
		}
	}
	if len(updates) > 0 {
		savePollOffset(g.offset)
	}
	return nil
}

// invoke hands a call to the worker and blocks until it completes, the
// per-call timeout elapses, or the gateway shuts down.
func (g *Gateway) invoke(ctx context.Context, name string, do func(bot *tgbotapi.BotAPI) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	call := gatewayCall{name: name, do: do, done: make(chan error, 1)}
	select {
	case g.calls <- call:
	case <-ctx.Done():
		return fmt.Errorf("%s: gateway busy: %w", name, ctx.Err())
	case <-g.stop:
		return ErrGatewayClosed
	}

	select {
	case err := <-call.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}

// CreateInvite creates a join-request invite link for a chat. The token
// becomes the link's platform-visible name, which is read back from join
// events to correlate them with the subscription that minted the token.
func (g *Gateway) CreateInvite(ctx context.Context, chatID, token string, expiresAt time.Time) (string, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}

	var inviteURL string
	err = g.invoke(ctx, "createChatInviteLink", func(bot *tgbotapi.BotAPI) error {
		resp, err := bot.Request(tgbotapi.CreateChatInviteLinkConfig{
			ChatConfig:         tgbotapi.ChatConfig{ChatID: id},
			Name:               token,
			ExpireDate:         int(expiresAt.Unix()),
			CreatesJoinRequest: true,
		})
		if err != nil {
			return fmt.Errorf("createChatInviteLink: %w", err)
		}

		var link tgbotapi.ChatInviteLink
		if err := json.Unmarshal(resp.Result, &link); err != nil {
			return fmt.Errorf("failed to decode invite link response: %w", err)
		}
		inviteURL = link.InviteLink
		return nil
	})
	if err != nil {
		return "", err
	}
	return inviteURL, nil
}

// RemoveMember kicks a user out of a chat without banning them for good:
// ban for the platform's minimum revocation window, then unban so a future
// subscription can re-invite them.
func (g *Gateway) RemoveMember(ctx context.Context, chatID, userID string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	return g.invoke(ctx, "removeMember", func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(tgbotapi.BanChatMemberConfig{
			ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: id, UserID: uid},
			UntilDate:        time.Now().Add(banWindow).Unix(),
		})
		if err != nil {
			return fmt.Errorf("banChatMember: %w", err)
		}

		_, err = bot.Request(tgbotapi.UnbanChatMemberConfig{
			ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: id, UserID: uid},
			OnlyIfBanned:     true,
		})
		if err != nil {
			return fmt.Errorf("unbanChatMember: %w", err)
		}
		return nil
	})
}

// ApproveJoinRequest approves a pending chat join request
func (g *Gateway) ApproveJoinRequest(ctx context.Context, chatID string, userID int64) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	return g.invoke(ctx, "approveChatJoinRequest", func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(tgbotapi.ApproveChatJoinRequestConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: id},
			UserID:     userID,
		})
		if err != nil {
			return fmt.Errorf("approveChatJoinRequest: %w", err)
		}
		return nil
	})
}

// DeclineJoinRequest declines a pending chat join request
func (g *Gateway) DeclineJoinRequest(ctx context.Context, chatID string, userID int64) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	return g.invoke(ctx, "declineChatJoinRequest", func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(tgbotapi.DeclineChatJoinRequest{
			ChatConfig: tgbotapi.ChatConfig{ChatID: id},
			UserID:     userID,
		})
		if err != nil {
			return fmt.Errorf("declineChatJoinRequest: %w", err)
		}
		return nil
	})
}

// GetWebhookInfo returns the platform's view of the webhook configuration
func (g *Gateway) GetWebhookInfo(ctx context.Context) (tgbotapi.WebhookInfo, error) {
	var info tgbotapi.WebhookInfo
	err := g.invoke(ctx, "getWebhookInfo", func(bot *tgbotapi.BotAPI) error {
		var err error
		info, err = bot.GetWebhookInfo()
		return err
	})
	return info, err
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}

func parseUserID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	return id, nil
}

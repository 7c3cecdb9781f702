package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventKind classifies a decoded platform update
type EventKind int

const (
	// EventOther covers updates the access system does not act on
	EventOther EventKind = iota
	// EventJoinRequest is a user asking to join through an invite link
	EventJoinRequest
	// EventMemberJoined is a user who entered a chat
	EventMemberJoined
	// EventBotMembership is the bot itself being added to or removed from a chat
	EventBotMembership
)

// Member identifies one platform user in an event
type Member struct {
	UserID   string
	Username string
	IsBot    bool
}

// Event is the decoded form of a raw platform update. Only the fields
// relevant to the event's Kind are populated.
type Event struct {
	Kind      EventKind
	ChatID    string
	ChatTitle string

	// InviteToken is the name of the invite link the event arrived
	// through, when the platform includes one.
	InviteToken string

	// User is the subject of a join request or membership change
	User Member

	// Members lists users announced by a service message; a single
	// message can announce several joiners at once.
	Members []Member

	// BotJoined reports the direction of a bot membership change
	BotJoined bool
}

// DecodeUpdate maps a raw update to an Event. Updates that are malformed
// or irrelevant decode to EventOther rather than an error; the router
// skips those.
func DecodeUpdate(update tgbotapi.Update) Event {
	if req := update.ChatJoinRequest; req != nil {
		event := Event{
			Kind:      EventJoinRequest,
			ChatID:    strconv.FormatInt(req.Chat.ID, 10),
			ChatTitle: req.Chat.Title,
			User: Member{
				UserID:   strconv.FormatInt(req.From.ID, 10),
				Username: req.From.UserName,
				IsBot:    req.From.IsBot,
			},
		}
		if req.InviteLink != nil {
			event.InviteToken = req.InviteLink.Name
		}
		return event
	}

	if change := update.MyChatMember; change != nil {
		if !change.Chat.IsGroup() && !change.Chat.IsSuperGroup() {
			return Event{Kind: EventOther}
		}
		event := Event{
			Kind:      EventBotMembership,
			ChatID:    strconv.FormatInt(change.Chat.ID, 10),
			ChatTitle: change.Chat.Title,
		}
		switch change.NewChatMember.Status {
		case "member", "administrator":
			event.BotJoined = true
		case "left", "kicked":
			event.BotJoined = false
		default:
			return Event{Kind: EventOther}
		}
		return event
	}

	if change := update.ChatMember; change != nil {
		if change.NewChatMember.Status != "member" || change.NewChatMember.User == nil {
			return Event{Kind: EventOther}
		}
		user := change.NewChatMember.User
		event := Event{
			Kind:      EventMemberJoined,
			ChatID:    strconv.FormatInt(change.Chat.ID, 10),
			ChatTitle: change.Chat.Title,
			User: Member{
				UserID:   strconv.FormatInt(user.ID, 10),
				Username: user.UserName,
				IsBot:    user.IsBot,
			},
		}
		if change.InviteLink != nil {
			event.InviteToken = change.InviteLink.Name
		}
		return event
	}

	if msg := update.Message; msg != nil && len(msg.NewChatMembers) > 0 && msg.Chat != nil {
		event := Event{
			Kind:      EventMemberJoined,
			ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
			ChatTitle: msg.Chat.Title,
		}
		for _, joined := range msg.NewChatMembers {
			event.Members = append(event.Members, Member{
				UserID:   strconv.FormatInt(joined.ID, 10),
				Username: joined.UserName,
				IsBot:    joined.IsBot,
			})
		}
		return event
	}

	return Event{Kind: EventOther}
}

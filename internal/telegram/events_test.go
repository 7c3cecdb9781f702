package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpdate_JoinRequest(t *testing.T) {
	update := tgbotapi.Update{
		ChatJoinRequest: &tgbotapi.ChatJoinRequest{
			Chat: tgbotapi.Chat{ID: -1001, Type: "supergroup", Title: "Premium Chat"},
			From: tgbotapi.User{ID: 777, UserName: "alice_tg"},
			InviteLink: &tgbotapi.ChatInviteLink{
				InviteLink: "https://t.me/+abc",
				Name:       "deadbeefdeadbeefdeadbeefdeadbeef",
			},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventJoinRequest, event.Kind)
	assert.Equal(t, "-1001", event.ChatID)
	assert.Equal(t, "Premium Chat", event.ChatTitle)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", event.InviteToken)
	assert.Equal(t, "777", event.User.UserID)
	assert.Equal(t, "alice_tg", event.User.Username)
}

func TestDecodeUpdate_JoinRequestWithoutLink(t *testing.T) {
	update := tgbotapi.Update{
		ChatJoinRequest: &tgbotapi.ChatJoinRequest{
			Chat: tgbotapi.Chat{ID: -1001, Type: "supergroup"},
			From: tgbotapi.User{ID: 777},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventJoinRequest, event.Kind)
	assert.Empty(t, event.InviteToken)
}

func TestDecodeUpdate_MemberJoined(t *testing.T) {
	update := tgbotapi.Update{
		ChatMember: &tgbotapi.ChatMemberUpdated{
			Chat: tgbotapi.Chat{ID: -1001, Type: "supergroup", Title: "Premium Chat"},
			OldChatMember: tgbotapi.ChatMember{
				Status: "left",
				User:   &tgbotapi.User{ID: 777},
			},
			NewChatMember: tgbotapi.ChatMember{
				Status: "member",
				User:   &tgbotapi.User{ID: 777, UserName: "alice_tg"},
			},
			InviteLink: &tgbotapi.ChatInviteLink{Name: "sometoken"},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventMemberJoined, event.Kind)
	assert.Equal(t, "sometoken", event.InviteToken)
	assert.Equal(t, "777", event.User.UserID)
}

func TestDecodeUpdate_MemberLeftIgnored(t *testing.T) {
	update := tgbotapi.Update{
		ChatMember: &tgbotapi.ChatMemberUpdated{
			Chat: tgbotapi.Chat{ID: -1001, Type: "supergroup"},
			NewChatMember: tgbotapi.ChatMember{
				Status: "left",
				User:   &tgbotapi.User{ID: 777},
			},
		},
	}

	assert.Equal(t, EventOther, DecodeUpdate(update).Kind)
}

func TestDecodeUpdate_ServiceMessageJoiners(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: -1001, Type: "group", Title: "Premium Chat"},
			NewChatMembers: []tgbotapi.User{
				{ID: 777, UserName: "alice_tg"},
				{ID: 888, UserName: "bob_tg"},
			},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventMemberJoined, event.Kind)
	require.Len(t, event.Members, 2)
	assert.Equal(t, "777", event.Members[0].UserID)
	assert.Equal(t, "888", event.Members[1].UserID)
	assert.Empty(t, event.InviteToken, "service messages carry no invite link")
}

func TestDecodeUpdate_BotAdded(t *testing.T) {
	update := tgbotapi.Update{
		MyChatMember: &tgbotapi.ChatMemberUpdated{
			Chat:          tgbotapi.Chat{ID: -1001, Type: "supergroup", Title: "Premium Chat"},
			NewChatMember: tgbotapi.ChatMember{Status: "administrator"},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventBotMembership, event.Kind)
	assert.True(t, event.BotJoined)
	assert.Equal(t, "-1001", event.ChatID)
	assert.Equal(t, "Premium Chat", event.ChatTitle)
}

func TestDecodeUpdate_BotKicked(t *testing.T) {
	update := tgbotapi.Update{
		MyChatMember: &tgbotapi.ChatMemberUpdated{
			Chat:          tgbotapi.Chat{ID: -1001, Type: "group"},
			NewChatMember: tgbotapi.ChatMember{Status: "kicked"},
		},
	}

	event := DecodeUpdate(update)
	assert.Equal(t, EventBotMembership, event.Kind)
	assert.False(t, event.BotJoined)
}

func TestDecodeUpdate_BotMembershipInPrivateChatIgnored(t *testing.T) {
	update := tgbotapi.Update{
		MyChatMember: &tgbotapi.ChatMemberUpdated{
			Chat:          tgbotapi.Chat{ID: 777, Type: "private"},
			NewChatMember: tgbotapi.ChatMember{Status: "member"},
		},
	}

	assert.Equal(t, EventOther, DecodeUpdate(update).Kind)
}

func TestDecodeUpdate_IrrelevantUpdates(t *testing.T) {
	assert.Equal(t, EventOther, DecodeUpdate(tgbotapi.Update{}).Kind)
	assert.Equal(t, EventOther, DecodeUpdate(tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -1001}, Text: "hello"},
	}).Kind)
}

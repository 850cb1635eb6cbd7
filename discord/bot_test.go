package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/uploader/discord/discordtest"
)

func testBot(api Session, handler MessageHandler) (*Bot, *discordgo.Session) {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: "self"}

	b := &Bot{
		api:     api,
		config:  BotConfig{ChannelID: "chan"},
		waiter:  NewReactionWaiter(),
		handler: handler,
		ctx:     context.Background(),
		cancel:  func() {},
	}
	return b, s
}

func TestOnMessageCreateSkipsOwnMessages(t *testing.T) {
	var seen []string
	handler := MessageHandlerFunc(func(_ context.Context, m *discordgo.Message) {
		seen = append(seen, m.ID)
	})
	b, s := testBot(&discordtest.Session{}, handler)

	b.onMessageCreate(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "own", ChannelID: "chan", Author: &discordgo.User{ID: "self"},
	}})
	b.onMessageCreate(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "theirs", ChannelID: "chan", Author: &discordgo.User{ID: "user"},
	}})
	b.onMessageCreate(s, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "no-author"}})

	assert.Equal(t, []string{"theirs"}, seen)
}

func TestOnMessageReactionAddFeedsWaiter(t *testing.T) {
	b, s := testBot(&discordtest.Session{}, nil)
	exp := b.waiter.Expect(func(r *discordgo.MessageReaction) bool { return r.MessageID == "prompt" })

	b.onMessageReactionAdd(s, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID: "user", MessageID: "prompt", Emoji: discordgo.Emoji{Name: "✅"},
	}})

	got, err := exp.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "user", got.UserID)
}

func TestSendMessageTargetsWatchedChannel(t *testing.T) {
	fake := &discordtest.Session{}
	b, _ := testBot(fake, nil)

	b.SendMessage("hello")

	calls := fake.CallsTo("ChannelMessageSend")
	require.Len(t, calls, 1)
	assert.Equal(t, "chan", calls[0].ChannelID)
	assert.Equal(t, "hello", calls[0].Content)
}

func TestSendMessageSwallowsErrors(t *testing.T) {
	fake := &discordtest.Session{Errors: map[string]error{"ChannelMessageSend": errors.New("forbidden")}}
	b, _ := testBot(fake, nil)

	assert.NotPanics(t, func() { b.SendMessage("hello") })
}

func TestNewBotRequiresToken(t *testing.T) {
	_, err := NewBot(BotConfig{})
	assert.Error(t, err)
}

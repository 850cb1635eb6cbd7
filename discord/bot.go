package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// MessageHandler receives every message the bot did not send itself.
// HandleMessage may block; discordgo runs each event on its own goroutine.
type MessageHandler interface {
	HandleMessage(ctx context.Context, m *discordgo.Message)
}

// MessageHandlerFunc adapts a plain function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, m *discordgo.Message)

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, m *discordgo.Message) {
	f(ctx, m)
}

// BotConfig contains configuration for the bot.
type BotConfig struct {
	BotToken string
	// ChannelID is the single channel the bot watches and announces itself in.
	ChannelID      string
	AnnounceOnline bool
}

// Bot encapsulates the discordgo session, the reaction waiter and the message handler.
type Bot struct {
	session *discordgo.Session
	api     Session
	config  BotConfig
	waiter  *ReactionWaiter
	handler MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot creates the session without connecting, so handlers can be built
// around Session() and Waiter() before Open is called.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}

	// Create a new Discord session using the provided bot token.
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	// Set necessary intents.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		session: dg,
		api:     dg,
		config:  cfg,
		waiter:  NewReactionWaiter(),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Session returns the long-lived connection used to talk to Discord.
func (b *Bot) Session() Session {
	return b.api
}

// Waiter returns the waiter fed by this bot's reaction events.
func (b *Bot) Waiter() *ReactionWaiter {
	return b.waiter
}

// Open registers the event handlers and opens the websocket connection.
func (b *Bot) Open(handler MessageHandler) error {
	b.handler = handler

	// Register event handlers.
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageReactionAdd)

	if err := b.session.Open(); err != nil {
		slog.Error("failed to open discord session", "error", err)
		return err
	}

	if b.config.AnnounceOnline {
		b.SendMessage("Uploader online. Watching for images in this channel.")
	}

	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("logged in", "user", r.User.String(), "user_id", r.User.ID, "guilds", len(r.Guilds))
}

// onMessageCreate drops the bot's own messages and hands the rest to the handler.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	slog.Debug("message received",
		"author", m.Author.Username,
		"author_id", m.Author.ID,
		"channel_id", m.ChannelID,
		"attachments", len(m.Attachments))

	if b.handler == nil {
		return
	}
	b.handler.HandleMessage(b.ctx, m.Message)
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	slog.Debug("reaction received",
		"user_id", r.UserID,
		"message_id", r.MessageID,
		"emoji", r.Emoji.Name)

	b.waiter.Dispatch(r.MessageReaction)
}

// Close gracefully closes the Discord session, releasing any handler still waiting on a reaction.
func (b *Bot) Close() error {
	slog.Info("shutting down bot")
	b.cancel()
	return b.session.Close()
}

// Package discordtest provides a recording stand-in for discord.Session.
package discordtest

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Call records one request made against the fake session.
type Call struct {
	Method    string
	ChannelID string
	MessageID string
	Content   string
	Emoji     string
	Reference *discordgo.MessageReference
	Send      *discordgo.MessageSend
}

// Session records every call and answers with synthetic messages.
// Errors keyed by method name are returned instead of succeeding.
type Session struct {
	// OnReactionAdd runs after MessageReactionAdd is recorded, before it returns.
	OnReactionAdd func(channelID, messageID, emoji string)
	Errors        map[string]error

	mu     sync.Mutex
	calls  []Call
	nextID int
}

func (s *Session) record(c Call) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, c)
	if err := s.Errors[c.Method]; err != nil {
		return nil, err
	}

	id := c.MessageID
	if id == "" {
		s.nextID++
		id = fmt.Sprintf("sent-%d", s.nextID)
	}
	return &discordgo.Message{ID: id, ChannelID: c.ChannelID, Content: c.Content}, nil
}

func (s *Session) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.record(Call{Method: "ChannelMessageSend", ChannelID: channelID, Content: content})
}

func (s *Session) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.record(Call{Method: "ChannelMessageSendReply", ChannelID: channelID, Content: content, Reference: reference})
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c := Call{Method: "ChannelMessageSendComplex", ChannelID: channelID, Send: data}
	if data != nil {
		c.Content = data.Content
		c.Reference = data.Reference
	}
	return s.record(c)
}

func (s *Session) ChannelMessageEdit(channelID, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.record(Call{Method: "ChannelMessageEdit", ChannelID: channelID, MessageID: messageID, Content: content})
}

func (s *Session) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	_, err := s.record(Call{Method: "MessageReactionAdd", ChannelID: channelID, MessageID: messageID, Emoji: emojiID})
	if err == nil && s.OnReactionAdd != nil {
		s.OnReactionAdd(channelID, messageID, emojiID)
	}
	return err
}

// Calls returns a copy of every recorded call in order.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls to one method.
func (s *Session) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

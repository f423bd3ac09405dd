package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Source is a grounding citation returned with a search-enabled reply
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ChatMessage is one immutable turn of a conversation
type ChatMessage struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// NewUserMessage creates a user-role message stamped with the current time
func NewUserMessage(text string) *ChatMessage {
	return &ChatMessage{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewModelMessage creates a model-role message stamped with the current time
func NewModelMessage(text string, sources []Source) *ChatMessage {
	return &ChatMessage{
		ID:        NewMessageID(),
		Role:      RoleModel,
		Text:      text,
		Timestamp: time.Now(),
		Sources:   sources,
	}
}

// Transcript is an append-only, chronologically ordered list of messages
type Transcript []*ChatMessage

// Text renders the transcript as "ROLE: text" lines for distillation prompts
func (t Transcript) Text() string {
	var b strings.Builder
	for _, msg := range t {
		if msg == nil || msg.Text == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string(msg.Role)))
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

package app

import (
	"time"

	"github.com/dkeye/Counsel/internal/domain"
)

// Outbound event types as seen by the browser.
const (
	TypeMessage = "message"
	TypeSystem  = "system"
	TypeAIDraft = "ai_draft"
	TypeAIError = "ai_error"
	TypeHistory = "history"
)

// Timestamps on the wire are Unix milliseconds. Drafts carry their own so the
// counselor UI can place them against live chat, which they may trail.
func millis(t time.Time) int64 { return t.UnixMilli() }

type MessageEvent struct {
	Type string      `json:"type"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
	Text string      `json:"text"`
	TS   int64       `json:"ts"`
}

func NewMessageEvent(u domain.Utterance) MessageEvent {
	return MessageEvent{Type: TypeMessage, Name: u.Speaker, Role: u.Role, Text: u.Text, TS: millis(u.At)}
}

type SystemEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewSystemEvent(text string) SystemEvent {
	return SystemEvent{Type: TypeSystem, Text: text}
}

type DraftEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	TS        int64  `json:"ts"`
	RevisedBy string `json:"revisedBy,omitempty"`
}

func NewDraftEvent(d domain.Draft) DraftEvent {
	return DraftEvent{Type: TypeAIDraft, Text: d.Text, TS: millis(d.At), RevisedBy: d.RevisedBy}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: TypeAIError, Message: message}
}

type HistoryEvent struct {
	Type     string         `json:"type"`
	Messages []MessageEvent `json:"messages"`
}

func NewHistoryEvent(history []domain.Utterance) HistoryEvent {
	out := HistoryEvent{Type: TypeHistory, Messages: make([]MessageEvent, 0, len(history))}
	for _, u := range history {
		out.Messages = append(out.Messages, NewMessageEvent(u))
	}
	return out
}

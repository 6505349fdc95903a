package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Identity identifies the sender of a chat message.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AIIdentity is the synthetic sender attributed to generated replies.
// It cannot authenticate.
var AIIdentity = Identity{ID: "ai", Email: "AI Bot"}

// IsAI reports whether the identity is the synthetic AI sender.
func (i Identity) IsAI() bool {
	return i.ID == AIIdentity.ID
}

// Language is a target language of generated code.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageCPP        Language = "cpp"
	LanguagePython     Language = "python"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageJavaScript, LanguageCPP, LanguagePython:
		return true
	}
	return false
}

// GeneratedFile is a file produced by the AI assistant.
type GeneratedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// StructuredReply is the normalized output of an AI generation, or its error.
type StructuredReply struct {
	Theory   string          `json:"theory,omitempty"`
	Example  string          `json:"example,omitempty"`
	Language Language        `json:"language,omitempty"`
	Files    []GeneratedFile `json:"files,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// PayloadKind discriminates Payload.
type PayloadKind int

const (
	// PayloadText is plain human chat text.
	PayloadText PayloadKind = iota
	// PayloadGenerated is a structured reply from the AI assistant.
	PayloadGenerated
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadGenerated:
		return "generated"
	default:
		return fmt.Sprintf("PayloadKind(%d)", int(k))
	}
}

// Payload is the body of a chat message: either Text or a generated Reply.
// The JSON form is a string for text and an object for generated replies.
type Payload struct {
	Kind  PayloadKind
	Text  string
	Reply *StructuredReply
}

// TextPayload wraps plain chat text.
func TextPayload(text string) Payload {
	return Payload{Kind: PayloadText, Text: text}
}

// GeneratedPayload wraps a structured AI reply.
func GeneratedPayload(reply *StructuredReply) Payload {
	return Payload{Kind: PayloadGenerated, Reply: reply}
}

// ErrorPayload wraps a generation failure as a structured reply carrying only an error.
func ErrorPayload(message string) Payload {
	return GeneratedPayload(&StructuredReply{Error: message})
}

// MarshalJSON encodes text as a JSON string and replies as an object.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadText:
		return json.Marshal(p.Text)
	case PayloadGenerated:
		if p.Reply == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(p.Reply)
	default:
		return nil, fmt.Errorf("unknown payload kind %d", p.Kind)
	}
}

// UnmarshalJSON decodes a JSON string into text and an object into a reply.
func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = TextPayload(s)
		return nil
	}
	var reply StructuredReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("decode structured reply: %w", err)
	}
	*p = GeneratedPayload(&reply)
	return nil
}

// Message is one record of a project's chat log.
type Message struct {
	ID        string    `json:"id,omitempty"`
	ProjectID string    `json:"-"`
	Sender    Identity  `json:"sender"`
	Payload   Payload   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

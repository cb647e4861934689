package aicl

import (
	"encoding/json"
	"fmt"
)

// EncodeMessage serializes a message to indented JSON.
func EncodeMessage(m *Message) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// DecodeMessage deserializes a message from JSON.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &m, nil
}

// EncodeContext serializes a context to indented JSON.
func EncodeContext(c *Context) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// DecodeContext deserializes a context from JSON.
func DecodeContext(data []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return &c, nil
}

// EncodeConversation serializes a conversation, including its context and
// every message, to indented JSON.
func EncodeConversation(c *Conversation) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.MarshalIndent(c, "", "  ")
}

// DecodeConversation deserializes a conversation from JSON. The decoded
// value reproduces the original exactly (round-trip law).
func DecodeConversation(data []byte) (*Conversation, error) {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	if c.Models == nil {
		c.Models = make(map[string]*Participant)
	}
	return &c, nil
}

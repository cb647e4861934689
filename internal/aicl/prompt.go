package aicl

import (
	"fmt"
	"strings"
)

// contextWindow is how many trailing messages BuildContextFor includes.
const contextWindow = 10

// ToPrompt renders the message as AICL wire text for a receiving model.
func (m *Message) ToPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[AICL MESSAGE from %s as %s]\n", m.SenderModel, m.SenderRole)
	fmt.Fprintf(&b, "Intent: %s\n", m.Intent)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", m.Confidence*100)
	b.WriteString("\nContent:\n")
	b.WriteString(m.Content)

	if m.Reasoning != "" {
		b.WriteString("\n\nReasoning:\n")
		b.WriteString(m.Reasoning)
	}

	if len(m.CodeBlocks) > 0 {
		b.WriteString("\n")
	}
	for _, block := range m.CodeBlocks {
		fmt.Fprintf(&b, "\n```%s\n%s\n```", block.Language, block.Code)
	}

	b.WriteString("\n[/AICL MESSAGE]")
	return b.String()
}

// BuildContextFor renders the conversation state for one model: task
// framing, participants, constraints, and the last few messages.
func (c *Conversation) BuildContextFor(targetModel string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteString("=== AICL CONVERSATION CONTEXT ===\n")
	fmt.Fprintf(&b, "Task ID: %s\n", c.Context.TaskID)
	fmt.Fprintf(&b, "Objective: %s\n", c.Context.CurrentObjective)
	fmt.Fprintf(&b, "Iteration: %d/%d\n", c.Context.CurrentIteration, c.Context.MaxIterations)
	b.WriteString("\nOriginal Prompt:\n")
	b.WriteString(c.Context.OriginalPrompt)
	b.WriteString("\n\nParticipating Models:\n")

	for modelID, p := range c.Models {
		marker := ""
		if modelID == targetModel {
			marker = " (you)"
		}
		fmt.Fprintf(&b, "  - %s%s: %s\n", modelID, marker, p.Role)
	}

	if len(c.Context.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, con := range c.Context.Constraints {
			fmt.Fprintf(&b, "  - %s\n", con)
		}
	}

	b.WriteString("\n=== CONVERSATION HISTORY ===\n\n")

	start := 0
	if len(c.Messages) > contextWindow {
		start = len(c.Messages) - contextWindow
	}
	for _, msg := range c.Messages[start:] {
		b.WriteString(msg.ToPrompt())
		b.WriteString("\n\n")
	}

	b.WriteString("=== YOUR TURN ===")
	return b.String()
}

// Package memory keeps per-session conversation history for prompt building.
package memory

import (
	"context"
	"fmt"

	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
)

// ConversationMemory loads and records conversation turns.
type ConversationMemory struct {
	store    storage.ConversationStore
	maxTurns int
}

// New returns a memory backed by store. maxTurns bounds how many user/assistant
// turns Load returns; 0 returns the whole conversation.
func New(store storage.ConversationStore, maxTurns int) *ConversationMemory {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &ConversationMemory{store: store, maxTurns: maxTurns}
}

// Load returns the session's messages, oldest first.
func (m *ConversationMemory) Load(ctx context.Context, sessionID string) ([]*models.Message, error) {
	msgs, err := m.store.ListMessages(ctx, sessionID, m.maxTurns*2)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", sessionID, err)
	}
	return msgs, nil
}

// SaveContext records one exchange. Both halves are written or neither is.
func (m *ConversationMemory) SaveContext(ctx context.Context, sessionID, input, output string) error {
	err := m.store.AppendMessages(ctx, sessionID,
		&models.Message{Role: models.RoleUser, Content: input},
		&models.Message{Role: models.RoleAssistant, Content: output},
	)
	if err != nil {
		return fmt.Errorf("save context for %s: %w", sessionID, err)
	}
	return nil
}

// Clear forgets a session.
func (m *ConversationMemory) Clear(ctx context.Context, sessionID string) error {
	return m.store.DeleteSession(ctx, sessionID)
}

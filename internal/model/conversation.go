// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// MaxTurns is the maximum number of turns kept in a conversation.
// When exceeded, the oldest turns are pruned to prevent unbounded growth.
const MaxTurns = 1000

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an append-only log of chat turns for one session.
//
// Turns are never mutated or removed once appended (pruning of the oldest
// turns aside); ordering is strictly insertion order. All methods are safe
// for concurrent use: HTTP handlers and the realtime channel may touch the
// same session.
type Conversation struct {
	mu        sync.RWMutex
	turns     []ChatTurn
	createdAt time.Time
	updatedAt time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		turns:     make([]ChatTurn, 0, 16),
		createdAt: now,
		updatedAt: now,
	}
}

// Append creates a turn from role and content, appends it, and returns it.
func (c *Conversation) Append(role Role, content string) ChatTurn {
	turn := NewTurn(role, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	c.updatedAt = turn.Timestamp

	if len(c.turns) > MaxTurns {
		// Drop the oldest turns, keeping the slice compact.
		excess := len(c.turns) - MaxTurns
		c.turns = append(c.turns[:0:0], c.turns[excess:]...)
	}
	return turn
}

// All returns a copy of every turn in insertion order.
func (c *Conversation) All() []ChatTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ChatTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// CreatedAt returns the conversation creation time.
func (c *Conversation) CreatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.createdAt
}

// UpdatedAt returns the time of the most recent append.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

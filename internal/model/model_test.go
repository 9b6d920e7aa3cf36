// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"testing"
)

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AppendOrder(t *testing.T) {
	conv := NewConversation()

	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		conv.Append(role, fmt.Sprintf("turn %d", i))
	}

	turns := conv.All()
	if len(turns) != 10 {
		t.Fatalf("len(All()) = %d, want 10", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("turn %d", i)
		if turn.Content != want {
			t.Errorf("turns[%d].Content = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestConversation_TurnIDsUnique(t *testing.T) {
	conv := NewConversation()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		turn := conv.Append(RoleUser, "x")
		if turn.ID == "" {
			t.Fatal("turn ID should not be empty")
		}
		if seen[turn.ID] {
			t.Fatalf("duplicate turn ID %q", turn.ID)
		}
		seen[turn.ID] = true
	}
}

func TestConversation_AllReturnsCopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleUser, "original")

	turns := conv.All()
	turns[0].Content = "mutated"

	again := conv.All()
	if again[0].Content != "original" {
		t.Error("All() should return a copy, not the backing slice")
	}
}

func TestConversation_Timestamps(t *testing.T) {
	conv := NewConversation()
	created := conv.CreatedAt()

	turn := conv.Append(RoleUser, "first")
	if conv.UpdatedAt() != turn.Timestamp {
		t.Errorf("UpdatedAt = %v, want %v", conv.UpdatedAt(), turn.Timestamp)
	}
	if conv.CreatedAt() != created {
		t.Error("CreatedAt should not change on append")
	}
	if conv.UpdatedAt().Before(created) {
		t.Error("UpdatedAt should not precede CreatedAt")
	}
}

func TestConversation_PruneKeepsNewest(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < MaxTurns+5; i++ {
		conv.Append(RoleUser, fmt.Sprintf("turn %d", i))
	}

	turns := conv.All()
	if len(turns) != MaxTurns {
		t.Fatalf("len = %d, want %d", len(turns), MaxTurns)
	}
	if turns[0].Content != "turn 5" {
		t.Errorf("oldest kept = %q, want %q", turns[0].Content, "turn 5")
	}
	if turns[len(turns)-1].Content != fmt.Sprintf("turn %d", MaxTurns+4) {
		t.Errorf("newest = %q", turns[len(turns)-1].Content)
	}
}

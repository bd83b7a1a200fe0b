package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairConversationIDSymmetric(t *testing.T) {
	id1 := PairConversationID("user-a", "user-b")
	id2 := PairConversationID("user-b", "user-a")
	assert.Equal(t, id1, id2)
}

func TestPairConversationIDDistinctPairs(t *testing.T) {
	assert.NotEqual(t,
		PairConversationID("user-a", "user-b"),
		PairConversationID("user-a", "user-c"),
	)
}

func TestPairConversationIDDeterministic(t *testing.T) {
	assert.Equal(t,
		PairConversationID("u1", "u2"),
		PairConversationID("u1", "u2"),
	)
}

func TestHasParticipantAndOtherParticipant(t *testing.T) {
	c := &Conversation{Participants: []string{"a", "b"}}

	assert.True(t, c.HasParticipant("a"))
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("x"))

	assert.Equal(t, "b", c.OtherParticipant("a"))
	assert.Equal(t, "a", c.OtherParticipant("b"))
}

func TestSortConversationsNewestActivityFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	conversations := []*Conversation{
		{ID: "old", UpdatedAt: base},
		{ID: "new", UpdatedAt: base.Add(5 * time.Minute)},
		{ID: "mid", UpdatedAt: base.Add(2 * time.Minute)},
	}

	SortConversations(conversations)

	assert.Equal(t, "new", conversations[0].ID)
	assert.Equal(t, "mid", conversations[1].ID)
	assert.Equal(t, "old", conversations[2].ID)
}

func TestSortConversationsStable(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	conversations := []*Conversation{
		{ID: "first", UpdatedAt: at},
		{ID: "second", UpdatedAt: at},
	}

	SortConversations(conversations)

	assert.Equal(t, "first", conversations[0].ID)
	assert.Equal(t, "second", conversations[1].ID)
}

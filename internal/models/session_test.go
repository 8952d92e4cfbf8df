package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatSessionPendingStateMovesTogether(t *testing.T) {
	s := NewChatSession("s1", time.Now())

	_, _, ok := s.Pending()
	assert.False(t, ok, "new session starts idle")

	var f Fields
	f.Set("summary", TextValue("Crash on start"))
	s.SetPending("bug", f)

	id, got, ok := s.Pending()
	assert.True(t, ok)
	assert.Equal(t, "bug", id)
	assert.Equal(t, f.Map(), got.Map())

	s.ClearPending()
	id, got, ok = s.Pending()
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, 0, got.Len())
}

func TestChatSessionRecentTurns(t *testing.T) {
	s := NewChatSession("s1", time.Now())
	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.AddMessage(role, string(rune('a'+i)), MessageText, nil)
	}

	turns := s.RecentTurns(10)
	assert.Len(t, turns, 10)
	assert.Equal(t, "c", turns[0].Content, "oldest of the last ten comes first")
	assert.Equal(t, "l", turns[9].Content)

	assert.Len(t, s.History(), 12)
}

func TestChatSessionMessagesGetUniqueIDs(t *testing.T) {
	s := NewChatSession("s1", time.Now())
	a := s.AddMessage(RoleUser, "one", MessageText, nil)
	b := s.AddMessage(RoleUser, "two", MessageText, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

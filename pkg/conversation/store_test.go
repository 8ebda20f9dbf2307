package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_AppendPreservesOrderAndFields(t *testing.T) {
	s := NewStore()
	ts := time.UnixMilli(1_700_000_000_000)

	var want []Message
	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		// every message shares the same millisecond; insertion order must win
		m := NewMessage(role, fmt.Sprintf("msg-%d", i), WithTime(ts))
		want = append(want, m)
		s.Append(m)
	}

	got := s.Messages()
	require.Equal(t, want, got)
	require.Equal(t, 10, s.Len())
}

func TestStore_MessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append(NewUserMessage("hello", WithID("m-1")))

	msgs := s.Messages()
	msgs[0].Text = "tampered"
	msgs[0].IsError = true
	_ = append(msgs, NewModelMessage("extra"))

	got := s.Messages()
	require.Len(t, got, 1)
	require.Equal(t, "hello", got[0].Text)
	require.False(t, got[0].IsError)
	require.Equal(t, "m-1", got[0].ID)

	snap := s.Snapshot()
	snap.Messages[0].Text = "tampered again"
	require.Equal(t, "hello", s.Messages()[0].Text)
}

func TestStore_AppendUserTextRejectsBlank(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"", " ", "\n\t  ", "\r\n"} {
		_, ok := s.AppendUserText(text)
		require.False(t, ok, "text %q", text)
	}
	require.Equal(t, 0, s.Len())

	m, ok := s.AppendUserText("  What is DIEP?  ")
	require.True(t, ok)
	require.Equal(t, RoleUser, m.Role)
	require.Equal(t, "  What is DIEP?  ", m.Text)
	require.Equal(t, 1, s.Len())
}

func TestStore_Flags(t *testing.T) {
	s := NewStore()
	require.False(t, s.Busy())
	require.False(t, s.Configured())

	s.SetBusy(true)
	s.SetConfigured(true)
	snap := s.Snapshot()
	require.True(t, snap.Busy)
	require.True(t, snap.Configured)
	require.Empty(t, snap.Messages)

	s.SetBusy(false)
	require.False(t, s.Busy())
}

func TestStore_Last(t *testing.T) {
	s := NewStore()
	_, ok := s.Last()
	require.False(t, ok)

	s.Append(NewUserMessage("a"))
	s.Append(NewModelMessage("b"))
	last, ok := s.Last()
	require.True(t, ok)
	require.Equal(t, "b", last.Text)
	require.Equal(t, RoleModel, last.Role)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(NewUserMessage(fmt.Sprintf("m%d", i)))
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
}

func TestNewErrorMessage(t *testing.T) {
	m := NewErrorMessage(WithID("err-1"))
	require.Equal(t, RoleModel, m.Role)
	require.True(t, m.IsError)
	require.Equal(t, ErrorText, m.Text)
	require.Equal(t, "err-1", m.ID)
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		m := NewUserMessage("x")
		require.NotEmpty(t, m.ID)
		require.False(t, seen[m.ID])
		seen[m.ID] = true
	}
}

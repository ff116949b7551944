package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadDelete(t *testing.T) {
	store := NewStore(8)

	sess := &Session{
		ID:       "s-1",
		Scenario: "driver stuck in traffic",
		Kind:     "traffic",
		Hints:    &Hints{ScenarioText: "driver stuck in traffic"},
	}
	store.Save(sess)
	require.False(t, sess.SavedAt.IsZero())

	got, ok := store.Load("s-1")
	require.True(t, ok)
	require.Equal(t, "traffic", got.Kind)

	store.Delete("s-1")
	_, ok = store.Load("s-1")
	require.False(t, ok)
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store := NewStore(2)

	store.Save(&Session{ID: "s-1", Hints: &Hints{}})
	store.Save(&Session{ID: "s-2", Hints: &Hints{}})

	// Touch s-1 so s-2 becomes the eviction candidate.
	_, ok := store.Load("s-1")
	require.True(t, ok)

	store.Save(&Session{ID: "s-3", Hints: &Hints{}})
	require.Equal(t, 2, store.Len())

	_, ok = store.Load("s-2")
	require.False(t, ok)
	_, ok = store.Load("s-1")
	require.True(t, ok)
}

func TestStoreCapacityFallback(t *testing.T) {
	store := NewStore(0)
	for i := 0; i < 10; i++ {
		store.Save(&Session{ID: fmt.Sprintf("s-%d", i), Hints: &Hints{}})
	}
	require.Equal(t, 10, store.Len())
}

func TestHintsAnswers(t *testing.T) {
	h := &Hints{}
	require.Nil(t, h.Answer("safe_drop_ok"))

	h.SetAnswer("safe_drop_ok", true)
	require.Equal(t, true, h.Answer("safe_drop_ok"))

	h.MergeAnswers(map[string]any{
		"safe_drop_ok": false,
		"locker_ok":    true,
	})
	require.Equal(t, false, h.Answer("safe_drop_ok"))
	require.Equal(t, true, h.Answer("locker_ok"))

	var nilHints *Hints
	require.Nil(t, nilHints.Answer("anything"))
}

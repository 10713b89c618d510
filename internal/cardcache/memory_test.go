package cardcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

func hand(lo ...uint64) []confidential.EncryptedCard {
	out := make([]confidential.EncryptedCard, 0, len(lo))
	for _, v := range lo {
		out = append(out, confidential.EncryptedCard{
			Shape: ledger.Uint128{Lo: v},
			Value: ledger.Uint128{Lo: v + 100},
		})
	}
	return out
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	h := hand(1, 2, 3)
	cards := []confidential.Card{{Shape: 0, Value: 5}, {Shape: 1, Value: 6}, {Shape: 2, Value: 7}}

	_, ok := s.Load(1, "owner", h)
	require.False(t, ok, "empty cache misses")

	require.NoError(t, s.Save(1, "owner", h, cards))

	got, ok := s.Load(1, "owner", h)
	require.True(t, ok)
	require.Equal(t, cards, got)
}

func TestMemoryStoreFingerprintMismatchEvicts(t *testing.T) {
	s := NewMemoryStore()
	old := hand(1, 2)
	require.NoError(t, s.Save(1, "owner", old, []confidential.Card{{Shape: 1, Value: 1}}))

	// reshuffle: different handles, same key
	_, ok := s.Load(1, "owner", hand(3, 4))
	require.False(t, ok)

	// the stale entry is gone even for the original handles
	_, ok = s.Load(1, "owner", old)
	require.False(t, ok)
}

func TestMemoryStoreKeysAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	h := hand(1)
	require.NoError(t, s.Save(1, "alice", h, []confidential.Card{{Shape: 1, Value: 2}}))

	_, ok := s.Load(1, "bob", h)
	require.False(t, ok)
	_, ok = s.Load(2, "alice", h)
	require.False(t, ok)
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	h := hand(1)
	require.NoError(t, s.Save(1, "alice", h, []confidential.Card{{Shape: 1, Value: 2}}))
	require.NoError(t, s.Clear(1, "alice"))

	_, ok := s.Load(1, "alice", h)
	require.False(t, ok)
}

func TestMemoryStoreLoadCopies(t *testing.T) {
	s := NewMemoryStore()
	h := hand(1)
	require.NoError(t, s.Save(1, "alice", h, []confidential.Card{{Shape: 1, Value: 2}}))

	got, ok := s.Load(1, "alice", h)
	require.True(t, ok)
	got[0].Value = 99

	again, _ := s.Load(1, "alice", h)
	require.Equal(t, uint8(2), again[0].Value, "caller mutation must not leak into the store")
}

package cardcache

import (
	"sync"

	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

// MemoryStore is the cache used when no DATABASE_URL is configured. Same
// fingerprint semantics, process lifetime only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memKey]memEntry
}

type memKey struct {
	tableID uint64
	owner   ledger.Address
}

type memEntry struct {
	fingerprint string
	cards       []confidential.Card
}

var _ confidential.CacheStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memKey]memEntry)}
}

func (s *MemoryStore) Load(tableID uint64, owner ledger.Address, hand []confidential.EncryptedCard) ([]confidential.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{tableID, owner}
	e, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if e.fingerprint != confidential.Fingerprint(hand) {
		delete(s.entries, k)
		return nil, false
	}
	out := make([]confidential.Card, len(e.cards))
	copy(out, e.cards)
	return out, true
}

func (s *MemoryStore) Save(tableID uint64, owner ledger.Address, hand []confidential.EncryptedCard, cards []confidential.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]confidential.Card, len(cards))
	copy(stored, cards)
	s.entries[memKey{tableID, owner}] = memEntry{
		fingerprint: confidential.Fingerprint(hand),
		cards:       stored,
	}
	return nil
}

func (s *MemoryStore) Clear(tableID uint64, owner ledger.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memKey{tableID, owner})
	return nil
}

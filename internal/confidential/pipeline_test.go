package confidential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

type pipeLedger struct {
	mu         sync.Mutex
	account    []byte
	submits    int
	confirmErr error
}

func (f *pipeLedger) Submits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func (f *pipeLedger) Account(context.Context, ledger.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

func (f *pipeLedger) Submit(context.Context, *ledger.Transaction) (ledger.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return "grant-sig", nil
}

func (f *pipeLedger) Confirm(context.Context, ledger.Signature, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmErr
}

func (f *pipeLedger) LatestBlockhash(context.Context) (string, error) { return "hash", nil }
func (f *pipeLedger) Liveness(context.Context) error                  { return nil }
func (f *pipeLedger) RecentSignatures(context.Context, ledger.Address, ledger.Signature, int) ([]ledger.SignatureInfo, error) {
	return nil, nil
}
func (f *pipeLedger) Transaction(context.Context, ledger.Signature) (ledger.TransactionDetail, error) {
	return ledger.TransactionDetail{}, nil
}

// scriptedDecrypt answers plaintext = handle.Lo, optionally failing a
// specific handle or blocking until released.
type scriptedDecrypt struct {
	failOn  ledger.Uint128
	blockOn chan struct{}
}

func (d *scriptedDecrypt) RequestDecryption(ctx context.Context, h ledger.Uint128, _ ledger.Address, _ ledger.SignFn) (uint64, error) {
	if d.blockOn != nil {
		select {
		case <-d.blockOn:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if h == d.failOn && !h.IsZero() {
		return 0, errors.New("mpc refused")
	}
	return h.Lo, nil
}

type fakeCache struct {
	mu    sync.Mutex
	fp    map[string]string
	cards map[string][]Card
	saves int
}

func newFakeCache() *fakeCache {
	return &fakeCache{fp: map[string]string{}, cards: map[string][]Card{}}
}

func cacheKey(tableID uint64, owner ledger.Address) string {
	return fmt.Sprintf("%d|%s", tableID, owner)
}

func (c *fakeCache) Load(tableID uint64, owner ledger.Address, hand []EncryptedCard) ([]Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(tableID, owner)
	if c.fp[k] != Fingerprint(hand) {
		delete(c.fp, k)
		delete(c.cards, k)
		return nil, false
	}
	return c.cards[k], true
}

func (c *fakeCache) Save(tableID uint64, owner ledger.Address, hand []EncryptedCard, cards []Card) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(tableID, owner)
	c.fp[k] = Fingerprint(hand)
	c.cards[k] = cards
	c.saves++
	return nil
}

func (c *fakeCache) Clear(tableID uint64, owner ledger.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fp, cacheKey(tableID, owner))
	delete(c.cards, cacheKey(tableID, owner))
	return nil
}

func threeCardAccount() []byte {
	return []byte(`{"cards":[
		{"shape": "1", "value": "10"},
		{"shape": "2", "value": "11"},
		{"shape": "3", "value": "12"}
	]}`)
}

func newTestPipeline(lc ledger.Client, dc DecryptClient, cache CacheStore) *Pipeline {
	program := ledger.GenerateIdentity().PublicKey
	return NewPipeline(lc, dc, cache, program, time.Second, time.Millisecond, zap.NewNop())
}

func TestRevealFullSuccess(t *testing.T) {
	fake := &pipeLedger{account: threeCardAccount()}
	cache := newFakeCache()
	p := newTestPipeline(fake, &scriptedDecrypt{}, cache)
	id := ledger.GenerateIdentity()

	var progressive []Card
	cards, err := p.Reveal(context.Background(), 1, id, func(c Card) { progressive = append(progressive, c) })
	require.NoError(t, err)
	require.Len(t, cards, 3)
	require.Equal(t, cards, progressive, "onCard must fire once per card in order")
	require.Equal(t, Card{Shape: 1, Value: 10}, cards[0])
	require.Equal(t, Card{Shape: 3, Value: 12}, cards[2])
	require.Equal(t, 1, fake.Submits())
	require.Equal(t, 1, cache.saves)

	// cache hit with unchanged handles: no second grant transaction
	again, err := p.Reveal(context.Background(), 1, id, func(Card) {})
	require.NoError(t, err)
	require.Equal(t, cards, again)
	require.Equal(t, 1, fake.Submits())
}

func TestRevealConcurrentCallIsNoOp(t *testing.T) {
	release := make(chan struct{})
	fake := &pipeLedger{account: threeCardAccount()}
	p := newTestPipeline(fake, &scriptedDecrypt{blockOn: release}, newFakeCache())
	id := ledger.GenerateIdentity()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Reveal(context.Background(), 1, id, func(Card) {})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !p.Running(1, id.PublicKey) {
		if time.Now().After(deadline) {
			t.Fatal("pipeline never started")
		}
		time.Sleep(time.Millisecond)
	}

	cards, err := p.Reveal(context.Background(), 1, id, func(Card) {
		t.Error("re-entrant call must not reveal cards")
	})
	require.ErrorIs(t, err, ErrRevealInFlight)
	require.Empty(t, cards)
	require.Equal(t, 1, fake.Submits(), "no duplicate grant transaction")

	close(release)
	<-done
}

func TestRevealDecryptFailurePreservesPartialResult(t *testing.T) {
	fake := &pipeLedger{account: threeCardAccount()}
	cache := newFakeCache()
	// card 2's shape handle fails
	p := newTestPipeline(fake, &scriptedDecrypt{failOn: ledger.Uint128{Lo: 2}}, cache)
	id := ledger.GenerateIdentity()

	var progressive []Card
	cards, err := p.Reveal(context.Background(), 1, id, func(c Card) { progressive = append(progressive, c) })
	require.ErrorIs(t, err, ErrDecryptFailed)
	require.Len(t, cards, 1, "cards revealed before the failure are kept")
	require.Equal(t, progressive, cards)
	require.Equal(t, 0, cache.saves, "partial hands are not cached")
}

func TestRevealConfirmationTimeoutSurfaces(t *testing.T) {
	fake := &pipeLedger{account: threeCardAccount(), confirmErr: ledger.ErrConfirmationTimeout}
	p := newTestPipeline(fake, &scriptedDecrypt{}, newFakeCache())

	_, err := p.Reveal(context.Background(), 1, ledger.GenerateIdentity(), func(Card) {})
	require.ErrorIs(t, err, ledger.ErrConfirmationTimeout)
}

func TestRevealEmptyHand(t *testing.T) {
	fake := &pipeLedger{account: []byte(`{"cards":[]}`)}
	p := newTestPipeline(fake, &scriptedDecrypt{}, newFakeCache())

	_, err := p.Reveal(context.Background(), 1, ledger.GenerateIdentity(), func(Card) {})
	require.ErrorIs(t, err, ErrNoCardsAvailable)
}

func TestRevealMissingPlayerRecord(t *testing.T) {
	fake := &pipeLedger{account: nil}
	p := newTestPipeline(fake, &scriptedDecrypt{}, newFakeCache())

	_, err := p.Reveal(context.Background(), 1, ledger.GenerateIdentity(), func(Card) {})
	require.ErrorIs(t, err, ErrNoCardsAvailable)
}

package confidential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/derive"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

var (
	ErrDecryptFailed  = errors.New("decryption failed")
	ErrRevealInFlight = errors.New("reveal already in flight")
)

// CacheStore is the advisory card cache the pipeline reads through and
// writes back on success. Its absence never blocks a reveal, it only forces
// re-decryption.
type CacheStore interface {
	Load(tableID uint64, owner ledger.Address, hand []EncryptedCard) ([]Card, bool)
	Save(tableID uint64, owner ledger.Address, hand []EncryptedCard, cards []Card) error
	Clear(tableID uint64, owner ledger.Address) error
}

type Step int

const (
	StepIdle Step = iota
	StepFetchingHandles
	StepGrantingAccess
	StepAwaitingPropagation
	StepDecrypting
	StepDone
	StepFailed
)

// Pipeline drives the confidential reveal flow: fetch encrypted handles,
// grant the requesting identity read access on-chain, wait for the grant to
// propagate, then request plaintexts one card at a time.
type Pipeline struct {
	ledger    ledger.Client
	decrypt   DecryptClient
	cache     CacheStore
	programID ledger.Address

	confirmTimeout time.Duration
	settleDelay    time.Duration
	log            *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

func NewPipeline(lc ledger.Client, dc DecryptClient, cache CacheStore, programID ledger.Address, confirmTimeout, settleDelay time.Duration, log *zap.Logger) *Pipeline {
	return &Pipeline{
		ledger:         lc,
		decrypt:        dc,
		cache:          cache,
		programID:      programID,
		confirmTimeout: confirmTimeout,
		settleDelay:    settleDelay,
		log:            log.Named("pipeline"),
		running:        make(map[string]bool),
	}
}

func runKey(tableID uint64, owner ledger.Address) string {
	return fmt.Sprintf("%d|%s", tableID, owner)
}

// Running reports whether a reveal is in flight for the pair.
func (p *Pipeline) Running(tableID uint64, owner ledger.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[runKey(tableID, owner)]
}

// Reveal runs the full pipeline for the identity's hand at the table. onCard
// is invoked after each successful decrypt so the hand reveals progressively.
// A concurrent call for the same (table, identity) returns ErrRevealInFlight
// without touching the ledger; that guard is what prevents duplicate grant
// transactions when an event trigger races a refetch trigger, and the caller
// must leave its progress flags to the run that owns them.
//
// On ledger.ErrConfirmationTimeout the outcome is unknown, not failed: the
// grant may still land, and the caller should refetch rather than give up.
// On ErrDecryptFailed the cards decrypted before the failure are returned.
func (p *Pipeline) Reveal(ctx context.Context, tableID uint64, id ledger.Identity, onCard func(Card)) ([]Card, error) {
	key := runKey(tableID, id.PublicKey)
	p.mu.Lock()
	if p.running[key] {
		p.mu.Unlock()
		return nil, ErrRevealInFlight
	}
	p.running[key] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.running, key)
		p.mu.Unlock()
	}()

	// FetchingHandles
	playerAddr, err := derive.PlayerAddress(p.programID, tableID, id.PublicKey)
	if err != nil {
		return nil, err
	}
	raw, err := p.ledger.Account(ctx, playerAddr)
	if err != nil {
		return nil, fmt.Errorf("fetch player record: %w", err)
	}
	if raw == nil {
		return nil, ErrNoCardsAvailable
	}
	hand, err := ExtractHand(raw)
	if err != nil {
		return nil, err
	}

	if cached, ok := p.cache.Load(tableID, id.PublicKey, hand); ok {
		for _, c := range cached {
			onCard(c)
		}
		return cached, nil
	}

	// GrantingAccess
	if err := p.grantAccess(ctx, id, hand); err != nil {
		return nil, err
	}

	// AwaitingPropagation: a fixed settle wait, not a retry loop; the
	// confidential network needs to observe the allowance before it will
	// answer.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.settleDelay):
	}

	// Decrypting
	cards := make([]Card, 0, len(hand))
	for i, enc := range hand {
		shape, err := p.decrypt.RequestDecryption(ctx, enc.Shape, id.PublicKey, id.Sign)
		if err != nil {
			return cards, fmt.Errorf("%w: card %d shape: %v", ErrDecryptFailed, i, err)
		}
		value, err := p.decrypt.RequestDecryption(ctx, enc.Value, id.PublicKey, id.Sign)
		if err != nil {
			return cards, fmt.Errorf("%w: card %d value: %v", ErrDecryptFailed, i, err)
		}
		card := Card{Shape: uint8(shape), Value: uint8(value)}
		cards = append(cards, card)
		onCard(card)
	}

	if err := p.cache.Save(tableID, id.PublicKey, hand, cards); err != nil {
		// advisory cache, the reveal itself succeeded
		p.log.Warn("card cache save failed", zap.Error(err))
	}
	return cards, nil
}

// grantAccess submits one transaction bundling a compute-budget bump with a
// single grant instruction that lists every allowance address as an
// auxiliary account.
func (p *Pipeline) grantAccess(ctx context.Context, id ledger.Identity, hand []EncryptedCard) error {
	accounts := []ledger.AccountMeta{{Address: id.PublicKey, Signer: true}}
	for _, enc := range hand {
		for _, h := range enc.Handles() {
			addr, err := derive.AllowanceAddress(p.programID, h, id.PublicKey)
			if err != nil {
				return err
			}
			accounts = append(accounts, ledger.AccountMeta{Address: addr, Writable: true})
		}
	}

	blockhash, err := p.ledger.LatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("fetch blockhash: %w", err)
	}
	tx := ledger.NewTransaction(id.PublicKey, blockhash,
		ledger.SetComputeUnitLimit(400_000),
		ledger.Instruction{
			ProgramID: p.programID,
			Accounts:  accounts,
			Data:      []byte("grant_access"),
		},
	)
	if err := tx.Sign(id.Sign); err != nil {
		return err
	}

	sig, err := p.ledger.Submit(ctx, tx)
	if err != nil {
		return fmt.Errorf("submit grant: %w", err)
	}
	p.log.Info("access grant submitted",
		zap.String("signature", string(sig)), zap.Int("cards", len(hand)))
	return p.ledger.Confirm(ctx, sig, p.confirmTimeout)
}

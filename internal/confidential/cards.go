package confidential

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

var ErrNoCardsAvailable = errors.New("no cards in hand")

// Card is the plaintext form of one card: shape 0..3, value 0..12. It exists
// only in the requesting identity's session and is never sent to other
// clients.
type Card struct {
	Shape uint8 `json:"shape"`
	Value uint8 `json:"value"`
}

// EncryptedCard pairs the two confidential handles that compose one card.
type EncryptedCard struct {
	Shape ledger.Uint128
	Value ledger.Uint128
}

func (c EncryptedCard) Handles() []ledger.Uint128 {
	return []ledger.Uint128{c.Shape, c.Value}
}

// Fingerprint identifies an ordered hand of encrypted cards. A reshuffle
// changes the handles and therefore the fingerprint, which is what evicts
// stale cache entries.
func Fingerprint(hand []EncryptedCard) string {
	h := sha256.New()
	for _, c := range hand {
		h.Write(c.Shape.Bytes())
		h.Write(c.Value.Bytes())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// extractHandle decodes a 128-bit value from whichever wrapper shape the
// account-decoding layer produced: a decimal string, a [lo, hi] limb array,
// or a {"0": lo, "1": hi} wrapped tuple, tried in that order. Anything else
// is ErrInvalidHandle rather than a silent zero.
func extractHandle(raw json.RawMessage) (ledger.Uint128, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ledger.Uint128FromString(s)
	}
	var limbs []uint64
	if err := json.Unmarshal(raw, &limbs); err == nil && len(limbs) == 2 {
		return ledger.Uint128{Lo: limbs[0], Hi: limbs[1]}, nil
	}
	var tuple struct {
		Lo *uint64 `json:"0"`
		Hi *uint64 `json:"1"`
	}
	if err := json.Unmarshal(raw, &tuple); err == nil && tuple.Lo != nil && tuple.Hi != nil {
		return ledger.Uint128{Lo: *tuple.Lo, Hi: *tuple.Hi}, nil
	}
	return ledger.Uint128{}, ledger.ErrInvalidHandle
}

// ExtractHand reads the encrypted card list out of a player account record.
// An empty hand is ErrNoCardsAvailable.
func ExtractHand(raw []byte) ([]EncryptedCard, error) {
	var acc struct {
		Cards []struct {
			Shape json.RawMessage `json:"shape"`
			Value json.RawMessage `json:"value"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("decode player account: %w", err)
	}
	if len(acc.Cards) == 0 {
		return nil, ErrNoCardsAvailable
	}
	hand := make([]EncryptedCard, 0, len(acc.Cards))
	for i, c := range acc.Cards {
		shape, err := extractHandle(c.Shape)
		if err != nil {
			return nil, fmt.Errorf("card %d shape: %w", i, err)
		}
		value, err := extractHandle(c.Value)
		if err != nil {
			return nil, fmt.Errorf("card %d value: %w", i, err)
		}
		hand = append(hand, EncryptedCard{Shape: shape, Value: value})
	}
	return hand, nil
}

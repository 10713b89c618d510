package ledger

import (
	"encoding/binary"
	"errors"
	"math/big"
)

var ErrInvalidHandle = errors.New("invalid 128-bit handle encoding")

// Uint128 is an on-chain 128-bit unsigned value, used for confidential card
// handles. Stored as two little-endian limbs.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

func (u Uint128) IsZero() bool { return u.Lo == 0 && u.Hi == 0 }

// Bytes renders the 16-byte little-endian form used in derivation seeds.
func (u Uint128) Bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], u.Lo)
	binary.LittleEndian.PutUint64(b[8:], u.Hi)
	return b
}

func (u Uint128) String() string {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(u.Lo))
	return v.String()
}

func Uint128FromString(s string) (Uint128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 128 {
		return Uint128{}, ErrInvalidHandle
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(v, 64)
	return Uint128{Lo: lo.Uint64(), Hi: hi.Uint64()}, nil
}

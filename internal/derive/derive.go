// Package derive computes the program-derived storage addresses the on-chain
// program uses for table, player and allowance records. All derivations are
// pure functions of the seeds and the program namespace.
package derive

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

var pdaMarker = []byte("ProgramDerivedAddress")

func derive(programID ledger.Address, seeds ...[]byte) (ledger.Address, error) {
	prog, err := programID.Bytes()
	if err != nil {
		return "", ledger.ErrInvalidIdentity
	}
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(prog)
	h.Write(pdaMarker)
	return ledger.AddressFromBytes(h.Sum(nil)), nil
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// TableAddress derives the account holding the table record.
func TableAddress(programID ledger.Address, tableID uint64) (ledger.Address, error) {
	return derive(programID, []byte("table"), u64le(tableID))
}

// PlayerAddress derives the account holding one player's per-table record,
// including their encrypted hand.
func PlayerAddress(programID ledger.Address, tableID uint64, owner ledger.Address) (ledger.Address, error) {
	ob, err := owner.Bytes()
	if err != nil {
		return "", ledger.ErrInvalidIdentity
	}
	return derive(programID, []byte("player"), u64le(tableID), ob)
}

// AllowanceAddress derives the record that marks a handle as readable by the
// grantee on the confidential network.
func AllowanceAddress(programID ledger.Address, handle ledger.Uint128, grantee ledger.Address) (ledger.Address, error) {
	gb, err := grantee.Bytes()
	if err != nil {
		return "", ledger.ErrInvalidIdentity
	}
	return derive(programID, []byte("allowance"), handle.Bytes(), gb)
}

package ledger

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeBudgetProgram is the well-known program that accepts unit-limit
// adjustments ahead of the real instruction.
const ComputeBudgetProgram Address = "ComputeBudget111111111111111111111111111111"

type AccountMeta struct {
	Address  Address `json:"address"`
	Signer   bool    `json:"signer"`
	Writable bool    `json:"writable"`
}

type Instruction struct {
	ProgramID Address       `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"` // base64 in JSON
}

// SetComputeUnitLimit builds the unit-limit instruction the grant transaction
// is bundled with.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 0x02
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{ProgramID: ComputeBudgetProgram, Data: data}
}

type txMessage struct {
	FeePayer        Address       `json:"fee_payer"`
	RecentBlockhash string        `json:"recent_blockhash"`
	Instructions    []Instruction `json:"instructions"`
}

// Transaction is a signed bundle of instructions. The wire form is the
// base58-encoded JSON envelope the RPC node accepts.
type Transaction struct {
	msg txMessage
	sig []byte
}

func NewTransaction(feePayer Address, recentBlockhash string, instrs ...Instruction) *Transaction {
	return &Transaction{msg: txMessage{
		FeePayer:        feePayer,
		RecentBlockhash: recentBlockhash,
		Instructions:    instrs,
	}}
}

func (t *Transaction) Sign(sign SignFn) error {
	body, err := json.Marshal(t.msg)
	if err != nil {
		return fmt.Errorf("encode tx message: %w", err)
	}
	sig, err := sign(body)
	if err != nil {
		return fmt.Errorf("sign tx message: %w", err)
	}
	t.sig = sig
	return nil
}

func (t *Transaction) Wire() (string, error) {
	if t.sig == nil {
		return "", fmt.Errorf("transaction not signed")
	}
	env := struct {
		Message   txMessage `json:"message"`
		Signature string    `json:"signature"`
	}{t.msg, base64.StdEncoding.EncodeToString(t.sig)}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode tx envelope: %w", err)
	}
	return base58.Encode(raw), nil
}

package ledger

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"
)

var ErrInvalidIdentity = errors.New("invalid identity encoding")

// Address is a base58-encoded 32-byte account address.
type Address string

// Signature is a base58-encoded transaction signature.
type Signature string

func (a Address) Bytes() ([]byte, error) {
	b, err := base58.Decode(string(a))
	if err != nil || len(b) != 32 {
		return nil, ErrInvalidIdentity
	}
	return b, nil
}

func AddressFromBytes(b []byte) Address {
	return Address(base58.Encode(b))
}

// SignFn authorizes a message on behalf of an identity. The confidential
// network and the transaction codec both consume this shape.
type SignFn func(msg []byte) ([]byte, error)

// Identity is a keypair the session signs with. The private key never leaves
// this package.
type Identity struct {
	PublicKey Address
	priv      ed25519.PrivateKey
}

func NewIdentity(priv ed25519.PrivateKey) (Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return Identity{}, ErrInvalidIdentity
	}
	pub := priv.Public().(ed25519.PublicKey)
	return Identity{PublicKey: AddressFromBytes(pub), priv: priv}, nil
}

// IdentityFromBase58 decodes a base58-encoded 64-byte ed25519 private key.
func IdentityFromBase58(s string) (Identity, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		return Identity{}, ErrInvalidIdentity
	}
	return NewIdentity(ed25519.PrivateKey(raw))
}

func GenerateIdentity() Identity {
	_, priv, _ := ed25519.GenerateKey(nil)
	id, _ := NewIdentity(priv)
	return id
}

func (id Identity) Sign(msg []byte) ([]byte, error) {
	if id.priv == nil {
		return nil, ErrInvalidIdentity
	}
	return ed25519.Sign(id.priv, msg), nil
}

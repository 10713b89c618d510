package confidential

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

// DecryptClient is the confidential-compute collaborator: given a handle the
// caller holds an allowance for, it returns the plaintext. Requests are made
// one handle at a time so the hand can reveal progressively.
type DecryptClient interface {
	RequestDecryption(ctx context.Context, handle ledger.Uint128, identity ledger.Address, sign ledger.SignFn) (uint64, error)
}

type mpcClient struct {
	url  string
	http *http.Client
}

func NewDecryptClient(url string) DecryptClient {
	return &mpcClient{url: url, http: &http.Client{Timeout: 20 * time.Second}}
}

func (c *mpcClient) RequestDecryption(ctx context.Context, handle ledger.Uint128, identity ledger.Address, sign ledger.SignFn) (uint64, error) {
	// the network authorizes the request by the identity's signature over the
	// handle it wants opened
	sig, err := sign([]byte(handle.String()))
	if err != nil {
		return 0, fmt.Errorf("authorize decryption: %w", err)
	}
	body, err := json.Marshal(map[string]any{
		"handle":    handle.String(),
		"identity":  string(identity),
		"signature": base64.StdEncoding.EncodeToString(sig),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/decrypt", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("decrypt request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("decrypt request: status %d", resp.StatusCode)
	}

	var out struct {
		Plaintext uint64 `json:"plaintext"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode decrypt response: %w", err)
	}
	return out.Plaintext, nil
}

package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	ErrConfirmationTimeout = errors.New("confirmation deadline exceeded")
	ErrSubmissionFailed    = errors.New("transaction rejected")
)

// SignatureInfo is one row of a recent-signatures listing, newest first on
// the wire.
type SignatureInfo struct {
	Signature Signature
	Slot      uint64
	Failed    bool
}

// TransactionDetail is the subset of a fetched transaction the event layer
// cares about.
type TransactionDetail struct {
	LogLines []string
	Success  bool
}

// Client is the ledger RPC surface the rest of the process consumes. Every
// call is a suspension point; implementations must be safe for concurrent use.
type Client interface {
	RecentSignatures(ctx context.Context, addr Address, until Signature, limit int) ([]SignatureInfo, error)
	Transaction(ctx context.Context, sig Signature) (TransactionDetail, error)
	Account(ctx context.Context, addr Address) ([]byte, error)
	LatestBlockhash(ctx context.Context) (string, error)
	Submit(ctx context.Context, tx *Transaction) (Signature, error)
	Confirm(ctx context.Context, sig Signature, timeout time.Duration) error
	Liveness(ctx context.Context) error
}

type rpcClient struct {
	url     string
	http    *http.Client
	nextID  atomic.Uint64
	retries int
}

func NewClient(url string) Client {
	return &rpcClient{
		url:     url,
		http:    &http.Client{Timeout: 15 * time.Second},
		retries: 3,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func (c *rpcClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *rpcClient) RecentSignatures(ctx context.Context, addr Address, until Signature, limit int) ([]SignatureInfo, error) {
	opts := map[string]any{"limit": limit}
	if until != "" {
		opts["until"] = string(until)
	}
	var rows []struct {
		Signature string          `json:"signature"`
		Slot      uint64          `json:"slot"`
		Err       json.RawMessage `json:"err"`
	}
	if err := c.call(ctx, "getSignaturesForAddress", []any{string(addr), opts}, &rows); err != nil {
		return nil, err
	}
	out := make([]SignatureInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, SignatureInfo{
			Signature: Signature(r.Signature),
			Slot:      r.Slot,
			Failed:    len(r.Err) > 0 && string(r.Err) != "null",
		})
	}
	return out, nil
}

func (c *rpcClient) Transaction(ctx context.Context, sig Signature) (TransactionDetail, error) {
	var res struct {
		Meta struct {
			Err         json.RawMessage `json:"err"`
			LogMessages []string        `json:"logMessages"`
		} `json:"meta"`
	}
	if err := c.call(ctx, "getTransaction", []any{string(sig), map[string]any{"encoding": "json"}}, &res); err != nil {
		return TransactionDetail{}, err
	}
	return TransactionDetail{
		LogLines: res.Meta.LogMessages,
		Success:  len(res.Meta.Err) == 0 || string(res.Meta.Err) == "null",
	}, nil
}

func (c *rpcClient) Account(ctx context.Context, addr Address) ([]byte, error) {
	var res struct {
		Value *struct {
			Data []string `json:"data"` // [payload, encoding]
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", []any{string(addr), map[string]any{"encoding": "base64"}}, &res); err != nil {
		return nil, err
	}
	if res.Value == nil || len(res.Value.Data) == 0 {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(res.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return raw, nil
}

func (c *rpcClient) LatestBlockhash(ctx context.Context) (string, error) {
	var res struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &res); err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

func (c *rpcClient) Submit(ctx context.Context, tx *Transaction) (Signature, error) {
	wire, err := tx.Wire()
	if err != nil {
		return "", err
	}
	var sig string
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		lastErr = c.call(ctx, "sendTransaction", []any{wire, map[string]any{"maxRetries": 0}}, &sig)
		if lastErr == nil {
			return Signature(sig), nil
		}
		var rerr *rpcError
		if errors.As(lastErr, &rerr) {
			// node rejected it outright, retrying the same bytes is pointless
			return "", fmt.Errorf("%w: %s", ErrSubmissionFailed, rerr.Message)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return "", lastErr
}

func (c *rpcClient) Confirm(ctx context.Context, sig Signature, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var res struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		err := c.call(ctx, "getSignatureStatuses", []any{[]string{string(sig)}}, &res)
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if len(st.Err) > 0 && string(st.Err) != "null" {
				return fmt.Errorf("%w: failed on chain", ErrSubmissionFailed)
			}
			if st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized" {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return ErrConfirmationTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (c *rpcClient) Liveness(ctx context.Context) error {
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("node health: %s", status)
	}
	return nil
}

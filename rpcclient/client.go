// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package rpcclient implements the JSON-RPC contract of spec §6.1 against a
// zcashd-compatible node: getblocktemplate, submitblock, and the status calls the
// control loop needs to detect disconnects and report progress.
package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cryptonote-social/rxminer/blockchain"
	"github.com/cryptonote-social/rxminer/crylog"
)

// RpcError wraps a failed RPC call. The control loop counts consecutive
// RpcErrors to decide when to tear down a mining session and reconnect (§7).
type RpcError struct {
	Method string
	Err    error
}

func (e *RpcError) Error() string {
	return "rpc " + e.Method + " failed: " + e.Err.Error()
}

func (e *RpcError) Unwrap() error {
	return e.Err
}

// BlockchainInfo mirrors the fields of getblockchaininfo this miner cares about.
type BlockchainInfo struct {
	Chain  string `json:"chain"`
	Blocks uint32 `json:"blocks"`
}

// MiningInfo mirrors the fields of getmininginfo used for status display.
type MiningInfo struct {
	NetworkSolPS float64 `json:"networksolps"`
	Difficulty   float64 `json:"difficulty"`
}

// WalletInfo mirrors the subset of getwalletinfo used for status
// display; skipped entirely when --no-balance is set.
type WalletInfo struct {
	Balance float64 `json:"balance"`
}

// Client is a JSON-RPC 1.0 client with HTTP Basic auth, per §6.1.
type Client struct {
	url, user, password string
	httpClient          *http.Client
	nextID              uint64

	consecutiveFailures atomic.Int32
}

// New creates a Client targeting urlString, authenticating with user/password
// (either may be empty if the node doesn't require auth).
func New(urlString, user, password string) *Client {
	return &Client{
		url:      urlString,
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ConsecutiveFailures returns the number of RPC calls that have failed in a row
// since the last success, used by the control loop's §7 disconnect policy.
func (c *Client) ConsecutiveFailures() int32 {
	return c.consecutiveFailures.Load()
}

func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	req := &blockchain.JSONRequest{
		Method: method,
		Params: params,
		ID:     atomic.AddUint64(&c.nextID, 1),
	}
	if err := blockchain.DoJSONRPC(ctx, c.httpClient, c.url, c.user, c.password, req, result); err != nil {
		c.consecutiveFailures.Add(1)
		return &RpcError{Method: method, Err: err}
	}
	c.consecutiveFailures.Store(0)
	return nil
}

// GetBlockTemplate fetches a new block template via getblocktemplate and parses
// it with blockchain.ParseBlockTemplate.
func (c *Client) GetBlockTemplate(ctx context.Context) (*blockchain.BlockTemplate, error) {
	params := []interface{}{
		map[string]interface{}{
			"capabilities": []string{"coinbasetxn", "workid", "coinbase/append"},
		},
	}
	var resp blockchain.TemplateResponse
	if err := c.call(ctx, "getblocktemplate", params, &resp); err != nil {
		return nil, err
	}
	return blockchain.ParseBlockTemplate(&resp)
}

// SubmitBlock submits hexBlock (the output of blockchain.SerializeBlock) via
// submitblock. Per §6.2, null/"duplicate"/"inconclusive"/"duplicate-inconclusive"
// are all treated as success; any other status is a SubmissionRejected.
func (c *Client) SubmitBlock(ctx context.Context, hexBlock string) error {
	params := []interface{}{hexBlock}
	var raw json.RawMessage
	if err := c.call(ctx, "submitblock", params, &raw); err != nil {
		return err
	}

	// json.Unmarshal leaves status at its zero value ("") for a JSON null body
	// without erroring, so the null and "" cases collapse together below.
	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		return &blockchain.SubmissionRejected{Status: string(raw)}
	}

	switch status {
	case "", "duplicate", "inconclusive", "duplicate-inconclusive":
		return nil
	default:
		return &blockchain.SubmissionRejected{Status: status}
	}
}

// GetBlockchainInfo calls getblockchaininfo for tip-height tracking.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	var info BlockchainInfo
	if err := c.call(ctx, "getblockchaininfo", []interface{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetMiningInfo calls getmininginfo for network hashrate/difficulty display.
func (c *Client) GetMiningInfo(ctx context.Context) (*MiningInfo, error) {
	var info MiningInfo
	if err := c.call(ctx, "getmininginfo", []interface{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetWalletInfo calls getwalletinfo for the miner's balance display.
// Callers should skip this entirely when --no-balance is set.
func (c *Client) GetWalletInfo(ctx context.Context) (*WalletInfo, error) {
	var info WalletInfo
	if err := c.call(ctx, "getwalletinfo", []interface{}{}, &info); err != nil {
		crylog.Warn("failed to fetch wallet balance:", err)
		return nil, err
	}
	return &info, nil
}

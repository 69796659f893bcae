// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type rpcEnvelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     uint64          `json:"id"`
}

func newServer(t *testing.T, handler func(method string) (result interface{}, rpcErr *struct {
	Code    int
	Message string
})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env rpcEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Fatalf("server failed to decode request: %v", err)
		}
		result, rpcErr := handler(env.Method)
		resp := map[string]interface{}{"id": env.ID}
		if rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": rpcErr.Code, "message": rpcErr.Message}
			resp["result"] = nil
		} else {
			resp["error"] = nil
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("server failed to encode response: %v", err)
		}
	}))
}

func TestGetBlockchainInfo(t *testing.T) {
	srv := newServer(t, func(method string) (interface{}, *struct {
		Code    int
		Message string
	}) {
		if method != "getblockchaininfo" {
			t.Errorf("unexpected method %q", method)
		}
		return map[string]interface{}{"chain": "main", "blocks": 1583}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "user", "pass")
	info, err := c.GetBlockchainInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBlockchainInfo: %v", err)
	}
	if info.Chain != "main" || info.Blocks != 1583 {
		t.Errorf("got %+v", info)
	}
	if c.ConsecutiveFailures() != 0 {
		t.Errorf("expected 0 consecutive failures after success, got %d", c.ConsecutiveFailures())
	}
}

func TestSubmitBlock_AcceptedOutcomes(t *testing.T) {
	for _, status := range []string{"", "duplicate", "inconclusive", "duplicate-inconclusive"} {
		status := status
		t.Run(status, func(t *testing.T) {
			srv := newServer(t, func(method string) (interface{}, *struct {
				Code    int
				Message string
			}) {
				if status == "" {
					return nil, nil
				}
				return status, nil
			})
			defer srv.Close()

			c := New(srv.URL, "", "")
			if err := c.SubmitBlock(context.Background(), "deadbeef"); err != nil {
				t.Errorf("SubmitBlock() = %v, want nil for status %q", err, status)
			}
		})
	}
}

func TestSubmitBlock_Rejected(t *testing.T) {
	srv := newServer(t, func(method string) (interface{}, *struct {
		Code    int
		Message string
	}) {
		return "rejected", nil
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	err := c.SubmitBlock(context.Background(), "deadbeef")
	if err == nil {
		t.Fatal("expected SubmissionRejected, got nil")
	}
}

func TestConsecutiveFailures(t *testing.T) {
	srv := newServer(t, func(method string) (interface{}, *struct {
		Code    int
		Message string
	}) {
		return nil, &struct {
			Code    int
			Message string
		}{Code: -1, Message: "boom"}
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	for i := 1; i <= 3; i++ {
		if _, err := c.GetBlockchainInfo(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if got := c.ConsecutiveFailures(); got != int32(i) {
			t.Errorf("after %d failing calls, ConsecutiveFailures() = %d, want %d", i, got, i)
		}
	}
}

func TestGetWalletInfo(t *testing.T) {
	srv := newServer(t, func(method string) (interface{}, *struct {
		Code    int
		Message string
	}) {
		return map[string]interface{}{"balance": 1.5}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	info, err := c.GetWalletInfo(context.Background())
	if err != nil {
		t.Fatalf("GetWalletInfo: %v", err)
	}
	if info.Balance != 1.5 {
		t.Errorf("got balance %v, want 1.5", info.Balance)
	}
}

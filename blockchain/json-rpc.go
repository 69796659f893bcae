// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

// blockchain/json-rpc.go supports making json rpc calls to the node (§6.1: JSON-RPC
// 1.0 over HTTP POST with HTTP Basic auth).

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cryptonote-social/rxminer/crylog"
)

type JSONRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type JSONResponse struct {
	ID uint64
	// Result is left as a nil/zero-length json.RawMessage when the "result" key is
	// absent from the response (a malformed reply), but is a non-nil 4-byte "null"
	// when the key is present and its value is a literal JSON null (e.g. a
	// submitblock success) — encoding/json never invokes RawMessage.UnmarshalJSON
	// for an absent key, only for a present one, so the two cases are
	// distinguishable by nilness rather than both collapsing to "nil".
	Result json.RawMessage
	Error  *JSONError
}

type JSONError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DoJSONRPC issues a JSON-RPC 1.0 call with HTTP Basic auth and decodes the result
// field into result. user/password may be empty if the node doesn't require auth.
func DoJSONRPC(ctx context.Context, client *http.Client, urlString, user, password string, jReq *JSONRequest, result interface{}) error {
	jReq.Jsonrpc = "1.0"
	data, err := json.Marshal(jReq)
	if err != nil {
		crylog.Error("couldn't marshal json:", err)
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, urlString, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if user != "" || password != "" {
		httpReq.SetBasicAuth(user, password)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		crylog.Error("post failed:", err)
		return err
	}
	body, err := io.ReadAll(resp.Body)
	if err2 := resp.Body.Close(); err2 != nil {
		crylog.Error("failed to close body:", err2)
	}
	if err != nil {
		return err
	}

	var jResp JSONResponse
	if err := json.Unmarshal(body, &jResp); err != nil {
		crylog.Error("failed to decode json response:", err, "body:", string(body))
		return err
	}
	if jResp.Error != nil {
		return fmt.Errorf("json response error %v with message: %v", jResp.Error.Code, jResp.Error.Message)
	}
	if jResp.Result == nil {
		return fmt.Errorf("JSONResponse.Result key was absent from the response")
	}
	if err := json.Unmarshal(jResp.Result, result); err != nil {
		crylog.Error("failed to unmarshal json result:", err, "::", string(jResp.Result))
		return err
	}
	return nil
}

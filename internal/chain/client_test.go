package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainacademy_backend/internal/config"
	"chainacademy_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWallet = "0x1111111111111111111111111111111111111111"

func newTestClient(t *testing.T, rpcURL string) *Client {
	t.Helper()
	logger.Log = zap.NewNop()
	return NewClient(config.ChainConfig{
		RPCURL:          rpcURL,
		ContractAddress: "0x2222222222222222222222222222222222222222",
		RequestTimeout:  0,
	})
}

// abiResult encodes (bool, uint8) the way eth_call returns it.
func abiResult(eligible bool, code uint8) string {
	out := make([]byte, 64)
	if eligible {
		out[31] = 1
	}
	out[63] = code
	return "0x" + hex.EncodeToString(out)
}

func TestRefundEligibilityEligible(t *testing.T) {
	var gotData string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_call", req.Method)

		params := req.Params[0].(map[string]interface{})
		gotData = params["data"].(string)

		json.NewEncoder(w).Encode(rpcResponse{Result: abiResult(true, 0)})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	elig, err := client.RefundEligibility(context.Background(), testWallet, 7)
	require.NoError(t, err)

	assert.True(t, elig.Eligible)
	assert.Equal(t, uint8(0), elig.ReasonCode)
	assert.Equal(t, "eligible", elig.Reason)

	// selector (4 bytes) + two 32-byte words
	raw, err := hex.DecodeString(strings.TrimPrefix(gotData, "0x"))
	require.NoError(t, err)
	require.Len(t, raw, 68)
	// address is left-padded into the first word
	assert.Equal(t, strings.TrimPrefix(testWallet, "0x"), hex.EncodeToString(raw[16:36]))
	// course id is the last byte of the second word
	assert.Equal(t, byte(7), raw[67])
}

func TestRefundEligibilityNotEligible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rpcResponse{Result: abiResult(false, 2)})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	elig, err := client.RefundEligibility(context.Background(), testWallet, 1)
	require.NoError(t, err)

	assert.False(t, elig.Eligible)
	assert.Equal(t, uint8(2), elig.ReasonCode)
	assert.Equal(t, "course not completed", elig.Reason)
}

func TestRefundEligibilityRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rpcResponse{Error: &rpcError{Code: -32000, Message: "execution reverted"}})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.RefundEligibility(context.Background(), testWallet, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestRefundEligibilityBadWallet(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.RefundEligibility(context.Background(), "not-an-address", 1)
	require.Error(t, err)
}

func TestRefundEligibilityShortResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rpcResponse{Result: "0x01"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.RefundEligibility(context.Background(), testWallet, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestDecodeEligibilityUnknownReason(t *testing.T) {
	elig, err := decodeEligibility(abiResult(false, 99))
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, "unknown reason 99", elig.Reason)
}

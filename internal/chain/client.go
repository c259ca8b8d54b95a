package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chainacademy_backend/internal/config"
	"chainacademy_backend/pkg/logger"
	"chainacademy_backend/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// Eligibility is the contract's view of a student's refund standing.
type Eligibility struct {
	Eligible   bool   `json:"eligible"`
	ReasonCode uint8  `json:"reasonCode"`
	Reason     string `json:"reason"`
}

var reasonStrings = map[uint8]string{
	0: "eligible",
	1: "no stake recorded",
	2: "course not completed",
	3: "claim window closed",
	4: "refund already claimed",
}

func reasonString(code uint8) string {
	if s, ok := reasonStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown reason %d", code)
}

// Client reads refund eligibility from the staking contract over JSON-RPC.
type Client struct {
	rpcURL   string
	contract string
	selector []byte
	http     *http.Client
}

func NewClient(cfg config.ChainConfig) *Client {
	return &Client{
		rpcURL:   cfg.RPCURL,
		contract: cfg.ContractAddress,
		selector: methodSelector("refundEligibility(address,uint256)"),
		http:     &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func methodSelector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeWord left-pads data into a 32 byte ABI word.
func encodeWord(data []byte) []byte {
	word := make([]byte, 32)
	copy(word[32-len(data):], data)
	return word
}

func (c *Client) callData(wallet string, courseID uint) (string, error) {
	addr := strings.TrimPrefix(strings.ToLower(wallet), "0x")
	addrBytes, err := hex.DecodeString(addr)
	if err != nil || len(addrBytes) != 20 {
		return "", fmt.Errorf("invalid wallet address %q", wallet)
	}
	idBytes := []byte{
		byte(courseID >> 24), byte(courseID >> 16), byte(courseID >> 8), byte(courseID),
	}
	var buf bytes.Buffer
	buf.Write(c.selector)
	buf.Write(encodeWord(addrBytes))
	buf.Write(encodeWord(idBytes))
	return "0x" + hex.EncodeToString(buf.Bytes()), nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

// RefundEligibility performs an eth_call against the staking contract and
// decodes its (bool eligible, uint8 reasonCode) return.
func (c *Client) RefundEligibility(ctx context.Context, wallet string, courseID uint) (*Eligibility, error) {
	data, err := c.callData(wallet, courseID)
	if err != nil {
		return nil, err
	}

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_call",
		Params: []interface{}{
			map[string]string{"to": c.contract, "data": data},
			"latest",
		},
		ID: 1,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.ChainCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chain rpc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.ChainCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chain rpc status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		monitoring.ChainCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chain rpc decode: %w", err)
	}
	if rpcResp.Error != nil {
		monitoring.ChainCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chain rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	elig, err := decodeEligibility(rpcResp.Result)
	if err != nil {
		monitoring.ChainCalls.WithLabelValues("error").Inc()
		return nil, err
	}
	monitoring.ChainCalls.WithLabelValues("ok").Inc()
	logger.Log.Debug("chain eligibility read",
		zap.String("wallet", wallet),
		zap.Uint("courseId", courseID),
		zap.Bool("eligible", elig.Eligible),
		zap.Uint8("reasonCode", elig.ReasonCode))
	return elig, nil
}

func decodeEligibility(result string) (*Eligibility, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(result, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain result decode: %w", err)
	}
	if len(raw) < 64 {
		return nil, fmt.Errorf("chain result too short: %d bytes", len(raw))
	}
	eligible := raw[31] == 1
	code := raw[63]
	return &Eligibility{
		Eligible:   eligible,
		ReasonCode: code,
		Reason:     reasonString(code),
	}, nil
}

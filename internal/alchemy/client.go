// Package alchemy implements the transfer-history provider client.
package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
)

// maxPageSize is the provider's per-page transfer cap, as a hex string.
const maxPageSize = "0x3e8"

// Client fetches asset transfer history over the provider's JSON-RPC
// API. It implements service.TransferSource.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string // overrides the per-chain URL when set, used in tests
}

// NewClient creates a transfer-history client.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: alchemy API key not configured", common.ErrMissingConfig)
	}

	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// NewClientWithBaseURL creates a client pinned to a fixed endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) (*Client, error) {
	c, err := NewClient(apiKey)
	if err != nil {
		return nil, err
	}
	c.baseURL = baseURL
	return c, nil
}

// JSON-RPC request/response types.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type transferParams struct {
	FromBlock    string   `json:"fromBlock"`
	ToBlock      string   `json:"toBlock"`
	FromAddress  string   `json:"fromAddress,omitempty"`
	ToAddress    string   `json:"toAddress,omitempty"`
	Category     []string `json:"category"`
	WithMetadata bool     `json:"withMetadata"`
	MaxCount     string   `json:"maxCount"`
	PageKey      string   `json:"pageKey,omitempty"`
}

type rpcResponse struct {
	Error  *rpcError       `json:"error"`
	Result *transferResult `json:"result"`
}

type rpcError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type transferResult struct {
	PageKey   string        `json:"pageKey"`
	Transfers []rawTransfer `json:"transfers"`
}

type rawTransfer struct {
	UniqueID    string   `json:"uniqueId"`
	Hash        string   `json:"hash"`
	BlockNum    string   `json:"blockNum"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Value       *float64 `json:"value"`
	Asset       string   `json:"asset"`
	Category    string   `json:"category"`
	RawContract struct {
		Address string `json:"address"`
	} `json:"rawContract"`
	Metadata struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata"`
}

// GetOutgoingTransfers fetches every transfer sent by the address.
func (c *Client) GetOutgoingTransfers(ctx context.Context, address, chain string) ([]model.RawTransfer, error) {
	return c.getTransfers(ctx, chain, transferParams{FromAddress: address})
}

// GetIncomingTransfers fetches every transfer received by the address.
func (c *Client) GetIncomingTransfers(ctx context.Context, address, chain string) ([]model.RawTransfer, error) {
	return c.getTransfers(ctx, chain, transferParams{ToAddress: address})
}

func (c *Client) getTransfers(ctx context.Context, chain string, params transferParams) ([]model.RawTransfer, error) {
	params.FromBlock = "0x0"
	params.ToBlock = "latest"
	params.Category = []string{"external", "internal", "erc20", "erc721", "erc1155", "specialnft"}
	params.WithMetadata = true
	params.MaxCount = maxPageSize

	var transfers []model.RawTransfer
	for page := 0; ; page++ {
		var result *transferResult
		err := common.WithRetry(ctx, func() error {
			var fetchErr error
			result, fetchErr = c.fetchPage(ctx, chain, params)
			return fetchErr
		}, common.RetryOptions{MaxAttempts: 3})
		if err != nil {
			return nil, err
		}

		for _, t := range result.Transfers {
			converted, convErr := convertTransfer(t)
			if convErr != nil {
				slog.Warn("Skipping malformed transfer record",
					"hash", t.Hash,
					"error", convErr)
				continue
			}
			transfers = append(transfers, converted)
		}

		if result.PageKey == "" {
			break
		}
		params.PageKey = result.PageKey
		slog.Debug("Fetching next transfer page", "page", page+1, "chain", chain)
	}

	return transfers, nil
}

func (c *Client) fetchPage(ctx context.Context, chain string, params transferParams) (*transferResult, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "alchemy_getAssetTransfers",
		Params:  []any{params},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(chain), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d - %s", common.ErrUpstreamUnavailable, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: rpc error %d: %s", common.ErrUpstreamUnavailable, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("%w: empty result", common.ErrUpstreamUnavailable)
	}

	return rpcResp.Result, nil
}

func (c *Client) endpoint(chain string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", chain, c.apiKey)
}

func convertTransfer(t rawTransfer) (model.RawTransfer, error) {
	blockNumber, err := parseHexBlock(t.BlockNum)
	if err != nil {
		return model.RawTransfer{}, err
	}

	timestamp, err := time.Parse(time.RFC3339, t.Metadata.BlockTimestamp)
	if err != nil {
		return model.RawTransfer{}, fmt.Errorf("bad block timestamp %q: %w", t.Metadata.BlockTimestamp, err)
	}

	var amount *decimal.Decimal
	if t.Value != nil {
		d := decimal.NewFromFloat(*t.Value)
		amount = &d
	}

	return model.RawTransfer{
		UniqueID:        t.UniqueID,
		Hash:            t.Hash,
		BlockNumber:     blockNumber,
		BlockTimestamp:  timestamp,
		From:            t.From,
		To:              t.To,
		ContractAddress: t.RawContract.Address,
		Symbol:          t.Asset,
		Category:        model.TransferCategory(t.Category),
		Amount:          amount,
	}, nil
}

func parseHexBlock(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad block number %q: %w", s, err)
	}
	return n, nil
}

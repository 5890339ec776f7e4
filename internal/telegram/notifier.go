// Package telegram delivers review notifications through the Telegram
// bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
)

// Notifier sends flagged-transaction messages to a chat. It implements
// service.Notifier.
type Notifier struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	chatID     string
}

// NewNotifier creates a Telegram notifier.
func NewNotifier(botToken, chatID string) (*Notifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("%w: telegram bot token not configured", common.ErrMissingConfig)
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: telegram chat ID not configured", common.ErrMissingConfig)
	}

	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// NewNotifierWithBaseURL creates a notifier pinned to a fixed endpoint.
func NewNotifierWithBaseURL(botToken, chatID, baseURL string) (*Notifier, error) {
	n, err := NewNotifier(botToken, chatID)
	if err != nil {
		return nil, err
	}
	n.baseURL = baseURL
	return n, nil
}

// NotifyReview sends one detailed message for a flagged transaction.
func (n *Notifier) NotifyReview(ctx context.Context, wallet *model.Wallet, txn *model.Transaction) error {
	return n.send(ctx, formatReview(wallet, txn))
}

// NotifyReviewSummary sends the rollup message for flagged transactions
// beyond the per-batch detail cap.
func (n *Notifier) NotifyReviewSummary(ctx context.Context, wallet *model.Wallet, remaining int) error {
	msg := fmt.Sprintf("…and %d more transactions on %s need review.", remaining, wallet.Chain)
	return n.send(ctx, msg)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: %d - %s", resp.StatusCode, string(body))
	}

	return nil
}

// formatReview renders the human-readable review message: chain,
// truncated hash, date, and whichever token legs the transaction has.
func formatReview(wallet *model.Wallet, txn *model.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction needs review\n")
	fmt.Fprintf(&b, "Chain: %s\n", txn.Chain)
	fmt.Fprintf(&b, "Tx: %s\n", truncateHash(txn.Hash))
	fmt.Fprintf(&b, "Date: %s\n", txn.Timestamp.Format("2006-01-02 15:04"))
	if txn.HasInbound() {
		fmt.Fprintf(&b, "In: %s %s\n", txn.InboundAmount.String(), txn.InboundSymbol)
	}
	if txn.HasOutbound() {
		fmt.Fprintf(&b, "Out: %s %s\n", txn.OutboundAmount.String(), txn.OutboundSymbol)
	}
	fmt.Fprintf(&b, "Classified: %s (wallet %s)", txn.Classification, wallet.Label)
	return b.String()
}

func truncateHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-6:]
}

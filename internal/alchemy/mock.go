package alchemy

import (
	"context"

	"github.com/chaintally/chaintally/internal/model"
)

// MockClient is a test double for the transfer source.
type MockClient struct {
	Err      error
	Outgoing []model.RawTransfer
	Incoming []model.RawTransfer
}

// GetOutgoingTransfers returns the configured outgoing transfers.
func (m *MockClient) GetOutgoingTransfers(_ context.Context, _, _ string) ([]model.RawTransfer, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Outgoing, nil
}

// GetIncomingTransfers returns the configured incoming transfers.
func (m *MockClient) GetIncomingTransfers(_ context.Context, _, _ string) ([]model.RawTransfer, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Incoming, nil
}

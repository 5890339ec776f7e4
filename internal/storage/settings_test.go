package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintally/chaintally/internal/model"
)

func TestSettingsDefaults(t *testing.T) {
	s := newTestStorage(t)

	settings, err := s.GetSettings(context.Background())
	require.NoError(t, err)

	// The migration seeds the singleton with defaults.
	assert.Equal(t, model.MethodFIFO, settings.CostBasisMethod)
	assert.True(t, settings.DustThresholdUsd.Equal(decimal.NewFromInt(1)))
	assert.Zero(t, settings.TaxYear)
	assert.False(t, settings.HideDust)
	assert.True(t, settings.HideSpam)
}

func TestSaveSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)

	settings.CostBasisMethod = model.MethodHIFO
	settings.DustThresholdUsd = decimal.RequireFromString("2.50")
	settings.TaxYear = 2024
	settings.HideDust = true
	require.NoError(t, s.SaveSettings(ctx, settings))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.MethodHIFO, got.CostBasisMethod)
	assert.True(t, got.DustThresholdUsd.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, 2024, got.TaxYear)
	assert.True(t, got.HideDust)
}

func TestSaveSettingsValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	err := s.SaveSettings(ctx, &model.Settings{CostBasisMethod: "average"})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	err = s.SaveSettings(ctx, &model.Settings{
		CostBasisMethod:  model.MethodFIFO,
		DustThresholdUsd: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

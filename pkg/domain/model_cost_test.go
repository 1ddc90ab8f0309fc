package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostTablePrice(t *testing.T) {
	table := DefaultCostTable()

	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             float64
	}{
		{"gpt-4-turbo", "gpt-4-turbo", 1000, 1000, 0.04},
		{"gpt-3.5 small", "gpt-3.5-turbo-0125", 1000, 1000, 0.0},
		{"gpt-4 heavy", "gpt-4", 10000, 2000, 0.42},
		{"zero tokens", "gpt-4-turbo", 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Price(tt.model, tt.promptTokens, tt.completionTokens)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestCostTablePriceUnknownModel(t *testing.T) {
	_, err := DefaultCostTable().Price("gpt-42", 100, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
}

// Prices must accumulate additively across rounds: computing the price of
// summed token counts matches the sum of per-round prices within rounding.
func TestCostTablePriceAdditive(t *testing.T) {
	table := DefaultCostTable()

	rounds := []struct{ prompt, completion int }{
		{1200, 340},
		{5000, 900},
		{777, 42},
	}

	var sumPrompt, sumCompletion int
	var sumPrice float64
	for _, r := range rounds {
		p, err := table.Price("gpt-4-turbo", r.prompt, r.completion)
		require.NoError(t, err)
		sumPrice += p
		sumPrompt += r.prompt
		sumCompletion += r.completion
	}

	total, err := table.Price("gpt-4-turbo", sumPrompt, sumCompletion)
	require.NoError(t, err)

	// each rounding step may move the result by at most half a cent
	assert.InDelta(t, total, sumPrice, 0.005*float64(len(rounds)+1))
}

func TestCostTableValidate(t *testing.T) {
	table := DefaultCostTable()

	require.NoError(t, table.Validate(SupportedModels))
	require.Error(t, table.Validate([]string{"gpt-3.5-turbo", "made-up-model"}))
}

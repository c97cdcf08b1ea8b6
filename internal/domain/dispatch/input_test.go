package dispatch

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "75.50", want: "75.5"},
		{in: " 100 ", want: "100"},
		{in: "0.01", want: "0.01"},
		{in: "1.50000", want: "1.5"},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "", wantErr: true},
		{in: "12abc", wantErr: true},
		{in: "0.001", wantErr: true},
		{in: "10000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestNormalizeScenario(t *testing.T) {
	got, err := NormalizeScenario("\n fix the sink \t")
	require.NoError(t, err)
	assert.Equal(t, "fix the sink", got)

	_, err = NormalizeScenario(strings.Repeat("x", maxScenarioLength+1))
	assert.True(t, IsValidation(err))

	_, err = NormalizeScenario(strings.Repeat("é", maxScenarioLength))
	assert.NoError(t, err)
}

func TestFormatLocation(t *testing.T) {
	got, err := FormatLocation(-33.5, 151)
	require.NoError(t, err)
	assert.Equal(t, "-33.5,151", got)

	_, err = FormatLocation(math.NaN(), 0)
	assert.True(t, IsValidation(err))
}

func TestNormalizeAvailability(t *testing.T) {
	tests := map[string]string{
		"ready":                StatusReady,
		"BREAK":                StatusBreak,
		"Ready to Take Orders": StatusReady,
		" taking a break ":     StatusBreak,
	}
	for in, want := range tests {
		got, err := NormalizeAvailability(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeAvailability("Is working now for Client")
	assert.True(t, IsValidation(err))
}

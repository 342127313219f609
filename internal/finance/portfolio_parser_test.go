package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptimizeCommand(t *testing.T) {
	tests := []struct {
		input string
		want  OptimizeArgs
	}{
		{"/optimize SPY TLT", OptimizeArgs{Tickers: []string{"SPY", "TLT"}}},
		{"/optimize spy tlt gld 5000 3Y", OptimizeArgs{Tickers: []string{"SPY", "TLT", "GLD"}, Trials: 5000, Window: "3y"}},
		{"/optimize@PortfolioBot 90d BRK.B ^GSPC spy SPY", OptimizeArgs{Tickers: []string{"BRK.B", "^GSPC", "SPY"}, Window: "90d"}},
		{"SPY EURUSD=X", OptimizeArgs{Tickers: []string{"SPY", "EURUSD=X"}}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseOptimizeCommand(tc.input, 50000)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseOptimizeCommandErrors(t *testing.T) {
	for _, input := range []string{
		"/optimize",
		"/optimize SPY",
		"/optimize SPY spy",
		"/optimize SPY TLT 0",
		"/optimize SPY TLT 50001",
		"/optimize SPY TLT 1y 2y",
		"/optimize SPY T*LT",
	} {
		_, err := ParseOptimizeCommand(input, 50000)
		assert.Error(t, err, input)
	}
}

package exchange

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIsDeterministicHex(t *testing.T) {
	query := "symbol=BTCUSDT&side=BUY&type=MARKET&quantity=0.001&timestamp=1234567890"

	sig := sign("test_secret_key", query)
	assert.Len(t, sig, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), sig)

	assert.Equal(t, sig, sign("test_secret_key", query))
	assert.NotEqual(t, sig, sign("other_secret", query))
	assert.NotEqual(t, sig, sign("test_secret_key", query+"x"))
}

func TestBuildSignedQuery(t *testing.T) {
	now := time.UnixMilli(1234567890000)
	params := []param{
		{"symbol", "BTCUSDT"},
		{"side", "BUY"},
		{"type", "MARKET"},
		{"quantity", "0.001"},
	}

	query := buildSignedQuery(params, "secret", now)

	want := "symbol=BTCUSDT&side=BUY&type=MARKET&quantity=0.001&timestamp=1234567890000"
	require.Contains(t, query, want+"&signature=")
	assert.Equal(t, want+"&signature="+sign("secret", want), query)
}

func TestBuildSignedQueryNoParams(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	query := buildSignedQuery(nil, "secret", now)

	want := "timestamp=1700000000000"
	assert.Equal(t, want+"&signature="+sign("secret", want), query)
}

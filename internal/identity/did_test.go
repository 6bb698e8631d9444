package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDIDDeterministic(t *testing.T) {
	a := DeriveDID("testnet", "agent-1")
	assert.Equal(t, a, DeriveDID("testnet", "agent-1"))
	assert.True(t, strings.HasPrefix(a, "did:hedera:testnet:z"))
	assert.Len(t, strings.TrimPrefix(a, "did:hedera:testnet:z"), 32)

	assert.NotEqual(t, a, DeriveDID("mainnet", "agent-1"))
	assert.NotEqual(t, a, DeriveDID("testnet", "agent-2"))
	// The separator keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t, DeriveDID("ab", "c"), DeriveDID("a", "bc"))
}

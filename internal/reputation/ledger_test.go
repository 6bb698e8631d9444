package reputation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

func TestAwardPointsAccumulates(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	l := NewLedger(fc)

	e, err := l.AwardPoints("agent-1", 100, "registration", "marketplace")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, fc.Now(), e.AwardedAt)

	_, err = l.AwardPoints("agent-1", -20, "late delivery", "client-7")
	require.NoError(t, err)
	_, err = l.AwardPoints("agent-2", 5, "review", "client-7")
	require.NoError(t, err)

	assert.Equal(t, 80, l.GetTotalPoints("agent-1"))
	assert.Equal(t, 5, l.GetTotalPoints("agent-2"))
	assert.Equal(t, 0, l.GetTotalPoints("unknown"))

	hist := l.History("agent-1")
	require.Len(t, hist, 2)
	assert.Equal(t, "registration", hist[0].Reason)
	assert.Equal(t, "late delivery", hist[1].Reason)
}

func TestAwardPointsRequiresAgent(t *testing.T) {
	l := NewLedger(nil)
	_, err := l.AwardPoints("", 10, "x", "y")
	assert.ErrorIs(t, err, ErrInvalidAgent)
}

func TestHistoryIsCopy(t *testing.T) {
	l := NewLedger(nil)
	_, err := l.AwardPoints("agent-1", 1, "a", "")
	require.NoError(t, err)

	h := l.History("agent-1")
	h[0].Points = 1000
	assert.Equal(t, 1, l.History("agent-1")[0].Points)
}

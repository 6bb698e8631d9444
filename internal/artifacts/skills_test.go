package artifacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
)

func TestSkillRegistryPublish(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	topics := messaging.NewTopicManager("mkt", fc)
	reg := NewSkillRegistry(NewBuilder("testnet"), topics, fc, "2.0.0")
	ctx := context.Background()

	skill := marketplace.Skill{ID: "review", Name: "Code Review"}
	ps, err := reg.Publish(ctx, "agent-1", skill)
	require.NoError(t, err)
	assert.Equal(t, "review", ps.SkillID)
	assert.Equal(t, "mkt.skill.review.requests", ps.Topic)
	assert.Equal(t, "2.0.0", ps.Version)
	assert.NotEmpty(t, ps.Checksum)
	assert.Equal(t, fc.Now(), ps.PublishedAt)

	_, err = reg.Publish(ctx, "agent-2", skill)
	require.NoError(t, err)

	assert.Len(t, reg.Providers("review"), 2)
	assert.Equal(t, []string{"review"}, topics.SkillNames())
	assert.Equal(t, 2, topics.Manifest().Version)
}

func TestSkillRegistryPublishRequiresID(t *testing.T) {
	reg := NewSkillRegistry(NewBuilder("testnet"), messaging.NewTopicManager("mkt", nil), nil, "")
	_, err := reg.Publish(context.Background(), "agent-1", marketplace.Skill{Name: "Nameless"})
	assert.ErrorIs(t, err, ErrMissingField)
}

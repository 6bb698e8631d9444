package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
)

// SkillRegistry is the default marketplace.SkillPublisher. Each published
// skill gets a single-skill manifest and a topic pair in the manifest kept
// by the topic manager.
type SkillRegistry struct {
	builder *Builder
	topics  *messaging.TopicManager
	clock   clock.Clock
	version string

	mu        sync.RWMutex
	published map[string][]marketplace.PublishedSkill // skill id -> publications
}

// NewSkillRegistry creates a registry that labels manifests with version.
func NewSkillRegistry(builder *Builder, topics *messaging.TopicManager, c clock.Clock, version string) *SkillRegistry {
	if c == nil {
		c = clock.Real()
	}
	if version == "" {
		version = "1.0.0"
	}
	return &SkillRegistry{
		builder:   builder,
		topics:    topics,
		clock:     c,
		version:   version,
		published: make(map[string][]marketplace.PublishedSkill),
	}
}

// Publish registers skill for agentID.
func (r *SkillRegistry) Publish(ctx context.Context, agentID string, skill marketplace.Skill) (marketplace.PublishedSkill, error) {
	if err := ctx.Err(); err != nil {
		return marketplace.PublishedSkill{}, err
	}
	if skill.ID == "" {
		return marketplace.PublishedSkill{}, fmt.Errorf("publish skill for %s: %w: skill id", agentID, ErrMissingField)
	}
	manifest, err := r.builder.BuildSkillManifest(skill.Name, r.version, skill.Description, agentID, []marketplace.Skill{skill})
	if err != nil {
		return marketplace.PublishedSkill{}, fmt.Errorf("publish skill %s for %s: %w", skill.ID, agentID, err)
	}
	topic := r.topics.AddSkillTopic(skill.ID, agentID)

	ps := marketplace.PublishedSkill{
		SkillID:     skill.ID,
		Name:        skill.Name,
		AgentID:     agentID,
		Topic:       topic,
		Version:     manifest.Version,
		Checksum:    manifest.Checksum,
		PublishedAt: r.clock.Now(),
	}
	r.mu.Lock()
	r.published[skill.ID] = append(r.published[skill.ID], ps)
	r.mu.Unlock()

	slog.Debug("Skill published", "agent_id", agentID, "skill", skill.ID, "topic", topic, "manifest_version", r.topics.Manifest().Version)
	return ps, nil
}

// Providers returns every publication of skillID in publish order.
func (r *SkillRegistry) Providers(skillID string) []marketplace.PublishedSkill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]marketplace.PublishedSkill(nil), r.published[skillID]...)
}

package messaging

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// DefaultPrefix is used when no topic prefix is configured.
const DefaultPrefix = "marketplace"

// Channel directions allocated per agent at registration.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionProfile  = "profile"
)

// AgentMemo is the memo for one of an agent's channels.
func AgentMemo(agentID, direction string) string {
	return fmt.Sprintf("agent.%s.%s", agentID, direction)
}

// TaskMemo is the memo for a hire task's channel.
func TaskMemo(taskID string) string {
	return fmt.Sprintf("task.%s", taskID)
}

// ChannelName maps a memo to a topic or subject name under prefix. Memo
// characters outside [a-z0-9._-] become '-'. A memo that had to be rewritten
// gets a digest suffix of its raw form, so distinct memos never share a
// channel.
func ChannelName(prefix, memo string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "." + sanitize(memo)
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 17)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	if b.String() == s {
		return s
	}
	sum := blake3.Sum256([]byte(s))
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(sum[:8]))
	return b.String()
}

// RegistryTopicNames holds the fixed topics of a marketplace.
type RegistryTopicNames struct {
	Agents     string // agent registrations
	Skills     string // skill manifest announcements
	TaskStatus string // task status updates
	Audit      string // administrative events
}

// RegistryTopics returns the fixed topic names under prefix.
func RegistryTopics(prefix string) RegistryTopicNames {
	return RegistryTopicNames{
		Agents:     ChannelName(prefix, "registry.agents"),
		Skills:     ChannelName(prefix, "registry.skills"),
		TaskStatus: ChannelName(prefix, "tasks.status"),
		Audit:      ChannelName(prefix, "observe.audit"),
	}
}

// All returns the fixed topics as a slice.
func (t RegistryTopicNames) All() []string {
	return []string{t.Agents, t.Skills, t.TaskStatus, t.Audit}
}

// SkillTopicPrefix returns the prefix shared by all skill topics.
func SkillTopicPrefix(prefix string) string {
	return ChannelName(prefix, "skill") + "."
}

// SkillTopics returns the request and response topics for a skill.
func SkillTopics(prefix, skillID string) (requests, responses string) {
	p := SkillTopicPrefix(prefix) + sanitize(skillID)
	return p + ".requests", p + ".responses"
}

// TopicDescriptor describes one topic in the manifest.
type TopicDescriptor struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"` // "registry", "tasks", "observe", "skill"
	Description string   `json:"description"`
	Consumers   []string `json:"consumers"`
}

// TopicManifest is the versioned registry of marketplace topics.
type TopicManifest struct {
	Prefix      string            `json:"prefix"`
	Version     int               `json:"version"`
	CoreTopics  []TopicDescriptor `json:"core_topics"`
	SkillTopics []TopicDescriptor `json:"skill_topics"`
	UpdatedAt   int64             `json:"updated_at"`
	UpdatedBy   string            `json:"updated_by"`
}

func (m TopicManifest) clone() TopicManifest {
	cp := func(in []TopicDescriptor) []TopicDescriptor {
		out := make([]TopicDescriptor, len(in))
		for i, td := range in {
			td.Consumers = append([]string(nil), td.Consumers...)
			out[i] = td
		}
		return out
	}
	m.CoreTopics = cp(m.CoreTopics)
	m.SkillTopics = cp(m.SkillTopics)
	return m
}

// TopicManager maintains the local topic manifest.
type TopicManager struct {
	prefix   string
	clock    clock.Clock
	manifest TopicManifest
	mu       sync.RWMutex
}

// NewTopicManager creates a manager for prefix at version 1.
func NewTopicManager(prefix string, c clock.Clock) *TopicManager {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if c == nil {
		c = clock.Real()
	}
	reg := RegistryTopics(prefix)
	return &TopicManager{
		prefix: prefix,
		clock:  c,
		manifest: TopicManifest{
			Prefix:  prefix,
			Version: 1,
			CoreTopics: []TopicDescriptor{
				{Name: reg.Agents, Category: "registry", Description: "Agent registrations"},
				{Name: reg.Skills, Category: "registry", Description: "Skill manifest announcements"},
				{Name: reg.TaskStatus, Category: "tasks", Description: "Task status updates"},
				{Name: reg.Audit, Category: "observe", Description: "Administrative audit events"},
			},
			SkillTopics: []TopicDescriptor{},
			UpdatedAt:   c.Now().Unix(),
		},
	}
}

// Prefix returns the manager's topic prefix.
func (tm *TopicManager) Prefix() string { return tm.prefix }

// Manifest returns a copy of the current manifest.
func (tm *TopicManager) Manifest() TopicManifest {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.manifest.clone()
}

// AddSkillTopic registers the request/response pair for skillID and returns
// the request topic. Re-registering a skill adds agentID as a consumer
// without bumping the version.
func (tm *TopicManager) AddSkillTopic(skillID, agentID string) string {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	reqTopic, respTopic := SkillTopics(tm.prefix, skillID)
	for i, st := range tm.manifest.SkillTopics {
		if st.Name == reqTopic || st.Name == respTopic {
			tm.manifest.SkillTopics[i].Consumers = addConsumer(st.Consumers, agentID)
		}
	}
	for _, st := range tm.manifest.SkillTopics {
		if st.Name == reqTopic {
			return reqTopic
		}
	}

	tm.manifest.SkillTopics = append(tm.manifest.SkillTopics,
		TopicDescriptor{
			Name:        reqTopic,
			Category:    "skill",
			Description: fmt.Sprintf("Skill requests for %s", skillID),
			Consumers:   []string{agentID},
		},
		TopicDescriptor{
			Name:        respTopic,
			Category:    "skill",
			Description: fmt.Sprintf("Skill responses for %s", skillID),
			Consumers:   []string{agentID},
		},
	)
	tm.manifest.Version++
	tm.manifest.UpdatedAt = tm.clock.Now().Unix()
	tm.manifest.UpdatedBy = agentID
	return reqTopic
}

func addConsumer(consumers []string, agentID string) []string {
	for _, c := range consumers {
		if c == agentID {
			return consumers
		}
	}
	return append(consumers, agentID)
}

// UpdateManifest replaces the manifest if m is newer.
func (tm *TopicManager) UpdateManifest(m TopicManifest) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if m.Version <= tm.manifest.Version {
		return false
	}
	tm.manifest = m.clone()
	return true
}

// SkillNames returns the distinct skill ids with registered topics, in
// registration order.
func (tm *TopicManager) SkillNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	prefix := SkillTopicPrefix(tm.prefix)
	seen := make(map[string]bool)
	var names []string
	for _, st := range tm.manifest.SkillTopics {
		rest := strings.TrimPrefix(st.Name, prefix)
		if rest == st.Name {
			continue
		}
		i := strings.LastIndexByte(rest, '.')
		if i <= 0 {
			continue
		}
		skill := rest[:i]
		if !seen[skill] {
			seen[skill] = true
			names = append(names, skill)
		}
	}
	return names
}

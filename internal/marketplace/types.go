// Package marketplace implements the agent marketplace orchestrator:
// registration of agents with identity minting, discovery over the catalog,
// and hiring gated on identity verification and skill matching.
package marketplace

import (
	"time"

	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
)

// AgentStatus is the availability of a catalog entry.
type AgentStatus string

const (
	AgentOnline    AgentStatus = "online"
	AgentOffline   AgentStatus = "offline"
	AgentSuspended AgentStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentOnline, AgentOffline, AgentSuspended:
		return true
	}
	return false
}

// VerificationStatus is computed for every view from the agent's identity.
type VerificationStatus string

const (
	Verified   VerificationStatus = "verified"
	Unverified VerificationStatus = "unverified"
	Revoked    VerificationStatus = "revoked"
)

// TaskStatus is the state of a hire task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// SettlementStatus is the state of a payment intent.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
	SettlementFailed  SettlementStatus = "failed"
)

// Machine-readable failure codes in HireTask.Output["error"].
const (
	ErrCodeIdentityVerification = "identity_verification_failed"
	ErrCodeSkillNotFound        = "skill_not_found"
)

// Pricing is the price of one unit of a skill.
type Pricing struct {
	Amount float64 `json:"amount" yaml:"amount"`
	Token  string  `json:"token" yaml:"token"`
	Unit   string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Skill is a hireable capability of an agent.
type Skill struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Pricing     Pricing  `json:"pricing" yaml:"pricing"`
}

func (s Skill) clone() Skill {
	s.Tags = append([]string(nil), s.Tags...)
	return s
}

// ChannelRefs are the channels allocated to an agent at registration.
type ChannelRefs struct {
	Inbound  string `json:"inbound"`
	Outbound string `json:"outbound"`
	Profile  string `json:"profile"`
}

// RegisteredAgent is a catalog entry. IdentityHandle is set once at
// registration and is the only link from the agent to its identity.
type RegisteredAgent struct {
	AgentID         string      `json:"agent_id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Skills          []Skill     `json:"skills"`
	Endpoint        string      `json:"endpoint,omitempty"`
	Protocols       []string    `json:"protocols,omitempty"`
	PaymentAddress  string      `json:"payment_address,omitempty"`
	ChannelRefs     ChannelRefs `json:"channel_refs"`
	ReputationScore int         `json:"reputation_score"`
	Status          AgentStatus `json:"status"`
	RegisteredAt    time.Time   `json:"registered_at"`
	IdentityHandle  string      `json:"identity_handle"`
}

func (a RegisteredAgent) clone() RegisteredAgent {
	skills := make([]Skill, len(a.Skills))
	for i, s := range a.Skills {
		skills[i] = s.clone()
	}
	a.Skills = skills
	a.Protocols = append([]string(nil), a.Protocols...)
	return a
}

// Registration is the input to RegisterAgent.
type Registration struct {
	// AgentID is optional; one is generated when empty.
	AgentID        string   `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Skills         []Skill  `json:"skills" yaml:"skills"`
	Endpoint       string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocols      []string `json:"protocols,omitempty" yaml:"protocols,omitempty"`
	PaymentAddress string   `json:"payment_address,omitempty" yaml:"payment_address,omitempty"`
	// Version and Author label the skill manifest.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Author  string `json:"author,omitempty" yaml:"author,omitempty"`
}

// ProfileDocument is the public profile built for an agent.
type ProfileDocument struct {
	Version       string            `json:"version"`
	Type          string            `json:"type"`
	DisplayName   string            `json:"display_name"`
	Alias         string            `json:"alias"`
	Bio           string            `json:"bio"`
	InboundTopic  string            `json:"inbound_topic_id"`
	OutboundTopic string            `json:"outbound_topic_id"`
	ProfileTopic  string            `json:"profile_topic_id"`
	Endpoint      string            `json:"endpoint,omitempty"`
	Capabilities  []string          `json:"capabilities"`
	Protocols     []string          `json:"protocols,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// SkillManifest describes the skills an agent publishes.
type SkillManifest struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Description string  `json:"description"`
	Author      string  `json:"author"`
	Skills      []Skill `json:"skills"`
	Checksum    string  `json:"checksum"`
}

// PublishedSkill records one skill published to the skill registry.
type PublishedSkill struct {
	SkillID     string    `json:"skill_id"`
	Name        string    `json:"name"`
	AgentID     string    `json:"agent_id"`
	Topic       string    `json:"topic"`
	Version     string    `json:"version"`
	Checksum    string    `json:"checksum"`
	PublishedAt time.Time `json:"published_at"`
}

// MarketplaceView joins a catalog entry with its identity and collaborator
// outputs. It is computed on every read.
type MarketplaceView struct {
	Agent              RegisteredAgent    `json:"agent"`
	IdentityHandle     string             `json:"identity_handle"`
	DecentralizedID    string             `json:"decentralized_id,omitempty"`
	IdentityStatus     identity.Status    `json:"identity_status,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Profile            *ProfileDocument   `json:"profile,omitempty"`
	PublishedSkills    []PublishedSkill   `json:"published_skills"`
	ReputationPoints   int                `json:"reputation_points"`
}

// Settlement is the payment intent attached to a hire that passed both
// gates.
type Settlement struct {
	Payer  string           `json:"payer"`
	Payee  string           `json:"payee"`
	Amount float64          `json:"amount"`
	Token  string           `json:"token"`
	Status SettlementStatus `json:"status"`
}

// HireTask records one hire attempt.
type HireTask struct {
	TaskID     string         `json:"task_id"`
	AgentID    string         `json:"agent_id"`
	SkillID    string         `json:"skill_id"`
	ClientID   string         `json:"client_id"`
	Status     TaskStatus     `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Settlement *Settlement    `json:"settlement,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ErrorCode returns Output["error"] for failed tasks.
func (t HireTask) ErrorCode() string {
	code, _ := t.Output["error"].(string)
	return code
}

func (t HireTask) clone() HireTask {
	if t.Output != nil {
		out := make(map[string]any, len(t.Output))
		for k, v := range t.Output {
			out[k] = v
		}
		t.Output = out
	}
	if t.Settlement != nil {
		s := *t.Settlement
		t.Settlement = &s
	}
	return t
}

// HireRequest is the input to Hire.
type HireRequest struct {
	ClientID     string         `json:"client_id"`
	AgentID      string         `json:"agent_id"`
	SkillID      string         `json:"skill_id"`
	Input        map[string]any `json:"input,omitempty"`
	PayerAccount string         `json:"payer_account,omitempty"`
}

// Criteria filters Discover. Zero values disable a filter. Limit 0 uses the
// configured default; a negative Limit returns every match.
type Criteria struct {
	Query         string      `json:"query,omitempty"`
	Category      string      `json:"category,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Skill         string      `json:"skill,omitempty"`
	Protocol      string      `json:"protocol,omitempty"`
	Name          string      `json:"name,omitempty"`
	Status        AgentStatus `json:"status,omitempty"`
	MinReputation int         `json:"min_reputation,omitempty"`
	VerifiedOnly  bool        `json:"verified_only,omitempty"`
	Offset        int         `json:"offset,omitempty"`
	Limit         int         `json:"limit,omitempty"`
}

// DiscoveryResult is one page of matches. Total counts every match before
// pagination.
type DiscoveryResult struct {
	Agents []MarketplaceView `json:"agents"`
	Total  int               `json:"total"`
}

package marketplace

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
)

var errBoom = errors.New("boom")

type stubArtifacts struct {
	failProfile, failDID, failManifest bool
}

func (s *stubArtifacts) BuildProfile(agent RegisteredAgent) (ProfileDocument, error) {
	if s.failProfile {
		return ProfileDocument{}, errBoom
	}
	return ProfileDocument{DisplayName: agent.Name, InboundTopic: agent.ChannelRefs.Inbound}, nil
}

func (s *stubArtifacts) BuildDID(agentID, endpoint string) (string, error) {
	if s.failDID {
		return "", errBoom
	}
	return identity.DeriveDID("testnet", agentID), nil
}

func (s *stubArtifacts) BuildSkillManifest(name, version, description, author string, skills []Skill) (SkillManifest, error) {
	if s.failManifest {
		return SkillManifest{}, errBoom
	}
	return SkillManifest{Name: name, Version: version, Author: author, Skills: skills}, nil
}

type stubPublisher struct {
	failSkill string
	calls     []string
}

func (p *stubPublisher) Publish(ctx context.Context, agentID string, skill Skill) (PublishedSkill, error) {
	p.calls = append(p.calls, agentID+"/"+skill.ID)
	if skill.ID == p.failSkill {
		return PublishedSkill{}, errBoom
	}
	return PublishedSkill{SkillID: skill.ID, Name: skill.Name, AgentID: agentID, Topic: "skill." + skill.ID}, nil
}

// failingMessenger wraps a memory transport and fails selected memos.
type failingMessenger struct {
	*messaging.MemoryTransport
	failMemoPrefix string
	failSend       bool
	created        []string
}

func (m *failingMessenger) CreateChannel(ctx context.Context, memo string) (string, error) {
	m.created = append(m.created, memo)
	if m.failMemoPrefix != "" && len(memo) >= len(m.failMemoPrefix) && memo[:len(m.failMemoPrefix)] == m.failMemoPrefix {
		return "", fmt.Errorf("create %s: %w", memo, errBoom)
	}
	return m.MemoryTransport.CreateChannel(ctx, memo)
}

func (m *failingMessenger) SendTaskRequest(ctx context.Context, ref string, req messaging.TaskRequest) (messaging.Ack, error) {
	if m.failSend {
		return messaging.Ack{}, errBoom
	}
	return m.MemoryTransport.SendTaskRequest(ctx, ref, req)
}

type memRecorder struct {
	registrations []RegistrationResult
	tasks         []HireTask
}

func (r *memRecorder) RecordRegistration(result RegistrationResult) error {
	r.registrations = append(r.registrations, result)
	return nil
}

func (r *memRecorder) RecordHireTask(task HireTask) error {
	r.tasks = append(r.tasks, task)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	reg       *identity.Registry
	transport *messaging.MemoryTransport
	clock     *clock.FakeClock
	recorder  *memRecorder
	publisher *stubPublisher
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	fc := clock.Fake(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	reg := identity.NewRegistry(func(o *identity.Options) { o.Clock = fc })
	tr := messaging.NewMemoryTransport("mkt", fc)
	rec := &memRecorder{}
	pub := &stubPublisher{}
	fns := append([]func(o *Options){func(o *Options) {
		o.Clock = fc
		o.Messenger = tr
		o.Artifacts = &stubArtifacts{}
		o.Skills = pub
		o.Recorder = rec
	}}, optFns...)
	return &fixture{
		orch:      New(reg, fns...),
		reg:       reg,
		transport: tr,
		clock:     fc,
		recorder:  rec,
		publisher: pub,
	}
}

func reviewRegistration(agentID string) Registration {
	return Registration{
		AgentID:     agentID,
		Name:        "Code Reviewer " + agentID,
		Description: "Reviews pull requests",
		Skills: []Skill{{
			ID:       "review",
			Name:     "Code Review",
			Category: "Development",
			Tags:     []string{"code", "quality"},
			Pricing:  Pricing{Amount: 50, Token: "HBAR", Unit: "task"},
		}},
		Endpoint:       "https://" + agentID + ".example/a2a",
		Protocols:      []string{"a2a-v1"},
		PaymentAddress: "0.0.9" + agentID,
	}
}

func (f *fixture) register(t *testing.T, reg Registration) *RegistrationResult {
	t.Helper()
	res, err := f.orch.RegisterAgent(context.Background(), reg)
	require.NoError(t, err)
	return res
}

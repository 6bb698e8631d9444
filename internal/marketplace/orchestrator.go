package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
	"github.com/opspawn/hedera-apex-marketplace/internal/reputation"
)

// Messenger opens channels and delivers task requests.
type Messenger interface {
	CreateChannel(ctx context.Context, memo string) (string, error)
	SendTaskRequest(ctx context.Context, channelRef string, req messaging.TaskRequest) (messaging.Ack, error)
}

// ArtifactBuilder formats the off-core documents of a registration.
type ArtifactBuilder interface {
	BuildProfile(agent RegisteredAgent) (ProfileDocument, error)
	BuildDID(agentID, endpoint string) (string, error)
	BuildSkillManifest(name, version, description, author string, skills []Skill) (SkillManifest, error)
}

// SkillPublisher publishes one skill of an agent to the skill registry.
type SkillPublisher interface {
	Publish(ctx context.Context, agentID string, skill Skill) (PublishedSkill, error)
}

// ReputationLedger is the points ledger the orchestrator reports to. It is
// never consulted for authorization.
type ReputationLedger interface {
	AwardPoints(agentID string, points int, reason, from string) (reputation.Entry, error)
	GetTotalPoints(agentID string) int
}

// Recorder receives registration and hire outcomes for auditing.
type Recorder interface {
	RecordRegistration(result RegistrationResult) error
	RecordHireTask(task HireTask) error
}

// Options configures an Orchestrator.
type Options struct {
	Messenger  Messenger
	Artifacts  ArtifactBuilder
	Skills     SkillPublisher
	Reputation ReputationLedger
	Recorder   Recorder
	Clock      clock.Clock
	// DefaultLimit is the page size when Criteria.Limit is zero.
	DefaultLimit int
	// RegistrationPoints are awarded to every newly registered agent.
	RegistrationPoints int
	// DefaultToken prices skills that name no token.
	DefaultToken string
	// ManifestVersion labels skill manifests when a registration names none.
	ManifestVersion string
}

// DefaultOptions returns the options used when none are overridden.
func DefaultOptions() Options {
	return Options{
		Clock:           clock.Real(),
		DefaultLimit:    50,
		DefaultToken:    "HBAR",
		ManifestVersion: "1.0.0",
	}
}

type agentEntry struct {
	agent     RegisteredAgent
	profile   *ProfileDocument
	manifest  *SkillManifest
	published []PublishedSkill
}

// Orchestrator owns the agent catalog and hire-task store.
type Orchestrator struct {
	mu         sync.RWMutex
	opts       Options
	identities *identity.Registry
	agents     map[string]*agentEntry
	order      []string
	tasks      map[string]*HireTask
	taskOrder  []string

	hireMu    sync.Mutex
	hireLocks map[string]*sync.Mutex
}

// New creates an orchestrator over identities. A nil Messenger defaults to
// an in-memory transport and a nil Reputation to an in-memory ledger.
func New(identities *identity.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Messenger == nil {
		opts.Messenger = messaging.NewMemoryTransport(messaging.DefaultPrefix, opts.Clock)
	}
	if opts.Reputation == nil {
		opts.Reputation = reputation.NewLedger(opts.Clock)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.ManifestVersion == "" {
		opts.ManifestVersion = "1.0.0"
	}
	return &Orchestrator{
		opts:       opts,
		identities: identities,
		agents:     make(map[string]*agentEntry),
		tasks:      make(map[string]*HireTask),
		hireLocks:  make(map[string]*sync.Mutex),
	}
}

// Identities returns the registry the orchestrator verifies against.
func (o *Orchestrator) Identities() *identity.Registry { return o.identities }

func validateRegistration(reg Registration) error {
	if strings.TrimSpace(reg.Name) == "" || strings.TrimSpace(reg.Description) == "" || len(reg.Skills) == 0 {
		return identity.ErrInvalidProfile
	}
	return nil
}

// normalizeSkills fills missing ids from names and missing tokens from the
// default token.
func (o *Orchestrator) normalizeSkills(in []Skill) []Skill {
	out := make([]Skill, len(in))
	for i, s := range in {
		s = s.clone()
		if s.ID == "" {
			s.ID = slug(s.Name)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.Pricing.Token == "" {
			s.Pricing.Token = o.opts.DefaultToken
		}
		out[i] = s
	}
	return out
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "-")
}

// RegisterAgent runs the registration saga. It returns an error only for
// invalid input or a fatal step (channel allocation, identity creation,
// catalog insert); the returned result always lists the steps that ran.
func (o *Orchestrator) RegisterAgent(ctx context.Context, reg Registration) (*RegistrationResult, error) {
	if err := validateRegistration(reg); err != nil {
		return nil, fmt.Errorf("register agent %q: %w", reg.Name, err)
	}
	agentID := reg.AgentID
	if agentID == "" {
		agentID = "agent-" + uuid.NewString()[:8]
	}
	o.mu.RLock()
	_, exists := o.agents[agentID]
	o.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("register agent %s: %w", agentID, ErrAgentExists)
	}

	skills := o.normalizeSkills(reg.Skills)
	result := &RegistrationResult{AgentID: agentID}

	// 1. channels
	var refs ChannelRefs
	err := func() error {
		var err error
		if refs.Inbound, err = o.opts.Messenger.CreateChannel(ctx, messaging.AgentMemo(agentID, messaging.DirectionInbound)); err != nil {
			return err
		}
		if refs.Outbound, err = o.opts.Messenger.CreateChannel(ctx, messaging.AgentMemo(agentID, messaging.DirectionOutbound)); err != nil {
			return err
		}
		refs.Profile, err = o.opts.Messenger.CreateChannel(ctx, messaging.AgentMemo(agentID, messaging.DirectionProfile))
		return err
	}()
	result.record(StepAllocateChannels, true, err)
	if err != nil {
		o.recordRegistration(result)
		return result, fmt.Errorf("register agent %s: allocate channels: %w", agentID, err)
	}

	// 2. identity
	capabilities := make([]string, len(skills))
	for i, s := range skills {
		capabilities[i] = s.Name
	}
	id, err := o.identities.CreateIdentity(agentID, identity.Profile{
		Name:           reg.Name,
		Description:    reg.Description,
		Capabilities:   capabilities,
		Endpoint:       reg.Endpoint,
		ExtraProtocols: append([]string(nil), reg.Protocols...),
	})
	result.record(StepCreateIdentity, true, err)
	if err != nil {
		o.recordRegistration(result)
		return result, fmt.Errorf("register agent %s: create identity: %w", agentID, err)
	}
	result.IdentityHandle = id.Handle
	result.DecentralizedID = id.DecentralizedID

	agent := RegisteredAgent{
		AgentID:        agentID,
		Name:           reg.Name,
		Description:    reg.Description,
		Skills:         skills,
		Endpoint:       reg.Endpoint,
		Protocols:      append([]string(nil), reg.Protocols...),
		PaymentAddress: reg.PaymentAddress,
		ChannelRefs:    refs,
		Status:         AgentOnline,
		RegisteredAt:   o.opts.Clock.Now(),
		IdentityHandle: id.Handle,
	}

	// 3. artifacts, best-effort
	entry := &agentEntry{agent: agent}
	o.buildArtifacts(reg, entry, result)

	// 4. catalog
	o.mu.Lock()
	if _, dup := o.agents[agentID]; dup {
		o.mu.Unlock()
		err := fmt.Errorf("register agent %s: %w", agentID, ErrAgentExists)
		result.record(StepIndexIdentity, true, err)
		o.recordRegistration(result)
		return result, err
	}
	o.agents[agentID] = entry
	o.order = append(o.order, agentID)
	o.mu.Unlock()
	result.record(StepIndexIdentity, true, nil)

	// 5. skills, best-effort
	o.publishSkills(ctx, agentID, skills, result)

	if o.opts.RegistrationPoints != 0 {
		_, err := o.RecordReputation(ctx, agentID, o.opts.RegistrationPoints, "registration", "marketplace")
		result.record(StepAwardReputation, false, err)
		if err != nil {
			slog.Warn("Registration reputation award failed", "agent_id", agentID, "error", err)
		}
	}

	view, err := o.GetProfile(ctx, agentID)
	if err == nil {
		result.View = &view
	}
	o.recordRegistration(result)
	slog.Info("Agent registered", "agent_id", agentID, "identity", id.Handle, "complete", result.Complete())
	return result, nil
}

func (o *Orchestrator) buildArtifacts(reg Registration, entry *agentEntry, result *RegistrationResult) {
	agentID := entry.agent.AgentID
	if o.opts.Artifacts == nil {
		result.skip(StepBuildProfile)
		result.skip(StepBuildDID)
		result.skip(StepBuildSkillManifest)
		return
	}

	profile, err := o.opts.Artifacts.BuildProfile(entry.agent.clone())
	result.record(StepBuildProfile, false, err)
	if err != nil {
		slog.Warn("Profile build failed", "agent_id", agentID, "error", err)
	} else {
		entry.profile = &profile
	}

	did, err := o.opts.Artifacts.BuildDID(agentID, reg.Endpoint)
	result.record(StepBuildDID, false, err)
	switch {
	case err != nil:
		slog.Warn("DID build failed", "agent_id", agentID, "error", err)
	case did != result.DecentralizedID:
		slog.Debug("Built DID differs from identity DID", "agent_id", agentID, "built", did, "identity", result.DecentralizedID)
	}

	version := reg.Version
	if version == "" {
		version = o.opts.ManifestVersion
	}
	author := reg.Author
	if author == "" {
		author = reg.Name
	}
	manifest, err := o.opts.Artifacts.BuildSkillManifest(reg.Name, version, reg.Description, author, entry.agent.Skills)
	result.record(StepBuildSkillManifest, false, err)
	if err != nil {
		slog.Warn("Skill manifest build failed", "agent_id", agentID, "error", err)
	} else {
		entry.manifest = &manifest
		result.Manifest = &manifest
	}
}

func (o *Orchestrator) publishSkills(ctx context.Context, agentID string, skills []Skill, result *RegistrationResult) {
	if o.opts.Skills == nil {
		result.skip(StepPublishSkills)
		return
	}
	var failed []string
	for _, s := range skills {
		ps, err := o.PublishSkill(ctx, agentID, s)
		if err != nil {
			slog.Warn("Skill publish failed", "agent_id", agentID, "skill", s.ID, "error", err)
			failed = append(failed, s.ID+": "+err.Error())
			continue
		}
		result.Published = append(result.Published, ps)
	}
	var err error
	if len(failed) > 0 {
		err = fmt.Errorf("%d of %d skills failed: %s", len(failed), len(skills), strings.Join(failed, "; "))
	}
	result.record(StepPublishSkills, false, err)
}

func (o *Orchestrator) recordRegistration(result *RegistrationResult) {
	if o.opts.Recorder == nil {
		return
	}
	if err := o.opts.Recorder.RecordRegistration(*result); err != nil {
		slog.Debug("Registration record failed", "agent_id", result.AgentID, "error", err)
	}
}

// PublishSkill publishes skill for an existing agent and appends the result
// to its published skills.
func (o *Orchestrator) PublishSkill(ctx context.Context, agentID string, skill Skill) (PublishedSkill, error) {
	o.mu.RLock()
	_, ok := o.agents[agentID]
	o.mu.RUnlock()
	if !ok {
		return PublishedSkill{}, fmt.Errorf("publish skill %s: %w: %s", skill.ID, ErrAgentNotFound, agentID)
	}
	if o.opts.Skills == nil {
		return PublishedSkill{}, fmt.Errorf("publish skill %s: no skill publisher configured", skill.ID)
	}

	ps, err := o.opts.Skills.Publish(ctx, agentID, skill)
	if err != nil {
		return PublishedSkill{}, fmt.Errorf("publish skill %s for %s: %w", skill.ID, agentID, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.agents[agentID]
	if !ok {
		return PublishedSkill{}, fmt.Errorf("publish skill %s: %w: %s", skill.ID, ErrAgentNotFound, agentID)
	}
	entry.published = append(entry.published, ps)
	return ps, nil
}

// GetProfile returns the view of agentID.
func (o *Orchestrator) GetProfile(ctx context.Context, agentID string) (MarketplaceView, error) {
	o.mu.RLock()
	entry, ok := o.agents[agentID]
	if !ok {
		o.mu.RUnlock()
		return MarketplaceView{}, fmt.Errorf("get profile %s: %w", agentID, ErrAgentNotFound)
	}
	snap := entry.snapshot()
	o.mu.RUnlock()
	return o.view(snap), nil
}

func (e *agentEntry) snapshot() agentEntry {
	out := agentEntry{
		agent:     e.agent.clone(),
		published: append([]PublishedSkill(nil), e.published...),
	}
	if e.profile != nil {
		p := *e.profile
		p.Capabilities = append([]string(nil), p.Capabilities...)
		p.Protocols = append([]string(nil), p.Protocols...)
		out.profile = &p
	}
	if e.manifest != nil {
		m := *e.manifest
		out.manifest = &m
	}
	return out
}

func (o *Orchestrator) view(e agentEntry) MarketplaceView {
	v := MarketplaceView{
		Agent:              e.agent,
		IdentityHandle:     e.agent.IdentityHandle,
		VerificationStatus: Unverified,
		Profile:            e.profile,
		PublishedSkills:    e.published,
		ReputationPoints:   o.opts.Reputation.GetTotalPoints(e.agent.AgentID),
	}
	if v.PublishedSkills == nil {
		v.PublishedSkills = []PublishedSkill{}
	}
	raw, ok := o.identities.GetRaw(e.agent.IdentityHandle)
	if !ok {
		return v
	}
	v.DecentralizedID = raw.DecentralizedID
	v.IdentityStatus = raw.Status
	switch {
	case raw.Status == identity.StatusRevoked:
		v.VerificationStatus = Revoked
	case o.identities.Verify(e.agent.IdentityHandle).Valid:
		v.VerificationStatus = Verified
	}
	return v
}

// AgentCount returns the catalog size.
func (o *Orchestrator) AgentCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.agents)
}

// ListAgents returns the catalog in registration order.
func (o *Orchestrator) ListAgents() []RegisteredAgent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]RegisteredAgent, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.agents[id].agent.clone())
	}
	return out
}

// IdentityOf returns the identity handle of agentID.
func (o *Orchestrator) IdentityOf(agentID string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.agents[agentID]
	if !ok {
		return "", fmt.Errorf("identity of %s: %w", agentID, ErrAgentNotFound)
	}
	return entry.agent.IdentityHandle, nil
}

// UpdateAgentStatus sets the availability of agentID.
func (o *Orchestrator) UpdateAgentStatus(agentID string, status AgentStatus) (RegisteredAgent, error) {
	if !status.Valid() {
		return RegisteredAgent{}, fmt.Errorf("update status %s: %w: %q", agentID, ErrInvalidStatus, status)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.agents[agentID]
	if !ok {
		return RegisteredAgent{}, fmt.Errorf("update status %s: %w", agentID, ErrAgentNotFound)
	}
	entry.agent.Status = status
	return entry.agent.clone(), nil
}

// RecordReputation awards points to agentID and mirrors the ledger total
// into the catalog entry.
func (o *Orchestrator) RecordReputation(ctx context.Context, agentID string, points int, reason, from string) (reputation.Entry, error) {
	o.mu.RLock()
	_, ok := o.agents[agentID]
	o.mu.RUnlock()
	if !ok {
		return reputation.Entry{}, fmt.Errorf("record reputation %s: %w", agentID, ErrAgentNotFound)
	}
	e, err := o.opts.Reputation.AwardPoints(agentID, points, reason, from)
	if err != nil {
		return reputation.Entry{}, fmt.Errorf("record reputation %s: %w", agentID, err)
	}
	total := o.opts.Reputation.GetTotalPoints(agentID)

	o.mu.Lock()
	if entry, ok := o.agents[agentID]; ok {
		entry.agent.ReputationScore = total
	}
	o.mu.Unlock()
	return e, nil
}

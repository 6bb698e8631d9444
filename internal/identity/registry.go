package identity

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// Auditor receives a record of every registry mutation. The journal
// implements it; a nil Auditor disables auditing.
type Auditor interface {
	Record(kind, subject string, details map[string]any) error
}

// Audit event kinds.
const (
	EventIdentityCreated    = "identity.created"
	EventIdentityUpdated    = "identity.updated"
	EventIdentityRevoked    = "identity.revoked"
	EventIdentitySuspended  = "identity.suspended"
	EventIdentityReinstated = "identity.reinstated"
	EventClaimIssued        = "claim.issued"
	EventClaimRevoked       = "claim.revoked"
	EventDisclosure         = "identity.disclosure"
)

// Options configures a Registry.
type Options struct {
	// Network is mixed into derived DIDs, e.g. "testnet".
	Network string
	// IssuerDID is the default issuer stamped on claims.
	IssuerDID string
	// Handles are minted as "<shard>.<realm>.<n>" starting at HandleStart.
	HandleShard int64
	HandleRealm int64
	HandleStart uint64
	// DisclosureNonceTTL is how long a (requester, nonce) pair is remembered
	// for replay rejection. Zero disables the guard.
	DisclosureNonceTTL time.Duration
	Clock              clock.Clock
	Auditor            Auditor
}

// DefaultOptions returns the options used when none are overridden.
func DefaultOptions() Options {
	return Options{
		Network:            "testnet",
		IssuerDID:          "did:hedera:testnet:marketplace",
		HandleStart:        1001,
		DisclosureNonceTTL: 5 * time.Minute,
		Clock:              clock.Real(),
	}
}

// Registry owns identity records and their claims. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	opts       Options
	nextHandle uint64
	identities map[string]*Identity // handle -> identity
	byDID      map[string]string    // did -> handle
	bySubject  map[string]string    // subject id -> handle
	claims     map[string][]*Claim  // handle -> claims in issue order
	nonces     *cache.Cache
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	r := &Registry{
		opts:       opts,
		nextHandle: opts.HandleStart,
		identities: make(map[string]*Identity),
		byDID:      make(map[string]string),
		bySubject:  make(map[string]string),
		claims:     make(map[string][]*Claim),
	}
	if opts.DisclosureNonceTTL > 0 {
		r.nonces = cache.New(opts.DisclosureNonceTTL, 2*opts.DisclosureNonceTTL)
	}
	return r
}

// Network returns the network name used for DID derivation.
func (r *Registry) Network() string { return r.opts.Network }

// CreateOption customizes CreateIdentity.
type CreateOption func(*createOptions)

type createOptions struct {
	did string
}

// WithDecentralizedID overrides DID derivation with an explicit value.
func WithDecentralizedID(did string) CreateOption {
	return func(o *createOptions) { o.did = did }
}

// CreateIdentity mints a new active identity for subjectID.
func (r *Registry) CreateIdentity(subjectID string, profile Profile, opts ...CreateOption) (Identity, error) {
	if err := profile.Validate(); err != nil {
		return Identity{}, fmt.Errorf("create identity for %s: %w", subjectID, err)
	}
	co := createOptions{}
	for _, fn := range opts {
		fn(&co)
	}
	did := co.did
	if did == "" {
		did = DeriveDID(r.opts.Network, subjectID)
	}

	r.mu.Lock()
	if _, exists := r.byDID[did]; exists {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("create identity for %s: %w: %s", subjectID, ErrDIDInUse, did)
	}
	now := r.opts.Clock.Now()
	id := &Identity{
		Handle:          r.mintHandleLocked(),
		SubjectID:       subjectID,
		Profile:         profile.clone(),
		DecentralizedID: did,
		Status:          StatusActive,
		SequenceNumber:  1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.identities[id.Handle] = id
	r.byDID[did] = id.Handle
	r.bySubject[subjectID] = id.Handle
	out := id.clone()
	r.mu.Unlock()

	r.audit(EventIdentityCreated, out.Handle, map[string]any{
		"subject_id":       subjectID,
		"decentralized_id": did,
		"sequence_number":  out.SequenceNumber,
	})
	slog.Debug("Identity created", "handle", out.Handle, "subject_id", subjectID, "did", did)
	return out, nil
}

// mintHandleLocked returns the next handle; caller must hold the write lock.
func (r *Registry) mintHandleLocked() string {
	n := r.nextHandle
	r.nextHandle++
	return fmt.Sprintf("%d.%d.%d", r.opts.HandleShard, r.opts.HandleRealm, n)
}

// Resolve returns the identity for handle. Revoked identities are reported
// as not found.
func (r *Registry) Resolve(handle string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[handle]
	if !ok || id.Status == StatusRevoked {
		return Identity{}, fmt.Errorf("resolve %s: %w", handle, ErrNotFound)
	}
	return id.clone(), nil
}

// ResolveByDecentralizedID resolves by DID with the same revocation rule as
// Resolve.
func (r *Registry) ResolveByDecentralizedID(did string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.byDID[did]
	if !ok {
		return Identity{}, fmt.Errorf("resolve did %s: %w", did, ErrNotFound)
	}
	id := r.identities[handle]
	if id.Status == StatusRevoked {
		return Identity{}, fmt.Errorf("resolve did %s: %w", did, ErrNotFound)
	}
	return id.clone(), nil
}

// ResolveBySubject resolves by the owning subject id with the same
// revocation rule as Resolve.
func (r *Registry) ResolveBySubject(subjectID string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.bySubject[subjectID]
	if !ok {
		return Identity{}, fmt.Errorf("resolve subject %s: %w", subjectID, ErrNotFound)
	}
	id := r.identities[handle]
	if id.Status == StatusRevoked {
		return Identity{}, fmt.Errorf("resolve subject %s: %w", subjectID, ErrNotFound)
	}
	return id.clone(), nil
}

// GetRaw returns the identity for handle regardless of status. It backs
// audit and view computation, not public resolution.
func (r *Registry) GetRaw(handle string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[handle]
	if !ok {
		return Identity{}, false
	}
	return id.clone(), true
}

// Verify reports whether handle names a usable identity.
func (r *Registry) Verify(handle string) VerifyResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[handle]
	switch {
	case !ok:
		return VerifyResult{Valid: false, Errors: []string{VerifyErrNotFound}}
	case id.Status == StatusRevoked:
		return VerifyResult{Valid: false, Errors: []string{VerifyErrRevoked}}
	case id.Status == StatusSuspended:
		return VerifyResult{Valid: false, Errors: []string{VerifyErrSuspended}}
	}
	return VerifyResult{Valid: true}
}

// UpdateProfile merges the provided fields into the identity's profile and
// bumps its sequence number.
func (r *Registry) UpdateProfile(handle string, update ProfileUpdate) (Identity, error) {
	r.mu.Lock()
	id, ok := r.identities[handle]
	if !ok {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("update profile %s: %w", handle, ErrNotFound)
	}
	if id.Status == StatusRevoked {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("update profile %s: %w", handle, ErrIdentityRevoked)
	}
	merged := update.apply(id.Profile)
	if err := merged.Validate(); err != nil {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("update profile %s: %w", handle, err)
	}
	id.Profile = merged
	r.bumpLocked(id)
	out := id.clone()
	r.mu.Unlock()

	r.audit(EventIdentityUpdated, handle, map[string]any{"sequence_number": out.SequenceNumber})
	return out, nil
}

// Revoke permanently revokes the identity.
func (r *Registry) Revoke(handle string) (Identity, error) {
	r.mu.Lock()
	id, ok := r.identities[handle]
	if !ok {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("revoke %s: %w", handle, ErrNotFound)
	}
	if id.Status == StatusRevoked {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("revoke %s: %w", handle, ErrAlreadyRevoked)
	}
	id.Status = StatusRevoked
	r.bumpLocked(id)
	out := id.clone()
	r.mu.Unlock()

	r.audit(EventIdentityRevoked, handle, map[string]any{"sequence_number": out.SequenceNumber})
	slog.Info("Identity revoked", "handle", handle, "sequence_number", out.SequenceNumber)
	return out, nil
}

// Suspend marks an active identity as suspended. Suspension is reversible
// with Reinstate; suspending an already suspended identity is a no-op.
func (r *Registry) Suspend(handle string) (Identity, error) {
	return r.setStatus(handle, StatusSuspended, EventIdentitySuspended)
}

// Reinstate returns a suspended identity to active.
func (r *Registry) Reinstate(handle string) (Identity, error) {
	return r.setStatus(handle, StatusActive, EventIdentityReinstated)
}

func (r *Registry) setStatus(handle string, status Status, event string) (Identity, error) {
	r.mu.Lock()
	id, ok := r.identities[handle]
	if !ok {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("set status %s on %s: %w", status, handle, ErrNotFound)
	}
	if id.Status == StatusRevoked {
		r.mu.Unlock()
		return Identity{}, fmt.Errorf("set status %s on %s: %w", status, handle, ErrIdentityRevoked)
	}
	if id.Status == status {
		out := id.clone()
		r.mu.Unlock()
		return out, nil
	}
	id.Status = status
	r.bumpLocked(id)
	out := id.clone()
	r.mu.Unlock()

	r.audit(event, handle, map[string]any{"sequence_number": out.SequenceNumber})
	return out, nil
}

// Count returns the number of identities, revoked ones included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// bumpLocked advances the sequence number exactly once and refreshes
// UpdatedAt; caller must hold the write lock.
func (r *Registry) bumpLocked(id *Identity) {
	id.SequenceNumber++
	id.UpdatedAt = r.opts.Clock.Now()
}

func (r *Registry) audit(kind, subject string, details map[string]any) {
	if r.opts.Auditor == nil {
		return
	}
	if err := r.opts.Auditor.Record(kind, subject, details); err != nil {
		slog.Debug("Identity audit record failed", "kind", kind, "subject", subject, "error", err)
	}
}

package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opspawn/hedera-apex-marketplace/internal/codec"
)

// ClaimOption customizes IssueClaim.
type ClaimOption func(*claimOptions)

type claimOptions struct {
	issuer  string
	proof   string
	ttlDays int
}

// WithTTLDays sets the claim to expire days after issuance.
func WithTTLDays(days int) ClaimOption {
	return func(o *claimOptions) { o.ttlDays = days }
}

// WithIssuer overrides the registry's default issuer.
func WithIssuer(issuer string) ClaimOption {
	return func(o *claimOptions) { o.issuer = issuer }
}

// WithProof attaches a caller-supplied proof. The registry does not check
// it.
func WithProof(proof string) ClaimOption {
	return func(o *claimOptions) { o.proof = proof }
}

// IssueClaim appends a claim to the identity's ledger. Revoked identities
// still accept claims; only an unknown handle fails.
func (r *Registry) IssueClaim(handle, claimType string, payload map[string]any, opts ...ClaimOption) (Claim, error) {
	co := claimOptions{issuer: r.opts.IssuerDID}
	for _, fn := range opts {
		fn(&co)
	}

	r.mu.Lock()
	if _, ok := r.identities[handle]; !ok {
		r.mu.Unlock()
		return Claim{}, fmt.Errorf("issue claim %s on %s: %w", claimType, handle, ErrSubjectNotFound)
	}
	now := r.opts.Clock.Now()
	c := &Claim{
		ID:        uuid.NewString(),
		Issuer:    co.issuer,
		Subject:   handle,
		ClaimType: claimType,
		Payload:   clonePayload(payload),
		Proof:     co.proof,
		IssuedAt:  now,
	}
	if co.ttlDays > 0 {
		exp := now.Add(time.Duration(co.ttlDays) * 24 * time.Hour)
		c.ExpiresAt = &exp
	}
	if c.Proof == "" {
		c.Proof = claimProof(c)
	}
	r.claims[handle] = append(r.claims[handle], c)
	out := c.clone()
	r.mu.Unlock()

	r.audit(EventClaimIssued, handle, map[string]any{
		"claim_id":   out.ID,
		"claim_type": claimType,
		"issuer":     out.Issuer,
	})
	return out, nil
}

// RevokeClaim flags a claim as revoked. Revoking an already revoked claim
// succeeds without change.
func (r *Registry) RevokeClaim(handle, claimID string) error {
	r.mu.Lock()
	if _, ok := r.identities[handle]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("revoke claim %s on %s: %w", claimID, handle, ErrSubjectNotFound)
	}
	var target *Claim
	for _, c := range r.claims[handle] {
		if c.ID == claimID {
			target = c
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return fmt.Errorf("revoke claim %s on %s: %w", claimID, handle, ErrClaimNotFound)
	}
	already := target.Revoked
	target.Revoked = true
	r.mu.Unlock()

	if !already {
		r.audit(EventClaimRevoked, handle, map[string]any{"claim_id": claimID})
	}
	return nil
}

// ActiveClaims returns the unrevoked, unexpired claims for handle in issue
// order.
func (r *Registry) ActiveClaims(handle string) ([]Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.identities[handle]; !ok {
		return nil, fmt.Errorf("active claims %s: %w", handle, ErrSubjectNotFound)
	}
	return r.activeClaimsLocked(handle, r.opts.Clock.Now()), nil
}

// Claims returns every claim ever issued for handle, revoked and expired
// ones included.
func (r *Registry) Claims(handle string) ([]Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.identities[handle]; !ok {
		return nil, fmt.Errorf("claims %s: %w", handle, ErrSubjectNotFound)
	}
	out := make([]Claim, 0, len(r.claims[handle]))
	for _, c := range r.claims[handle] {
		out = append(out, c.clone())
	}
	return out, nil
}

func (r *Registry) activeClaimsLocked(handle string, now time.Time) []Claim {
	out := []Claim{}
	for _, c := range r.claims[handle] {
		if c.Active(now) {
			out = append(out, c.clone())
		}
	}
	return out
}

// claimProof is the default opaque proof: a digest over the claim's
// identifying fields and payload.
func claimProof(c *Claim) string {
	payload, err := codec.Marshal(c.Payload)
	if err != nil {
		payload = nil
	}
	return digestProof([]byte(c.ID), []byte(c.Issuer), []byte(c.Subject), []byte(c.ClaimType), payload)
}

// Package identity implements the agent identity registry: identity records
// keyed by an opaque topic-like handle, their lifecycle (active, suspended,
// revoked), an append-only claims ledger per identity, and a selective
// disclosure responder over profile fields and active claims.
package identity

import "time"

// Status is the lifecycle state of an identity.
type Status string

const (
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
)

// Profile field names recognised by selective disclosure.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCapabilities = "capabilities"
	FieldEndpoint     = "endpoint"
)

// Profile is the public, disclosable description of an agent.
type Profile struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Capabilities   []string `json:"capabilities"`
	Endpoint       string   `json:"endpoint,omitempty"`
	ExtraProtocols []string `json:"extra_protocols,omitempty"`
}

// Validate checks the mandatory fields: name, description and at least one
// capability.
func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return ErrInvalidProfile
	case p.Description == "":
		return ErrInvalidProfile
	case len(p.Capabilities) == 0:
		return ErrInvalidProfile
	}
	return nil
}

func (p Profile) clone() Profile {
	p.Capabilities = append([]string(nil), p.Capabilities...)
	p.ExtraProtocols = append([]string(nil), p.ExtraProtocols...)
	return p
}

// ProfileUpdate is a partial profile. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name           *string
	Description    *string
	Capabilities   []string
	Endpoint       *string
	ExtraProtocols []string
}

func (u ProfileUpdate) apply(p Profile) Profile {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Capabilities != nil {
		p.Capabilities = append([]string(nil), u.Capabilities...)
	}
	if u.Endpoint != nil {
		p.Endpoint = *u.Endpoint
	}
	if u.ExtraProtocols != nil {
		p.ExtraProtocols = append([]string(nil), u.ExtraProtocols...)
	}
	return p
}

// Identity is one agent's identity record.
type Identity struct {
	Handle          string    `json:"handle"`
	SubjectID       string    `json:"subject_id"`
	Profile         Profile   `json:"profile"`
	DecentralizedID string    `json:"decentralized_id"`
	Status          Status    `json:"status"`
	SequenceNumber  uint64    `json:"sequence_number"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (i *Identity) clone() Identity {
	c := *i
	c.Profile = i.Profile.clone()
	return c
}

// Claim is a typed assertion about an identity. Claims are never deleted.
type Claim struct {
	ID        string         `json:"id"`
	Issuer    string         `json:"issuer"`
	Subject   string         `json:"subject"`
	ClaimType string         `json:"claim_type"`
	Payload   map[string]any `json:"payload"`
	Proof     string         `json:"proof"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Revoked   bool           `json:"revoked"`
}

// Active reports whether the claim is unrevoked and unexpired at now.
func (c *Claim) Active(now time.Time) bool {
	if c.Revoked {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

func (c *Claim) clone() Claim {
	out := *c
	out.Payload = clonePayload(c.Payload)
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// DisclosureRequest asks for a subset of a subject's profile fields and
// claims.
type DisclosureRequest struct {
	Requester       string   `json:"requester"`
	SubjectDID      string   `json:"subject_did"`
	RequestedFields []string `json:"requested_fields"`
	Purpose         string   `json:"purpose"`
	Nonce           string   `json:"nonce"`
}

// DisclosureResponse carries exactly the requested fields that were
// available.
type DisclosureResponse struct {
	Disclosed map[string]any `json:"disclosed"`
	Proof     string         `json:"proof"`
	Nonce     string         `json:"nonce"`
}

package identity

import (
	"fmt"
	"log/slog"

	"github.com/patrickmn/go-cache"

	"github.com/opspawn/hedera-apex-marketplace/internal/codec"
)

// HandleDisclosure answers a selective disclosure request. Each requested
// field is looked up first among the profile fields, then among the claim
// types of the subject's active claims. Fields that match neither are left
// out of the response; they are never an error.
func (r *Registry) HandleDisclosure(req DisclosureRequest) (DisclosureResponse, error) {
	r.mu.RLock()
	handle, ok := r.byDID[req.SubjectDID]
	if !ok || r.identities[handle].Status == StatusRevoked {
		r.mu.RUnlock()
		return DisclosureResponse{}, fmt.Errorf("disclosure for %s: %w", req.SubjectDID, ErrSubjectNotFound)
	}
	profile := r.identities[handle].Profile.clone()
	claims := r.activeClaimsLocked(handle, r.opts.Clock.Now())
	r.mu.RUnlock()

	disclosed := make(map[string]any, len(req.RequestedFields))
	for _, field := range req.RequestedFields {
		if v, ok := profileField(profile, field); ok {
			disclosed[field] = v
			continue
		}
		for _, c := range claims {
			if c.ClaimType == field {
				disclosed[field] = c.Payload
				break
			}
		}
	}

	resp := DisclosureResponse{Disclosed: disclosed, Nonce: req.Nonce}
	encoded, err := codec.Marshal(map[string]any{
		"disclosed": disclosed,
		"requester": req.Requester,
		"subject":   req.SubjectDID,
		"nonce":     req.Nonce,
	})
	if err != nil {
		return DisclosureResponse{}, fmt.Errorf("disclosure for %s: encode proof input: %w", req.SubjectDID, err)
	}
	resp.Proof = digestProof(encoded)

	// The nonce is spent only once a response exists.
	if r.nonces != nil && req.Nonce != "" {
		key := req.Requester + "\x00" + req.Nonce
		if err := r.nonces.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			return DisclosureResponse{}, fmt.Errorf("disclosure for %s: %w", req.SubjectDID, ErrNonceReplayed)
		}
	}

	fields := make([]string, 0, len(disclosed))
	for k := range disclosed {
		fields = append(fields, k)
	}
	r.audit(EventDisclosure, handle, map[string]any{
		"requester": req.Requester,
		"purpose":   req.Purpose,
		"requested": req.RequestedFields,
		"disclosed": fields,
	})
	slog.Debug("Disclosure answered", "subject", req.SubjectDID, "requester", req.Requester, "fields", len(disclosed))
	return resp, nil
}

func profileField(p Profile, field string) (any, bool) {
	switch field {
	case FieldName:
		return p.Name, true
	case FieldDescription:
		return p.Description, true
	case FieldCapabilities:
		return p.Capabilities, true
	case FieldEndpoint:
		return p.Endpoint, true
	}
	return nil, false
}

// Package artifacts formats the documents published for a registered agent
// (profile, DID, skill manifest) and publishes skills to the topic registry.
package artifacts

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/opspawn/hedera-apex-marketplace/internal/codec"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

// Profile document constants.
const (
	ProfileVersion = "1.0"
	ProfileTypeAI  = "ai_agent"
)

var (
	ErrMissingField    = errors.New("artifacts: missing required field")
	ErrInvalidEndpoint = errors.New("artifacts: invalid endpoint")
)

// Builder is the default marketplace.ArtifactBuilder. It has no state
// besides the network used for DIDs.
type Builder struct {
	Network string
}

// NewBuilder returns a builder for network.
func NewBuilder(network string) *Builder {
	return &Builder{Network: network}
}

// BuildProfile renders agent as a profile document.
func (b *Builder) BuildProfile(agent marketplace.RegisteredAgent) (marketplace.ProfileDocument, error) {
	if agent.AgentID == "" || agent.Name == "" {
		return marketplace.ProfileDocument{}, fmt.Errorf("build profile: %w: agent id and name", ErrMissingField)
	}
	caps := make([]string, 0, len(agent.Skills))
	for _, s := range agent.Skills {
		caps = append(caps, s.Name)
	}
	doc := marketplace.ProfileDocument{
		Version:       ProfileVersion,
		Type:          ProfileTypeAI,
		DisplayName:   agent.Name,
		Alias:         alias(agent.Name),
		Bio:           agent.Description,
		InboundTopic:  agent.ChannelRefs.Inbound,
		OutboundTopic: agent.ChannelRefs.Outbound,
		ProfileTopic:  agent.ChannelRefs.Profile,
		Endpoint:      agent.Endpoint,
		Capabilities:  caps,
		Protocols:     append([]string(nil), agent.Protocols...),
		Properties: map[string]string{
			"agent_id":        agent.AgentID,
			"identity_handle": agent.IdentityHandle,
		},
	}
	if agent.PaymentAddress != "" {
		doc.Properties["payment_address"] = agent.PaymentAddress
	}
	return doc, nil
}

func alias(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// BuildDID returns the DID for agentID. A non-empty endpoint must be an
// absolute URL.
func (b *Builder) BuildDID(agentID, endpoint string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("build did: %w: agent id", ErrMissingField)
	}
	if endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("build did for %s: %w: %q", agentID, ErrInvalidEndpoint, endpoint)
		}
	}
	return identity.DeriveDID(b.Network, agentID), nil
}

// BuildSkillManifest assembles a manifest with a checksum over its
// deterministic encoding.
func (b *Builder) BuildSkillManifest(name, version, description, author string, skills []marketplace.Skill) (marketplace.SkillManifest, error) {
	if name == "" || version == "" {
		return marketplace.SkillManifest{}, fmt.Errorf("build skill manifest: %w: name and version", ErrMissingField)
	}
	m := marketplace.SkillManifest{
		Name:        name,
		Version:     version,
		Description: description,
		Author:      author,
		Skills:      append([]marketplace.Skill(nil), skills...),
	}
	sum, err := Checksum(m)
	if err != nil {
		return marketplace.SkillManifest{}, fmt.Errorf("build skill manifest %s: %w", name, err)
	}
	m.Checksum = sum
	return m, nil
}

// Checksum digests m with its Checksum field cleared.
func Checksum(m marketplace.SkillManifest) (string, error) {
	m.Checksum = ""
	data, err := codec.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:]), nil
}

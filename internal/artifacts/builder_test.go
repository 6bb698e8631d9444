package artifacts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

func sampleAgent() marketplace.RegisteredAgent {
	return marketplace.RegisteredAgent{
		AgentID:     "agent-1",
		Name:        "Code Reviewer",
		Description: "Reviews code",
		Skills: []marketplace.Skill{
			{ID: "review", Name: "Code Review", Pricing: marketplace.Pricing{Amount: 50, Token: "HBAR"}},
		},
		Endpoint:       "https://reviewer.example/a2a",
		Protocols:      []string{"a2a", "mcp"},
		PaymentAddress: "0.0.5005",
		ChannelRefs: marketplace.ChannelRefs{
			Inbound:  "mkt.agent.agent-1.inbound",
			Outbound: "mkt.agent.agent-1.outbound",
			Profile:  "mkt.agent.agent-1.profile",
		},
		IdentityHandle: "0.0.1001",
	}
}

func TestBuildProfile(t *testing.T) {
	b := NewBuilder("testnet")

	doc, err := b.BuildProfile(sampleAgent())
	require.NoError(t, err)
	assert.Equal(t, ProfileVersion, doc.Version)
	assert.Equal(t, ProfileTypeAI, doc.Type)
	assert.Equal(t, "code_reviewer", doc.Alias)
	assert.Equal(t, "mkt.agent.agent-1.inbound", doc.InboundTopic)
	assert.Equal(t, []string{"Code Review"}, doc.Capabilities)
	assert.Equal(t, "0.0.1001", doc.Properties["identity_handle"])
	assert.Equal(t, "0.0.5005", doc.Properties["payment_address"])

	_, err = b.BuildProfile(marketplace.RegisteredAgent{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBuildDID(t *testing.T) {
	b := NewBuilder("testnet")

	did, err := b.BuildDID("agent-1", "https://reviewer.example")
	require.NoError(t, err)
	assert.Equal(t, identity.DeriveDID("testnet", "agent-1"), did)

	did, err = b.BuildDID("agent-1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(did, "did:hedera:testnet:"))

	_, err = b.BuildDID("agent-1", "not a url")
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	_, err = b.BuildDID("", "")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBuildSkillManifestChecksum(t *testing.T) {
	b := NewBuilder("testnet")
	skills := sampleAgent().Skills

	m1, err := b.BuildSkillManifest("Code Reviewer", "1.0.0", "Reviews code", "agent-1", skills)
	require.NoError(t, err)
	m2, err := b.BuildSkillManifest("Code Reviewer", "1.0.0", "Reviews code", "agent-1", skills)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m1.Checksum, "blake3:"))
	assert.Equal(t, m1.Checksum, m2.Checksum)

	m3, err := b.BuildSkillManifest("Code Reviewer", "1.0.1", "Reviews code", "agent-1", skills)
	require.NoError(t, err)
	assert.NotEqual(t, m1.Checksum, m3.Checksum)

	sum, err := Checksum(m1)
	require.NoError(t, err)
	assert.Equal(t, m1.Checksum, sum, "checksum ignores the stored checksum field")

	_, err = b.BuildSkillManifest("", "1.0.0", "", "", nil)
	assert.ErrorIs(t, err, ErrMissingField)
}

package marketplace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/artifacts"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
	"github.com/opspawn/hedera-apex-marketplace/internal/reputation"
)

func TestRegisterHireRevokeHire(t *testing.T) {
	ctx := context.Background()
	reg := identity.NewRegistry()
	transport := messaging.NewMemoryTransport("marketplace", nil)
	topics := messaging.NewTopicManager("marketplace", nil)
	builder := artifacts.NewBuilder(reg.Network())
	ledger := reputation.NewLedger(nil)

	orch := marketplace.New(reg, func(o *marketplace.Options) {
		o.Messenger = transport
		o.Artifacts = builder
		o.Skills = artifacts.NewSkillRegistry(builder, topics, nil, "")
		o.Reputation = ledger
		o.RegistrationPoints = 10
	})

	res, err := orch.RegisterAgent(ctx, marketplace.Registration{
		AgentID:        "A",
		Name:           "Agent A",
		Description:    "Reviews code",
		Skills:         []marketplace.Skill{{ID: "review", Name: "Code Review", Pricing: marketplace.Pricing{Amount: 50, Token: "HBAR"}}},
		Endpoint:       "https://a.example/a2a",
		PaymentAddress: "0.0.4242",
	})
	require.NoError(t, err)
	require.True(t, res.Complete(), "failed steps: %v", res.FailedSteps())
	require.NotNil(t, res.Manifest)
	assert.Equal(t, []string{"review"}, topics.SkillNames())
	assert.Equal(t, 10, ledger.GetTotalPoints("A"))

	first, err := orch.Hire(ctx, marketplace.HireRequest{ClientID: "client", AgentID: "A", SkillID: "review"})
	require.NoError(t, err)
	assert.Equal(t, marketplace.TaskPending, first.Status)
	require.NotNil(t, first.Settlement)
	assert.Equal(t, 50.0, first.Settlement.Amount)
	assert.Equal(t, "HBAR", first.Settlement.Token)
	assert.Equal(t, "0.0.4242", first.Settlement.Payee)

	handle, err := orch.IdentityOf("A")
	require.NoError(t, err)
	_, err = reg.Revoke(handle)
	require.NoError(t, err)

	second, err := orch.Hire(ctx, marketplace.HireRequest{ClientID: "client", AgentID: "A", SkillID: "review"})
	require.NoError(t, err)
	assert.Equal(t, marketplace.TaskFailed, second.Status)
	assert.Equal(t, marketplace.ErrCodeIdentityVerification, second.ErrorCode())
	assert.Nil(t, second.Settlement)

	view, err := orch.GetProfile(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, marketplace.Revoked, view.VerificationStatus)
}

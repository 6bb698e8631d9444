package marketplace

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
)

func TestHirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, reviewRegistration("a1"))

	task, err := f.orch.Hire(ctx, HireRequest{ClientID: "client-1", AgentID: "a1", SkillID: "review", Input: map[string]any{"pr": 42}})
	require.NoError(t, err)

	assert.Equal(t, TaskPending, task.Status)
	require.NotNil(t, task.Settlement)
	assert.Equal(t, Settlement{Payer: "client-1", Payee: "0.0.9a1", Amount: 50, Token: "HBAR", Status: SettlementPending}, *task.Settlement)
	topic, _ := task.Output["task_topic"].(string)
	assert.Equal(t, "mkt.task."+task.TaskID, topic)
	assert.True(t, f.transport.HasChannel(topic))

	msgs := f.transport.Messages("mkt.agent.a1.inbound")
	require.Len(t, msgs, 1)
	assert.Equal(t, task.TaskID, msgs[0].Request.TaskID)
	assert.Equal(t, topic, msgs[0].Request.TaskTopic)
	assert.Equal(t, 42, msgs[0].Request.Input["pr"])

	stored, err := f.orch.GetHireTask(task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task, stored)
	require.Len(t, f.recorder.tasks, 1)
}

func TestHirePayerAccountOverridesClient(t *testing.T) {
	f := newFixture(t)
	f.register(t, reviewRegistration("a1"))

	task, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "client-1", AgentID: "a1", SkillID: "review", PayerAccount: "0.0.777"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.777", task.Settlement.Payer)
}

func TestHireMatchesByName(t *testing.T) {
	f := newFixture(t)
	f.register(t, reviewRegistration("a1"))

	task, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "Code Review"})
	require.NoError(t, err)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, "review", task.SkillID)
}

func TestHireUnknownAgentIsError(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Hire(context.Background(), HireRequest{AgentID: "ghost", SkillID: "review"})
	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.Empty(t, f.orch.ListHireTasks(""))
}

func TestHireSkillNotFound(t *testing.T) {
	f := newFixture(t)
	f.register(t, reviewRegistration("a1"))
	channels := len(f.transport.Channels())

	task, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "translate"})
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, ErrCodeSkillNotFound, task.ErrorCode())
	assert.Equal(t, []string{"review"}, task.Output["available_skills"])
	assert.Nil(t, task.Settlement)
	assert.Len(t, f.transport.Channels(), channels, "no task channel on gate failure")

	stored, err := f.orch.GetHireTask(task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, stored.Status)
}

func TestHireGatingOrderIdentityFirst(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, reviewRegistration("a1"))
	_, err := f.reg.Revoke(res.IdentityHandle)
	require.NoError(t, err)

	task, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, ErrCodeIdentityVerification, task.ErrorCode())
	assert.Equal(t, []string{identity.VerifyErrRevoked}, task.Output["details"])
	assert.Nil(t, task.Settlement)
}

func TestHireSuspendedIdentityFails(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, reviewRegistration("a1"))
	_, err := f.reg.Suspend(res.IdentityHandle)
	require.NoError(t, err)

	task, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "review"})
	require.NoError(t, err)
	assert.Equal(t, ErrCodeIdentityVerification, task.ErrorCode())
}

func TestHireTransportFailureStoresNothing(t *testing.T) {
	tr := &failingMessenger{MemoryTransport: messaging.NewMemoryTransport("mkt", nil)}
	f := newFixture(t, func(o *Options) { o.Messenger = tr })
	f.register(t, reviewRegistration("a1"))

	tr.failSend = true
	_, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "review"})
	require.ErrorIs(t, err, errBoom)

	tr.failSend = false
	tr.failMemoPrefix = "task."
	_, err = f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "review"})
	require.ErrorIs(t, err, errBoom)

	assert.Empty(t, f.orch.ListHireTasks("a1"))
}

func TestNoSettlementOnAnyFailedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, reviewRegistration("a1"))
	f.register(t, reviewRegistration("a2"))

	for _, skill := range []string{"review", "nope", "Code Review", ""} {
		_, err := f.orch.Hire(ctx, HireRequest{ClientID: "c", AgentID: "a2", SkillID: skill})
		require.NoError(t, err)
	}
	_, err := f.reg.Revoke(res.IdentityHandle)
	require.NoError(t, err)
	for _, skill := range []string{"review", "nope"} {
		_, err := f.orch.Hire(ctx, HireRequest{ClientID: "c", AgentID: "a1", SkillID: skill})
		require.NoError(t, err)
	}

	tasks := f.orch.ListHireTasks("")
	require.Len(t, tasks, 6)
	for _, task := range tasks {
		if task.Status == TaskFailed {
			assert.Nil(t, task.Settlement, "task %s", task.TaskID)
		} else {
			assert.NotNil(t, task.Settlement, "task %s", task.TaskID)
		}
	}
	assert.Len(t, f.orch.ListHireTasks("a1"), 2)
}

func TestGetHireTaskNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.GetHireTask("task-missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestHireConcurrentSameAgent(t *testing.T) {
	f := newFixture(t)
	f.register(t, reviewRegistration("a1"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Hire(context.Background(), HireRequest{ClientID: "c", AgentID: "a1", SkillID: "review"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tasks := f.orch.ListHireTasks("a1")
	require.Len(t, tasks, 20)
	seen := make(map[string]bool)
	for _, task := range tasks {
		assert.False(t, seen[task.TaskID], "duplicate task id")
		seen[task.TaskID] = true
	}
	assert.Len(t, f.transport.Messages("mkt.agent.a1.inbound"), 20)
}

func TestHireCaseDistinctAgentsUseOwnChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	upper := f.register(t, reviewRegistration("Alpha"))
	lower := f.register(t, reviewRegistration("alpha"))

	upperView, err := f.orch.GetProfile(ctx, upper.AgentID)
	require.NoError(t, err)
	lowerView, err := f.orch.GetProfile(ctx, lower.AgentID)
	require.NoError(t, err)
	require.NotEqual(t, upperView.Agent.ChannelRefs.Inbound, lowerView.Agent.ChannelRefs.Inbound)

	task, err := f.orch.Hire(ctx, HireRequest{ClientID: "c", AgentID: "alpha", SkillID: "review"})
	require.NoError(t, err)
	require.Equal(t, TaskPending, task.Status)

	assert.Empty(t, f.transport.Messages(upperView.Agent.ChannelRefs.Inbound))
	msgs := f.transport.Messages(lowerView.Agent.ChannelRefs.Inbound)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alpha", msgs[0].Request.AgentID)
}

package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
)

// Hire gates a hire request on the agent's identity and then on the
// requested skill. Gate failures are returned as failed tasks, not errors.
// Hires against the same agent are serialized.
func (o *Orchestrator) Hire(ctx context.Context, req HireRequest) (HireTask, error) {
	o.mu.RLock()
	entry, ok := o.agents[req.AgentID]
	var agent RegisteredAgent
	if ok {
		agent = entry.agent.clone()
	}
	o.mu.RUnlock()
	if !ok {
		return HireTask{}, fmt.Errorf("hire %s: %w", req.AgentID, ErrAgentNotFound)
	}

	lock := o.hireLock(agent.AgentID)
	lock.Lock()
	defer lock.Unlock()

	task := HireTask{
		TaskID:    "task-" + uuid.NewString(),
		AgentID:   agent.AgentID,
		SkillID:   req.SkillID,
		ClientID:  req.ClientID,
		CreatedAt: o.opts.Clock.Now(),
	}

	if v := o.identities.Verify(agent.IdentityHandle); !v.Valid {
		task.Status = TaskFailed
		task.Output = map[string]any{
			"error":   ErrCodeIdentityVerification,
			"details": append([]string(nil), v.Errors...),
		}
		slog.Info("Hire rejected", "agent_id", agent.AgentID, "reason", ErrCodeIdentityVerification, "errors", v.Errors)
		return o.storeTask(task), nil
	}

	skill, ok := MatchSkill(agent.Skills, req.SkillID)
	if !ok {
		task.Status = TaskFailed
		task.Output = map[string]any{
			"error":            ErrCodeSkillNotFound,
			"available_skills": skillIDs(agent.Skills),
		}
		slog.Info("Hire rejected", "agent_id", agent.AgentID, "reason", ErrCodeSkillNotFound, "skill", req.SkillID)
		return o.storeTask(task), nil
	}
	task.SkillID = skill.ID

	topic, err := o.opts.Messenger.CreateChannel(ctx, messaging.TaskMemo(task.TaskID))
	if err != nil {
		return HireTask{}, fmt.Errorf("hire %s: open task channel: %w", agent.AgentID, err)
	}

	payer := req.PayerAccount
	if payer == "" {
		payer = req.ClientID
	}
	token := skill.Pricing.Token
	if token == "" {
		token = o.opts.DefaultToken
	}
	settlement := &Settlement{
		Payer:  payer,
		Payee:  agent.PaymentAddress,
		Amount: skill.Pricing.Amount,
		Token:  token,
		Status: SettlementPending,
	}

	ack, err := o.opts.Messenger.SendTaskRequest(ctx, agent.ChannelRefs.Inbound, messaging.TaskRequest{
		TaskID:    task.TaskID,
		AgentID:   agent.AgentID,
		SkillID:   skill.ID,
		ClientID:  req.ClientID,
		Input:     req.Input,
		TaskTopic: topic,
		Amount:    settlement.Amount,
		Token:     settlement.Token,
	})
	if err != nil {
		return HireTask{}, fmt.Errorf("hire %s: send task request: %w", agent.AgentID, err)
	}

	task.Status = TaskPending
	task.Output = map[string]any{"task_topic": topic}
	task.Settlement = settlement
	slog.Info("Hire accepted", "agent_id", agent.AgentID, "task_id", task.TaskID, "skill", skill.ID, "message_id", ack.MessageID)
	return o.storeTask(task), nil
}

func (o *Orchestrator) hireLock(agentID string) *sync.Mutex {
	o.hireMu.Lock()
	defer o.hireMu.Unlock()
	l, ok := o.hireLocks[agentID]
	if !ok {
		l = &sync.Mutex{}
		o.hireLocks[agentID] = l
	}
	return l
}

func (o *Orchestrator) storeTask(task HireTask) HireTask {
	stored := task.clone()
	o.mu.Lock()
	o.tasks[task.TaskID] = &stored
	o.taskOrder = append(o.taskOrder, task.TaskID)
	o.mu.Unlock()

	if o.opts.Recorder != nil {
		if err := o.opts.Recorder.RecordHireTask(task.clone()); err != nil {
			slog.Debug("Hire task record failed", "task_id", task.TaskID, "error", err)
		}
	}
	return task
}

// GetHireTask returns the task with taskID.
func (o *Orchestrator) GetHireTask(taskID string) (HireTask, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.tasks[taskID]
	if !ok {
		return HireTask{}, fmt.Errorf("get hire task %s: %w", taskID, ErrTaskNotFound)
	}
	return t.clone(), nil
}

// ListHireTasks returns tasks in creation order, restricted to agentID
// unless it is empty.
func (o *Orchestrator) ListHireTasks(agentID string) []HireTask {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := []HireTask{}
	for _, id := range o.taskOrder {
		t := o.tasks[id]
		if agentID == "" || t.AgentID == agentID {
			out = append(out, t.clone())
		}
	}
	return out
}

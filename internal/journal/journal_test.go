package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

func newTestJournal(t *testing.T) (*Journal, *clock.FakeClock) {
	t.Helper()
	fc := clock.Fake(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), fc)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j, fc
}

var _ identity.Auditor = (*Journal)(nil)
var _ marketplace.Recorder = (*Journal)(nil)

func TestRecordAndListEvents(t *testing.T) {
	j, fc := newTestJournal(t)

	if err := j.Record(identity.EventIdentityCreated, "0.0.1001", map[string]any{"subject_id": "a1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	fc.Advance(time.Second)
	if err := j.Record(identity.EventIdentityRevoked, "0.0.1001", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	all, err := j.ListEvents("", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	if all[0].Kind != identity.EventIdentityRevoked {
		t.Errorf("expected newest first, got %s", all[0].Kind)
	}
	if !all[0].CreatedAt.Equal(fc.Now()) {
		t.Errorf("expected created_at %v, got %v", fc.Now(), all[0].CreatedAt)
	}

	created, err := j.ListEvents(identity.EventIdentityCreated, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(created) != 1 || created[0].Details["subject_id"] != "a1" {
		t.Errorf("unexpected filtered events %+v", created)
	}

	limited, err := j.ListEvents("", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit 1, got %d", len(limited))
	}
}

func TestRecordRegistration(t *testing.T) {
	j, _ := newTestJournal(t)

	res := marketplace.RegistrationResult{
		AgentID:        "a1",
		IdentityHandle: "0.0.1001",
		Steps: []marketplace.StepOutcome{
			{Step: marketplace.StepAllocateChannels, Status: marketplace.StepOK, Fatal: true},
			{Step: marketplace.StepBuildProfile, Status: marketplace.StepFailed, Error: "boom"},
		},
	}
	if err := j.RecordRegistration(res); err != nil {
		t.Fatalf("record registration: %v", err)
	}

	regs, err := j.ListRegistrations(0)
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(regs))
	}
	r := regs[0]
	if r.AgentID != "a1" || r.IdentityHandle != "0.0.1001" || r.Complete {
		t.Errorf("unexpected registration %+v", r)
	}
	if len(r.FailedSteps) != 1 || r.FailedSteps[0] != marketplace.StepBuildProfile {
		t.Errorf("unexpected failed steps %v", r.FailedSteps)
	}

	events, err := j.ListEvents(KindRegistration, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Subject != "a1" {
		t.Errorf("expected registration event, got %+v", events)
	}
}

func TestRecordHireTask(t *testing.T) {
	j, fc := newTestJournal(t)

	pending := marketplace.HireTask{
		TaskID:   "task-1",
		AgentID:  "a1",
		SkillID:  "review",
		ClientID: "c1",
		Status:   marketplace.TaskPending,
		Output:   map[string]any{"task_topic": "mkt.task.task-1"},
		Settlement: &marketplace.Settlement{
			Payer: "c1", Payee: "0.0.9", Amount: 50, Token: "HBAR", Status: marketplace.SettlementPending,
		},
		CreatedAt: fc.Now(),
	}
	failed := marketplace.HireTask{
		TaskID:    "task-2",
		AgentID:   "a2",
		SkillID:   "nope",
		Status:    marketplace.TaskFailed,
		Output:    map[string]any{"error": marketplace.ErrCodeSkillNotFound},
		CreatedAt: fc.Now().Add(time.Second),
	}
	for _, task := range []marketplace.HireTask{pending, failed} {
		if err := j.RecordHireTask(task); err != nil {
			t.Fatalf("record hire task: %v", err)
		}
	}

	all, err := j.ListHireTasks("", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}
	if all[0].TaskID != "task-1" || all[0].SettlementAmount != 50 || all[0].SettlementToken != "HBAR" {
		t.Errorf("unexpected pending task %+v", all[0])
	}
	if all[0].Output["task_topic"] != "mkt.task.task-1" {
		t.Errorf("unexpected output %v", all[0].Output)
	}
	if all[1].ErrorCode != marketplace.ErrCodeSkillNotFound || all[1].SettlementStatus != "" {
		t.Errorf("unexpected failed task %+v", all[1])
	}

	byAgent, err := j.ListHireTasks("a2", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byAgent) != 1 || byAgent[0].TaskID != "task-2" {
		t.Errorf("unexpected agent filter result %+v", byAgent)
	}

	// Re-recording updates in place.
	pending.Status = marketplace.TaskCompleted
	if err := j.RecordHireTask(pending); err != nil {
		t.Fatalf("re-record: %v", err)
	}
	all, err = j.ListHireTasks("a1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Status != string(marketplace.TaskCompleted) {
		t.Errorf("expected updated task, got %+v", all)
	}
}

func TestJournalAsRegistryAuditor(t *testing.T) {
	j, _ := newTestJournal(t)
	reg := identity.NewRegistry(func(o *identity.Options) { o.Auditor = j })

	id, err := reg.CreateIdentity("a1", identity.Profile{Name: "n", Description: "d", Capabilities: []string{"c"}})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	if _, err := reg.Revoke(id.Handle); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	events, err := j.ListEvents("", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Kind != identity.EventIdentityCreated || events[1].Subject != id.Handle {
		t.Errorf("unexpected first event %+v", events[1])
	}
}

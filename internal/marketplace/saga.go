package marketplace

// Registration steps in execution order.
const (
	StepAllocateChannels   = "allocate_channels"
	StepCreateIdentity     = "create_identity"
	StepBuildProfile       = "build_profile"
	StepBuildDID           = "build_did"
	StepBuildSkillManifest = "build_skill_manifest"
	StepIndexIdentity      = "index_identity"
	StepPublishSkills      = "publish_skills"
	StepAwardReputation    = "award_reputation"
)

// StepStatus is the outcome of one registration step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepOutcome records one step. Fatal steps abort registration when they
// fail; the rest are best-effort.
type StepOutcome struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Fatal  bool       `json:"fatal"`
	Error  string     `json:"error,omitempty"`
}

// RegistrationResult is the record of one registration. Steps that ran
// before a fatal failure stay committed; the result shows which.
type RegistrationResult struct {
	AgentID         string           `json:"agent_id"`
	IdentityHandle  string           `json:"identity_handle,omitempty"`
	DecentralizedID string           `json:"decentralized_id,omitempty"`
	Steps           []StepOutcome    `json:"steps"`
	Manifest        *SkillManifest   `json:"manifest,omitempty"`
	Published       []PublishedSkill `json:"published,omitempty"`
	View            *MarketplaceView `json:"view,omitempty"`
}

// Complete reports whether every step that ran succeeded.
func (r *RegistrationResult) Complete() bool {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return false
		}
	}
	return true
}

// FailedSteps returns the names of failed steps in order.
func (r *RegistrationResult) FailedSteps() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			out = append(out, s.Step)
		}
	}
	return out
}

// Step returns the outcome for name.
func (r *RegistrationResult) Step(name string) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepOutcome{}, false
}

func (r *RegistrationResult) record(step string, fatal bool, err error) {
	o := StepOutcome{Step: step, Status: StepOK, Fatal: fatal}
	if err != nil {
		o.Status = StepFailed
		o.Error = err.Error()
	}
	r.Steps = append(r.Steps, o)
}

func (r *RegistrationResult) skip(step string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StepSkipped})
}

package core

// OrchestrationVersion identifies the code version and the patches an orchestration task ran with.
type OrchestrationVersion struct {
	Name string `json:"name,omitempty"`

	Patches []string `json:"patches,omitempty"`
}

type OrchestratorResult struct {
	InstanceID string `json:"instanceId"`

	Actions []*Action `json:"actions,omitempty"`

	CustomStatus string `json:"customStatus,omitempty"`

	Version *OrchestrationVersion `json:"version,omitempty"`

	CompletionToken []byte `json:"completionToken"`
}

func NewOrchestratorResult(
	instanceID string, actions []*Action, customStatus string, version *OrchestrationVersion, completionToken []byte,
) *OrchestratorResult {
	return &OrchestratorResult{
		InstanceID:      instanceID,
		Actions:         actions,
		CustomStatus:    customStatus,
		Version:         version,
		CompletionToken: completionToken,
	}
}

// ActivityResult reports the outcome of an activity work item. At most one of Output and Failure is set;
// if neither is, the activity completed without producing output.
type ActivityResult struct {
	InstanceID string `json:"instanceId"`

	TaskID int32 `json:"taskId"`

	Output *string `json:"output,omitempty"`

	Failure *FailureDetails `json:"failure,omitempty"`

	CompletionToken []byte `json:"completionToken"`
}

func (r *ActivityResult) Failed() bool {
	return r.Failure != nil
}

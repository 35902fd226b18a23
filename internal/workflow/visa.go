package workflow

import (
	"fmt"

	"hrportal/internal/model"
)

// VisaSteps is the fixed order in which visa documents must be approved
var VisaSteps = []model.DocumentType{
	model.DocumentOPTReceipt,
	model.DocumentOPTEAD,
	model.DocumentI983,
	model.DocumentI20,
}

const (
	ReasonStepApproved = "step already approved"
	ReasonFlowLocked   = "flow already completed and locked"
)

// StepDecision is the outcome of a visa ordering check
type StepDecision struct {
	Allowed bool
	Reason  string
}

// VisaStepIndex returns the position of t in VisaSteps, or -1
func VisaStepIndex(t model.DocumentType) int {
	for i, s := range VisaSteps {
		if s == t {
			return i
		}
	}
	return -1
}

// ValidateVisaStep decides whether requested may be uploaded given the
// statuses the user already has. Missing entries count as not started.
// Non-visa types are always allowed.
func ValidateVisaStep(existing map[model.DocumentType]model.DocumentStatus, requested model.DocumentType) StepDecision {
	idx := VisaStepIndex(requested)
	if idx < 0 {
		return StepDecision{Allowed: true}
	}

	if VisaFlowComplete(existing) {
		return StepDecision{Reason: ReasonFlowLocked}
	}

	if existing[requested] == model.DocumentApproved {
		return StepDecision{Reason: ReasonStepApproved}
	}

	for _, prev := range VisaSteps[:idx] {
		if existing[prev] != model.DocumentApproved {
			return StepDecision{Reason: fmt.Sprintf("Previous step (%s) must be approved first", prev)}
		}
	}

	return StepDecision{Allowed: true}
}

// VisaFlowComplete reports whether every visa step is approved
func VisaFlowComplete(existing map[model.DocumentType]model.DocumentStatus) bool {
	for _, s := range VisaSteps {
		if existing[s] != model.DocumentApproved {
			return false
		}
	}
	return true
}

// CurrentVisaStep returns the first step that is not yet approved.
// ok is false once the flow is complete.
func CurrentVisaStep(existing map[model.DocumentType]model.DocumentStatus) (model.DocumentType, bool) {
	for _, s := range VisaSteps {
		if existing[s] != model.DocumentApproved {
			return s, true
		}
	}
	return "", false
}

// Package workflow holds the status machines for documents and onboarding
// applications, and the ordering rules for the visa document flow.
package workflow

import (
	"errors"
	"fmt"

	"hrportal/internal/model"
)

// Trigger is an action that moves an entity between statuses
type Trigger string

const (
	TriggerUpload  Trigger = "upload"
	TriggerSubmit  Trigger = "submit"
	TriggerApprove Trigger = "approve"
	TriggerReject  Trigger = "reject"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type documentEdge struct {
	from    model.DocumentStatus
	trigger Trigger
}

var documentTransitions = map[documentEdge]model.DocumentStatus{
	{model.DocumentNotStarted, TriggerUpload}: model.DocumentPending,
	{model.DocumentPending, TriggerUpload}:    model.DocumentPending,
	{model.DocumentRejected, TriggerUpload}:   model.DocumentPending,
	{model.DocumentPending, TriggerApprove}:   model.DocumentApproved,
	{model.DocumentPending, TriggerReject}:    model.DocumentRejected,
}

type onboardingEdge struct {
	from    model.OnboardingStatus
	trigger Trigger
}

var onboardingTransitions = map[onboardingEdge]model.OnboardingStatus{
	{model.OnboardingNeverSubmitted, TriggerSubmit}: model.OnboardingPending,
	{model.OnboardingRejected, TriggerSubmit}:       model.OnboardingPending,
	{model.OnboardingPending, TriggerApprove}:       model.OnboardingApproved,
	{model.OnboardingPending, TriggerReject}:        model.OnboardingRejected,
}

// NextDocumentStatus returns the status a document moves to when trigger fires.
// Approved is terminal.
func NextDocumentStatus(from model.DocumentStatus, trigger Trigger) (model.DocumentStatus, error) {
	to, ok := documentTransitions[documentEdge{from, trigger}]
	if !ok {
		return from, fmt.Errorf("%w: document cannot %s from %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

// NextOnboardingStatus returns the status an application moves to when trigger fires
func NextOnboardingStatus(from model.OnboardingStatus, trigger Trigger) (model.OnboardingStatus, error) {
	to, ok := onboardingTransitions[onboardingEdge{from, trigger}]
	if !ok {
		return from, fmt.Errorf("%w: application cannot %s from %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

// DecisionTrigger maps a review decision ("approved" or "rejected") to its trigger
func DecisionTrigger(decision string) (Trigger, bool) {
	switch decision {
	case string(model.DocumentApproved):
		return TriggerApprove, true
	case string(model.DocumentRejected):
		return TriggerReject, true
	}
	return "", false
}

// DocumentSubmittable lists the statuses an upload may start from
func DocumentSubmittable() []model.DocumentStatus {
	return statusesFor(TriggerUpload)
}

func statusesFor(trigger Trigger) []model.DocumentStatus {
	var out []model.DocumentStatus
	for _, s := range []model.DocumentStatus{model.DocumentNotStarted, model.DocumentPending, model.DocumentApproved, model.DocumentRejected} {
		if _, ok := documentTransitions[documentEdge{s, trigger}]; ok {
			out = append(out, s)
		}
	}
	return out
}

// OnboardingSubmittable lists the statuses a submission may start from
func OnboardingSubmittable() []model.OnboardingStatus {
	var out []model.OnboardingStatus
	for _, s := range []model.OnboardingStatus{model.OnboardingNeverSubmitted, model.OnboardingPending, model.OnboardingApproved, model.OnboardingRejected} {
		if _, ok := onboardingTransitions[onboardingEdge{s, TriggerSubmit}]; ok {
			out = append(out, s)
		}
	}
	return out
}

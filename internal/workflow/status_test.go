package workflow

import (
	"errors"
	"testing"

	"hrportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDocumentStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    model.DocumentStatus
		trigger Trigger
		want    model.DocumentStatus
		wantErr bool
	}{
		{"first upload", model.DocumentNotStarted, TriggerUpload, model.DocumentPending, false},
		{"re-upload while pending", model.DocumentPending, TriggerUpload, model.DocumentPending, false},
		{"re-upload after rejection", model.DocumentRejected, TriggerUpload, model.DocumentPending, false},
		{"approve pending", model.DocumentPending, TriggerApprove, model.DocumentApproved, false},
		{"reject pending", model.DocumentPending, TriggerReject, model.DocumentRejected, false},
		{"upload over approved", model.DocumentApproved, TriggerUpload, model.DocumentApproved, true},
		{"approve approved", model.DocumentApproved, TriggerApprove, model.DocumentApproved, true},
		{"reject rejected", model.DocumentRejected, TriggerReject, model.DocumentRejected, true},
		{"approve not started", model.DocumentNotStarted, TriggerApprove, model.DocumentNotStarted, true},
		{"submit is not a document trigger", model.DocumentNotStarted, TriggerSubmit, model.DocumentNotStarted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDocumentStatus(tt.from, tt.trigger)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOnboardingStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    model.OnboardingStatus
		trigger Trigger
		want    model.OnboardingStatus
		wantErr bool
	}{
		{"first submission", model.OnboardingNeverSubmitted, TriggerSubmit, model.OnboardingPending, false},
		{"resubmission after rejection", model.OnboardingRejected, TriggerSubmit, model.OnboardingPending, false},
		{"approve pending", model.OnboardingPending, TriggerApprove, model.OnboardingApproved, false},
		{"reject pending", model.OnboardingPending, TriggerReject, model.OnboardingRejected, false},
		{"submit while pending", model.OnboardingPending, TriggerSubmit, model.OnboardingPending, true},
		{"submit after approval", model.OnboardingApproved, TriggerSubmit, model.OnboardingApproved, true},
		{"review never submitted", model.OnboardingNeverSubmitted, TriggerApprove, model.OnboardingNeverSubmitted, true},
		{"reject approved", model.OnboardingApproved, TriggerReject, model.OnboardingApproved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOnboardingStatus(tt.from, tt.trigger)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecisionTrigger(t *testing.T) {
	trig, ok := DecisionTrigger("approved")
	assert.True(t, ok)
	assert.Equal(t, TriggerApprove, trig)

	trig, ok = DecisionTrigger("rejected")
	assert.True(t, ok)
	assert.Equal(t, TriggerReject, trig)

	_, ok = DecisionTrigger("pending")
	assert.False(t, ok)
	_, ok = DecisionTrigger("")
	assert.False(t, ok)
}

func TestSubmittableStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]model.DocumentStatus{model.DocumentNotStarted, model.DocumentPending, model.DocumentRejected},
		DocumentSubmittable())
	assert.ElementsMatch(t,
		[]model.OnboardingStatus{model.OnboardingNeverSubmitted, model.OnboardingRejected},
		OnboardingSubmittable())
}

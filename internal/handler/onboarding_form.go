package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OnboardingForm is the minimum shape an onboarding submission must have.
// Fields outside it are stored as sent.
type OnboardingForm struct {
	FirstName         string             `json:"first_name" validate:"required,max=100"`
	LastName          string             `json:"last_name" validate:"required,max=100"`
	MiddleName        string             `json:"middle_name" validate:"omitempty,max=100"`
	PreferredName     string             `json:"preferred_name" validate:"omitempty,max=100"`
	Email             string             `json:"email" validate:"omitempty,email"`
	Phone             string             `json:"phone" validate:"omitempty,max=30"`
	DateOfBirth       string             `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender            string             `json:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	WorkAuthorization string             `json:"work_authorization" validate:"omitempty,oneof=citizen green_card visa"`
	Address           *OnboardingAddress `json:"address" validate:"omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts" validate:"omitempty,max=5,dive"`
}

type OnboardingAddress struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
}

type EmergencyContact struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,max=30"`
	Relationship string `json:"relationship" validate:"omitempty,max=50"`
}

var formValidator = validator.New()

// validateOnboardingForm checks raw against OnboardingForm and returns a readable message on failure
func validateOnboardingForm(raw json.RawMessage) error {
	var form OnboardingForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return fmt.Errorf("form_data must be a JSON object: %v", err)
	}
	if err := formValidator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid form_data: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid form_data: %v", err)
	}
	return nil
}

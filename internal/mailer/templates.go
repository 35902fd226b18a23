package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"hrportal/internal/model"
)

// Message is a rendered email ready for a Sender
type Message struct {
	To      string
	Subject string
	Body    string
}

var documentRejectedBody = template.Must(template.New("document_rejected").Parse(
	`Hello,

Your {{.DocumentType}} document was reviewed by {{.ReviewerName}} and was not accepted.
{{if .Feedback}}
Feedback from HR:
{{.Feedback}}
{{end}}
Please sign in to the portal and upload a corrected document.
`))

var onboardingRejectedBody = template.Must(template.New("onboarding_rejected").Parse(
	`Hello,

Your onboarding application was reviewed by {{.ReviewerName}} and needs changes.
{{if .Feedback}}
Feedback from HR:
{{.Feedback}}
{{end}}
Please sign in to the portal, update your application and submit it again.
`))

// Render turns a queued job into a message. Unknown kinds and undecodable payloads are permanent errors.
func Render(job model.EmailJob) (Message, error) {
	switch job.Kind {
	case model.EmailDocumentRejected:
		var p model.DocumentRejectedEmail
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("decode %s payload: %w", job.Kind, err)
		}
		p.DocumentType = strings.ReplaceAll(p.DocumentType, "_", " ")
		return render(p.Recipient, "Your document was rejected", documentRejectedBody, p)

	case model.EmailOnboardingRejected:
		var p model.OnboardingRejectedEmail
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("decode %s payload: %w", job.Kind, err)
		}
		return render(p.Recipient, "Your onboarding application needs changes", onboardingRejectedBody, p)
	}
	return Message{}, fmt.Errorf("unknown email kind %q", job.Kind)
}

func render(to, subject string, tmpl *template.Template, data interface{}) (Message, error) {
	if to == "" {
		return Message{}, fmt.Errorf("email has no recipient")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return Message{To: to, Subject: subject, Body: buf.String()}, nil
}

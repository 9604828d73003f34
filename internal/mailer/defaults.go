package mailer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

// Built-in template keys.
const (
	TemplateRegistrationReceived = "registration_received"
	TemplateParticipantApproved  = "participant_approved"
	TemplateParticipantRejected  = "participant_rejected"
	TemplateTeamAssigned         = "team_assigned"
	TemplateJudgeInvitation      = "judge_invitation"
	TemplateCertificateIssued    = "certificate_issued"
)

//go:embed defaults/templates.yaml
var defaultsYAML []byte

// DefaultTemplate is one built-in email template.
type DefaultTemplate struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Defaults parses the embedded built-in templates.
func Defaults() ([]DefaultTemplate, error) {
	var out []DefaultTemplate
	if err := yaml.Unmarshal(defaultsYAML, &out); err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	return out, nil
}

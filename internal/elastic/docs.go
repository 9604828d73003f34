package elastic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type HackathonDoc struct {
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	UpdatedAt time.Time `json:"updated_at"`
}

func BuildHackathonDoc(h models.Hackathon) ([]byte, error) {
	return json.Marshal(HackathonDoc{h.Title, h.Location, h.Status, h.StartDate, h.EndDate, h.UpdatedAt})
}

type ParticipantDoc struct {
	HackathonID string    `json:"hackathon_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	TeamID      string    `json:"team_id,omitempty"`
	Answers     string    `json:"answers"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BuildParticipantDoc expects p.User to be loaded. Answers are flattened into
// one searchable text field.
func BuildParticipantDoc(p models.Participant) ([]byte, error) {
	doc := ParticipantDoc{
		HackathonID: p.HackathonID.String(),
		Name:        p.User.Name,
		Email:       p.User.Email,
		Status:      p.Status,
		Answers:     flattenAnswers(p.Answers),
		UpdatedAt:   p.UpdatedAt,
	}
	if p.TeamID != nil {
		doc.TeamID = p.TeamID.String()
	}
	return json.Marshal(doc)
}

type TeamDoc struct {
	HackathonID     string    `json:"hackathon_id"`
	Name            string    `json:"name"`
	IdeaTitle       string    `json:"idea_title"`
	IdeaDescription string    `json:"idea_description"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func BuildTeamDoc(t models.Team) ([]byte, error) {
	return json.Marshal(TeamDoc{t.HackathonID.String(), t.Name, t.IdeaTitle, t.IdeaDescription, t.UpdatedAt})
}

func flattenAnswers(raw []byte) string {
	var answers map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &answers) != nil {
		return ""
	}
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprint(answers[k]))
	}
	return strings.Join(parts, " ")
}

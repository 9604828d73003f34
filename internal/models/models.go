package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles
const (
	RoleAdmin       = "admin"
	RoleSupervisor  = "supervisor"
	RoleJudge       = "judge"
	RoleParticipant = "participant"
)

// Hackathon statuses
const (
	HackathonDraft     = "draft"
	HackathonOpen      = "open"
	HackathonClosed    = "closed"
	HackathonCompleted = "completed"
)

// Participant statuses
const (
	ParticipantPending  = "pending"
	ParticipantApproved = "approved"
	ParticipantRejected = "rejected"
)

// Base carries the UUID primary key and timestamps shared by every table.
// The key is generated client side so the same models work on Postgres and SQLite.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ---------------- USERS ----------------
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	Role         string `gorm:"index;not null" json:"role"`
	PasswordHash string `json:"-"`
}

type Session struct {
	Base
	TokenHash string    `gorm:"uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"index"`
}

// ---------------- HACKATHONS ----------------
type Hackathon struct {
	Base
	Title              string         `gorm:"not null" json:"title"`
	Description        string         `json:"description"`
	Location           string         `json:"location"`
	StartDate          time.Time      `json:"startDate"`
	EndDate            time.Time      `json:"endDate"`
	Status             string         `gorm:"index;not null;default:draft" json:"status"`
	MaxParticipants    int            `json:"maxParticipants"`
	TeamSize           int            `gorm:"default:4" json:"teamSize"`
	EvaluationCriteria datatypes.JSON `json:"evaluationCriteria"` // []Criterion
}

// Criterion is one judging axis stored in Hackathon.EvaluationCriteria.
type Criterion struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"maxScore"`
}

type SupervisorAssignment struct {
	Base
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_supervisor_hackathon;not null" json:"userId"`
	HackathonID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_supervisor_hackathon;not null" json:"hackathonId"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Hackathon   Hackathon `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type JudgeAssignment struct {
	Base
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_judge_hackathon;not null" json:"userId"`
	HackathonID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_judge_hackathon;not null" json:"hackathonId"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Hackathon   Hackathon `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ---------------- FORMS ----------------
type FormSchedule struct {
	Base
	HackathonID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"hackathonId"`
	OpenAt        time.Time `json:"openAt"`
	CloseAt       time.Time `json:"closeAt"`
	ClosedMessage string    `json:"closedMessage"`
}

// Custom field types
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldEmail    = "email"
	FieldNumber   = "number"
	FieldSelect   = "select"
	FieldCheckbox = "checkbox"
)

type CustomField struct {
	Base
	HackathonID uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_field_key;not null" json:"hackathonId"`
	Key         string         `gorm:"column:field_key;uniqueIndex:idx_field_key;not null" json:"key"`
	Label       string         `gorm:"not null" json:"label"`
	Type        string         `gorm:"not null" json:"type"`
	Required    bool           `json:"required"`
	Options     datatypes.JSON `json:"options"` // []string, select only
	Position    int            `json:"position"`
}

// ---------------- PARTICIPANTS & TEAMS ----------------
type Participant struct {
	Base
	UserID      uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_participant_hackathon;not null" json:"userId"`
	HackathonID uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_participant_hackathon;index;not null" json:"hackathonId"`
	Status      string         `gorm:"index;not null;default:pending" json:"status"`
	Answers     datatypes.JSON `json:"answers"` // map[string]any keyed by CustomField.Key
	TeamID      *uuid.UUID     `gorm:"type:uuid;index" json:"teamId"`
	User        User           `json:"user"`
}

type Team struct {
	Base
	HackathonID     uuid.UUID     `gorm:"type:uuid;uniqueIndex:idx_team_name;not null" json:"hackathonId"`
	Name            string        `gorm:"uniqueIndex:idx_team_name;not null" json:"name"`
	IdeaTitle       string        `json:"ideaTitle"`
	IdeaDescription string        `json:"ideaDescription"`
	FileURL         string        `json:"fileUrl"`
	AutoCreated     bool          `json:"autoCreated"`
	Members         []Participant `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

type Submission struct {
	Base
	TeamID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"teamId"`
	HackathonID   uuid.UUID `gorm:"type:uuid;index;not null" json:"hackathonId"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	RepositoryURL string    `json:"repositoryUrl"`
	FileURL       string    `json:"fileUrl"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type Evaluation struct {
	Base
	JudgeID     uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_evaluation;not null" json:"judgeId"`
	TeamID      uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_evaluation;index;not null" json:"teamId"`
	HackathonID uuid.UUID      `gorm:"type:uuid;index;not null" json:"hackathonId"`
	Scores      datatypes.JSON `json:"scores"` // map[criterion]float64
	Total       float64        `json:"total"`
	Notes       string         `json:"notes"`
}

// ---------------- EMAIL ----------------
type EmailTemplate struct {
	Base
	Key      string `gorm:"column:template_key;uniqueIndex;not null" json:"key"`
	Name     string `gorm:"not null" json:"name"`
	Subject  string `gorm:"not null" json:"subject"`
	Body     string `gorm:"type:text;not null" json:"body"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

type EmailLog struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	HackathonID *uuid.UUID `gorm:"type:uuid;index" json:"hackathonId"`
	TemplateKey string     `gorm:"index" json:"templateKey"`
	Recipient   string     `gorm:"not null" json:"recipient"`
	Status      string     `gorm:"not null" json:"status"` // sent | failed
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ---------------- CERTIFICATES & LANDING ----------------
type Certificate struct {
	Base
	ParticipantID uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null" json:"participantId"`
	HackathonID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"hackathonId"`
	Code          string      `gorm:"uniqueIndex;not null" json:"code"`
	IssuedAt      time.Time   `json:"issuedAt"`
	Participant   Participant `json:"participant"`
	Hackathon     Hackathon   `json:"hackathon"`
}

type LandingPage struct {
	Base
	HackathonID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"hackathonId"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string    `json:"title"`
	HTML        string    `gorm:"type:text" json:"html"`
	CSS         string    `gorm:"type:text" json:"css"`
	Published   bool      `json:"published"`
}

// ---------------- OUTBOX (for sync events) ----------------
type Outbox struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string         `gorm:"index;not null" json:"entityType"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null" json:"entityId"`
	Op         string         `gorm:"not null" json:"op"` // UPSERT | DELETE
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"createdAt"`
	Processed  bool           `gorm:"default:false" json:"processed"`
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Session{},
		&Hackathon{}, &SupervisorAssignment{}, &JudgeAssignment{},
		&FormSchedule{}, &CustomField{},
		&Team{}, &Participant{}, &Submission{}, &Evaluation{},
		&EmailTemplate{}, &EmailLog{},
		&Certificate{}, &LandingPage{},
		&Outbox{}, &DLQ{},
	}
}

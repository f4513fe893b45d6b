package application

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Phase is one of the seven sequential loan-origination stages.
type Phase string

const (
	PhasePreQualification       Phase = "pre_qualification"
	PhaseLoanApplication        Phase = "loan_application"
	PhaseApplicationProcessing  Phase = "application_processing"
	PhaseUnderwriting           Phase = "underwriting"
	PhaseCreditDecision         Phase = "credit_decision"
	PhaseQualityCheck           Phase = "quality_check"
	PhaseLoanFunding            Phase = "loan_funding"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusRequiresReview Status = "requires_review"
)

// Actor identifies who appended a processing log entry.
type Actor string

const (
	ActorSystem   Actor = "system"
	ActorUser     Actor = "user"
	ActorAdmin    Actor = "admin"
	ActorReviewer Actor = "reviewer"
)

type Application struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier, assigned at creation, immutable.
	ApplicationNumber string `gorm:"size:24;uniqueIndex:ux_applications_number_active" json:"application_number"`

	ApplicantName string    `gorm:"size:128" json:"applicant_name"`
	DateOfBirth   time.Time `gorm:"type:date" json:"date_of_birth"`
	PAN           string    `gorm:"column:pan;size:10;index:idx_applications_pan_active" json:"pan"`
	Mobile        string    `gorm:"size:10" json:"mobile"`
	Email         string    `gorm:"size:128" json:"email"`

	LoanAmount          float64 `gorm:"type:decimal(18,2)" json:"loan_amount"`
	TenureMonths        int     `json:"tenure_months"`
	LoanPurpose         string  `gorm:"size:64" json:"loan_purpose"`
	LoanType            string  `gorm:"size:32" json:"loan_type"`
	MonthlyIncome       float64 `gorm:"type:decimal(18,2)" json:"monthly_income"`
	ExistingEMI         float64 `gorm:"type:decimal(18,2)" json:"existing_emi"`
	EmploymentType      string  `gorm:"size:32" json:"employment_type"`
	WorkExperienceYears int     `json:"work_experience_years"`

	CurrentPhase  Phase  `gorm:"size:32" json:"current_phase"`
	CurrentStatus Status `gorm:"size:24" json:"current_status"`

	// Snapshot of collaborator verification results, captured during
	// application processing and consumed by the later phases.
	Verification datatypes.JSON `gorm:"type:json" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Application) TableName() string { return "applications" }

// PhaseRecord is owned by its Application: created when the phase is entered,
// mutated only by that phase's engine, never deleted.
type PhaseRecord struct {
	ID            uint64 `gorm:"primaryKey;column:id"`
	ApplicationID uint64 `gorm:"index;uniqueIndex:ux_phase_records_app_phase"`
	Phase         Phase  `gorm:"size:32;uniqueIndex:ux_phase_records_app_phase"`
	Status        Status `gorm:"size:24"`

	// Phase-tagged decision payload; immutable once the phase completes.
	Decision datatypes.JSON `gorm:"type:json"`
	// Append-only ordered list of ProcessingLogEntry.
	Logs datatypes.JSON `gorm:"type:json"`

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (PhaseRecord) TableName() string { return "phase_records" }

type ProcessingLogEntry struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Actor  Actor     `json:"actor"`
	Detail string    `json:"detail,omitempty"`
}

// AppendLog appends an entry to the record's log array. Entries are never
// mutated or removed afterwards.
func (r *PhaseRecord) AppendLog(e ProcessingLogEntry) {
	entries := r.LogEntries()
	entries = append(entries, e)
	b, _ := json.Marshal(entries)
	r.Logs = datatypes.JSON(b)
}

func (r *PhaseRecord) LogEntries() []ProcessingLogEntry {
	var entries []ProcessingLogEntry
	if len(r.Logs) > 0 {
		_ = json.Unmarshal(r.Logs, &entries)
	}
	return entries
}

// SetDecision serializes the phase's decision payload.
func (r *PhaseRecord) SetDecision(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Decision = datatypes.JSON(b)
	return nil
}

func (r *PhaseRecord) DecodeDecision(out any) error {
	if len(r.Decision) == 0 {
		return ErrNoDecision
	}
	return json.Unmarshal(r.Decision, out)
}

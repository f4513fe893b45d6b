package workflow

import (
	"encoding/json"
	"time"

	"los-backend/internal/engine"
)

// PreQualifyInput opens a new application (phase 1).
type PreQualifyInput struct {
	ApplicantName       string    `json:"applicant_name"`
	DateOfBirth         time.Time `json:"date_of_birth"`
	PAN                 string    `json:"pan"`
	Mobile              string    `json:"mobile"`
	Email               string    `json:"email"`
	LoanAmount          float64   `json:"loan_amount"`
	TenureMonths        int       `json:"tenure_months"`
	LoanPurpose         string    `json:"loan_purpose"`
	LoanType            string    `json:"loan_type"`
	MonthlyIncome       float64   `json:"monthly_income"`
	ExistingEMI         float64   `json:"existing_emi"`
	EmploymentType      string    `json:"employment_type"`
	WorkExperienceYears int       `json:"work_experience_years"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type BankAccount struct {
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
	BankName      string `json:"bank_name"`
}

type Reference struct {
	Name         string `json:"name"`
	Mobile       string `json:"mobile"`
	Relationship string `json:"relationship"`
}

// SubmitApplicationInput completes the loan-application phase (phase 2) and
// triggers the automated phases 3-7.
type SubmitApplicationInput struct {
	AadhaarNumber     string      `json:"aadhaar_number"`
	CurrentAddress    Address     `json:"current_address"`
	PermanentAddress  Address     `json:"permanent_address"`
	BankAccount       BankAccount `json:"bank_account"`
	References        []Reference `json:"references"`
	DocumentsComplete bool        `json:"documents_complete"`
	// optional pledged collateral value; absence means an unsecured loan
	CollateralValue float64 `json:"collateral_value"`
}

// loanApplicationDetails is the decision payload stored on the phase-2 record.
type loanApplicationDetails struct {
	Phase             string      `json:"phase"`
	AadhaarNumber     string      `json:"aadhaar_number"`
	CurrentAddress    Address     `json:"current_address"`
	PermanentAddress  Address     `json:"permanent_address"`
	BankAccount       BankAccount `json:"bank_account"`
	References        []Reference `json:"references"`
	DocumentsComplete bool        `json:"documents_complete"`
	CollateralValue   float64     `json:"collateral_value"`
}

// PhaseInput carries the optional per-phase request payload for phases 3-7.
type PhaseInput struct {
	ManualReviewRequired bool
	Manual               *engine.ManualOverride
	DisbursementMethod   engine.DisbursementMethod
}

// Envelope is the uniform decision envelope every phase operation returns.
type Envelope struct {
	Success           bool     `json:"success"`
	ApplicationNumber string   `json:"applicationNumber"`
	Status            string   `json:"status"`
	Decision          string   `json:"decision,omitempty"`
	Score             float64  `json:"score,omitempty"`
	ApprovedAmount    float64  `json:"approved_amount,omitempty"`
	InterestRate      float64  `json:"interest_rate,omitempty"`
	Tenure            int      `json:"tenure,omitempty"`
	Conditions        []string `json:"conditions,omitempty"`
	NextPhase         *string  `json:"next_phase"`
	ProcessingTimeMS  int64    `json:"processing_time_ms"`
	Message           string   `json:"message"`
}

// PhaseStatusDTO is the read-only view served by the status endpoints.
type PhaseStatusDTO struct {
	ApplicationNumber string          `json:"applicationNumber"`
	Phase             string          `json:"phase"`
	Status            string          `json:"status"`
	CurrentPhase      string          `json:"current_phase"`
	Decision          json.RawMessage `json:"decision,omitempty"`
	Logs              json.RawMessage `json:"logs,omitempty"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

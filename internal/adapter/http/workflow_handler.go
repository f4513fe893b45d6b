package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"los-backend/internal/domain/application"
	"los-backend/internal/engine"
	"los-backend/internal/usecase/workflow"
)

type WorkflowHandler struct{ uc *workflow.Usecase }

func NewWorkflowHandler(uc *workflow.Usecase) *WorkflowHandler { return &WorkflowHandler{uc: uc} }

type preQualifyReq struct {
	ApplicantName string `json:"applicant_name"  validate:"required"`
	// canonical date `YYYY-MM-DD`
	DateOfBirth         string  `json:"date_of_birth"   validate:"required,datetime=2006-01-02"`
	PAN                 string  `json:"pan"             validate:"required,pan"`
	Mobile              string  `json:"mobile"          validate:"required,inmobile"`
	Email               string  `json:"email"           validate:"required,email"`
	LoanAmount          float64 `json:"loan_amount"     validate:"required,gt=0"`
	TenureMonths        int     `json:"tenure_months"   validate:"required,gte=6,lte=360"`
	LoanPurpose         string  `json:"loan_purpose"    validate:"required"`
	LoanType            string  `json:"loan_type"       validate:"required,oneof=personal home auto education business"`
	MonthlyIncome       float64 `json:"monthly_income"  validate:"required,gt=0"`
	ExistingEMI         float64 `json:"existing_emi"    validate:"gte=0"`
	EmploymentType      string  `json:"employment_type" validate:"required,oneof=salaried self_employed"`
	WorkExperienceYears int     `json:"work_experience_years" validate:"gte=0"`
}

func (h *WorkflowHandler) PreQualify(c echo.Context) error {
	var req preQualifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dob, _ := time.Parse("2006-01-02", req.DateOfBirth)

	env, err := h.uc.PreQualify(c.Request().Context(), workflow.PreQualifyInput{
		ApplicantName:       req.ApplicantName,
		DateOfBirth:         dob,
		PAN:                 req.PAN,
		Mobile:              req.Mobile,
		Email:               req.Email,
		LoanAmount:          req.LoanAmount,
		TenureMonths:        req.TenureMonths,
		LoanPurpose:         req.LoanPurpose,
		LoanType:            req.LoanType,
		MonthlyIncome:       req.MonthlyIncome,
		ExistingEMI:         req.ExistingEMI,
		EmploymentType:      req.EmploymentType,
		WorkExperienceYears: req.WorkExperienceYears,
	})
	if err != nil {
		return writeUsecaseError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

type addressReq struct {
	Street  string `json:"street"  validate:"required"`
	City    string `json:"city"    validate:"required"`
	State   string `json:"state"   validate:"required"`
	Pincode string `json:"pincode" validate:"required,pincode"`
}

type referenceReq struct {
	Name         string `json:"name"         validate:"required"`
	Mobile       string `json:"mobile"       validate:"required,inmobile"`
	Relationship string `json:"relationship" validate:"required"`
}

type submitApplicationReq struct {
	AadhaarNumber  string     `json:"aadhaar_number" validate:"required,aadhaar"`
	CurrentAddress addressReq `json:"current_address" validate:"required"`
	PermanentAddress addressReq `json:"permanent_address" validate:"required"`
	BankAccount    struct {
		AccountNumber string `json:"account_number" validate:"required,min=9"`
		IFSCCode      string `json:"ifsc_code"      validate:"required,len=11"`
		BankName      string `json:"bank_name"      validate:"required"`
	} `json:"bank_account" validate:"required"`
	References        []referenceReq `json:"references" validate:"required,min=2,dive"`
	DocumentsComplete bool           `json:"documents_complete"`
	CollateralValue   float64        `json:"collateral_value" validate:"gte=0"`
}

func (h *WorkflowHandler) SubmitApplication(c echo.Context) error {
	number := c.Param("application_number")
	if number == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_number path param"})
	}
	var req submitApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := workflow.SubmitApplicationInput{
		AadhaarNumber:     req.AadhaarNumber,
		CurrentAddress:    workflow.Address(req.CurrentAddress),
		PermanentAddress:  workflow.Address(req.PermanentAddress),
		DocumentsComplete: req.DocumentsComplete,
		CollateralValue:   req.CollateralValue,
	}
	in.BankAccount = workflow.BankAccount{
		AccountNumber: req.BankAccount.AccountNumber,
		IFSCCode:      req.BankAccount.IFSCCode,
		BankName:      req.BankAccount.BankName,
	}
	for _, ref := range req.References {
		in.References = append(in.References, workflow.Reference(ref))
	}

	env, err := h.uc.SubmitApplication(c.Request().Context(), number, in)
	if err != nil {
		return writeUsecaseError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// RunPhase serves the single-phase endpoints for the automated phases.
func (h *WorkflowHandler) RunPhase(phase application.Phase) echo.HandlerFunc {
	return func(c echo.Context) error {
		number := c.Param("application_number")
		if number == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_number path param"})
		}
		env, err := h.uc.RunPhase(c.Request().Context(), number, phase, workflow.PhaseInput{})
		if err != nil {
			return writeUsecaseError(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

type creditDecisionReq struct {
	ManualReviewRequired bool    `json:"manual_review_required"`
	ManualDecision       string  `json:"manual_decision"        validate:"omitempty,oneof=approved conditional_approval rejected"`
	ManualApprovedAmount float64 `json:"manual_approved_amount" validate:"gte=0"`
	OverrideReason       string  `json:"override_reason"`
}

func (h *WorkflowHandler) DecideCredit(c echo.Context) error {
	number := c.Param("application_number")
	if number == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_number path param"})
	}
	var req creditDecisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := workflow.PhaseInput{ManualReviewRequired: req.ManualReviewRequired}
	if req.ManualDecision != "" || req.ManualApprovedAmount != 0 || req.OverrideReason != "" {
		in.Manual = &engine.ManualOverride{
			Decision:       engine.Decision(req.ManualDecision),
			ApprovedAmount: req.ManualApprovedAmount,
			Reason:         req.OverrideReason,
		}
	}

	env, err := h.uc.RunPhase(c.Request().Context(), number, application.PhaseCreditDecision, in)
	if err != nil {
		return writeUsecaseError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

type fundingReq struct {
	DisbursementMethod string `json:"disbursement_method" validate:"omitempty,oneof=NEFT RTGS IMPS UPI"`
}

func (h *WorkflowHandler) Fund(c echo.Context) error {
	number := c.Param("application_number")
	if number == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_number path param"})
	}
	var req fundingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	env, err := h.uc.RunPhase(c.Request().Context(), number, application.PhaseLoanFunding, workflow.PhaseInput{
		DisbursementMethod: engine.DisbursementMethod(req.DisbursementMethod),
	})
	if err != nil {
		return writeUsecaseError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// PhaseStatus serves GET /api/<phase>/status/:application_number.
func (h *WorkflowHandler) PhaseStatus(phase application.Phase) echo.HandlerFunc {
	return func(c echo.Context) error {
		number := c.Param("application_number")
		if number == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_number path param"})
		}
		dto, err := h.uc.PhaseStatus(c.Request().Context(), number, phase)
		if err != nil {
			return writeUsecaseError(c, err)
		}
		return c.JSON(http.StatusOK, dto)
	}
}

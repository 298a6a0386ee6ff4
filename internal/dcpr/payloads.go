package dcpr

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Operation payloads. Each is validated as a whole; all field-level problems
// are aggregated into a single ValidationError.

type CreateRequestPayload struct {
	ProposedProjectName string   `json:"proposed_project_name" validate:"required,min=3,max=200"`
	ProjectContext      string   `json:"additional_project_context" validate:"max=4000"`
	CaptureStartDate    string   `json:"capture_start_date" validate:"omitempty,datetime=2006-01-02"`
	CaptureEndDate      string   `json:"capture_end_date" validate:"omitempty,datetime=2006-01-02"`
	CostEstimate        float64  `json:"cost_estimate" validate:"gte=0"`
	SupportingDocs      []string `json:"supporting_documents" validate:"dive,url"`
}

type OwnerUpdatePayload struct {
	ProposedProjectName string   `json:"proposed_project_name" validate:"omitempty,min=3,max=200"`
	ProjectContext      string   `json:"additional_project_context" validate:"max=4000"`
	CaptureStartDate    string   `json:"capture_start_date" validate:"omitempty,datetime=2006-01-02"`
	CaptureEndDate      string   `json:"capture_end_date" validate:"omitempty,datetime=2006-01-02"`
	CostEstimate        float64  `json:"cost_estimate" validate:"gte=0"`
	SupportingDocs      []string `json:"supporting_documents" validate:"dive,url"`
}

type ReviewUpdatePayload struct {
	Notes string `json:"notes" validate:"required,max=4000"`
}

type ModeratePayload struct {
	Action Action `json:"action" validate:"required"`
	Notes  string `json:"notes" validate:"max=4000"`
}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// validatePayload runs struct validation and converts validator output into
// the per-field error map the callers surface verbatim.
func validatePayload(v any) error {
	err := payloadValidator.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return &ValidationError{Fields: fields}
}

// content renders the owner-editable proposal fields into the request's
// opaque payload document.
func (p CreateRequestPayload) content() json.RawMessage {
	doc, _ := json.Marshal(map[string]any{
		"proposed_project_name":      p.ProposedProjectName,
		"additional_project_context": p.ProjectContext,
		"capture_start_date":         p.CaptureStartDate,
		"capture_end_date":           p.CaptureEndDate,
		"cost_estimate":              p.CostEstimate,
	})
	return doc
}

func (p OwnerUpdatePayload) content(prev json.RawMessage) json.RawMessage {
	merged := map[string]any{}
	if len(prev) > 0 {
		_ = json.Unmarshal(prev, &merged)
	}
	if p.ProposedProjectName != "" {
		merged["proposed_project_name"] = p.ProposedProjectName
	}
	if p.ProjectContext != "" {
		merged["additional_project_context"] = p.ProjectContext
	}
	if p.CaptureStartDate != "" {
		merged["capture_start_date"] = p.CaptureStartDate
	}
	if p.CaptureEndDate != "" {
		merged["capture_end_date"] = p.CaptureEndDate
	}
	if p.CostEstimate != 0 {
		merged["cost_estimate"] = p.CostEstimate
	}
	doc, _ := json.Marshal(merged)
	return doc
}

func timePtr(t time.Time) *time.Time { return &t }

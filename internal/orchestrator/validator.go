package orchestrator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	inats "github.com/aiox-platform/concierge/internal/nats"
)

// MaxPromptLength caps a single utterance.
const MaxPromptLength = 4000

// TurnInput is the validated shape of a turn, shared by the HTTP and NATS surfaces.
type TurnInput struct {
	ActorID   string `json:"actor_id" validate:"required,max=255"`
	SessionID string `json:"session_id" validate:"required,max=255"`
	Prompt    string `json:"prompt" validate:"required,max=4000"`
}

// Validator checks turn requests before they reach the engine.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateInput trims the fields and checks them.
func (v *Validator) ValidateInput(in *TurnInput) error {
	in.ActorID = strings.TrimSpace(in.ActorID)
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Prompt = strings.TrimSpace(in.Prompt)

	if err := v.v.Struct(in); err != nil {
		return fmt.Errorf("invalid turn: %s", describe(err))
	}
	return nil
}

// Validate checks a turn request received over NATS.
func (v *Validator) Validate(req *inats.TurnRequest) error {
	in := TurnInput{ActorID: req.ActorID, SessionID: req.SessionID, Prompt: req.Prompt}
	if err := v.ValidateInput(&in); err != nil {
		return err
	}
	req.ActorID, req.SessionID, req.Prompt = in.ActorID, in.SessionID, in.Prompt
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return strings.Join(parts, "; ")
}

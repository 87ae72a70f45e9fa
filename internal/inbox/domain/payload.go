package domain

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// WebhookPayload is the decoded body of a POST /webhook request.
// Field order matters: validation reports the first failing field in
// declaration order (message_id, from, to, ts, text).
type WebhookPayload struct {
	MessageID string  `json:"message_id" validate:"required"`
	From      string  `json:"from" validate:"required,msisdn"`
	To        string  `json:"to" validate:"required,msisdn"`
	Ts        string  `json:"ts" validate:"required,utcts"`
	Text      *string `json:"text" validate:"omitempty,max=4096"`
}

var (
	// E.164-like: a single leading '+' followed by one or more ASCII digits.
	msisdnPattern = regexp.MustCompile(`^\+[0-9]+$`)
	// ISO-8601 with an explicit UTC 'Z' suffix; other offsets are rejected.
	utcTsPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
)

// PayloadValidator validates webhook payloads with deterministic,
// first-failure-wins semantics.
type PayloadValidator struct {
	validate *validator.Validate
}

// NewPayloadValidator builds the validator instance and registers the
// msisdn and utcts rules used by WebhookPayload.
func NewPayloadValidator() *PayloadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name, not the Go struct name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("utcts", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !utcTsPattern.MatchString(s) {
			return false
		}
		// The pattern admits shapes like month 13; reject anything that is
		// not a real instant.
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	})

	return &PayloadValidator{validate: v}
}

// Validate checks the payload and returns nil on success, or the error for
// the first failing field.
func (pv *PayloadValidator) Validate(ctx context.Context, p *WebhookPayload) *ValidationError {
	err := pv.validate.StructCtx(ctx, p)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Field: "payload", Reason: err.Error()}
	}

	first := verrs[0]
	return &ValidationError{Field: first.Field(), Reason: reasonForTag(first.Tag())}
}

func reasonForTag(tag string) string {
	switch tag {
	case "required":
		return "field is required"
	case "msisdn":
		return "must be E.164: '+' followed by digits"
	case "utcts":
		return "must be ISO-8601 UTC with 'Z' suffix"
	case "max":
		return "must be at most 4096 characters"
	default:
		return "invalid value"
	}
}

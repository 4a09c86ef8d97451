package inbox

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/comigor/msghook/internal/apperr"
	"github.com/comigor/msghook/internal/store"
)

var validate = newValidator()

// payloadKeys are the JSON keys WebhookPayload reads. Any other key,
// including a case variant of one of these, is ignored.
var payloadKeys = []string{"message_id", "from", "to", "ts", "text"}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WebhookPayload is the JSON body of a webhook delivery. Timestamp must be
// present but its format is not checked.
type WebhookPayload struct {
	MessageID string  `json:"message_id" validate:"required"`
	From      string  `json:"from" validate:"required"`
	To        string  `json:"to" validate:"required"`
	Timestamp *string `json:"ts" validate:"required"`
	Text      *string `json:"text"`
}

// Message converts a validated payload into its stored form.
func (p WebhookPayload) Message() store.Message {
	m := store.Message{
		MessageID: p.MessageID,
		Sender:    p.From,
		Recipient: p.To,
		Text:      p.Text,
	}
	if p.Timestamp != nil {
		m.Timestamp = *p.Timestamp
	}
	return m
}

// ParsePayload decodes body and validates the required fields. Every failure
// is a validation error naming the offending field.
func ParsePayload(body []byte) (WebhookPayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return WebhookPayload{}, decodeError(err)
	}
	// encoding/json folds key case when decoding into a struct.
	exact := make(map[string]json.RawMessage, len(payloadKeys))
	for _, k := range payloadKeys {
		if v, ok := raw[k]; ok {
			exact[k] = v
		}
	}
	normalized, err := json.Marshal(exact)
	if err != nil {
		return WebhookPayload{}, decodeError(err)
	}

	var p WebhookPayload
	if err := json.Unmarshal(normalized, &p); err != nil {
		return WebhookPayload{}, decodeError(err)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return WebhookPayload{}, apperr.Validation(apperr.FieldError{Field: "body", Message: err.Error()})
		}
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return WebhookPayload{}, apperr.Validation(fields...)
	}
	return p, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.Validation(apperr.FieldError{
			Field:   typeErr.Field,
			Message: "must be a " + typeErr.Type.String(),
		})
	}
	if errors.As(err, &typeErr) {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "must be a JSON object"})
	}
	return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed JSON"})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Ptr {
			return "is required"
		}
		return "is required and must not be empty"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

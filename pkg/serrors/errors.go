package serrors

import "fmt"

// Base is a coded error that services return so callers can translate it
// into a stable user-facing message.
type Base struct {
	Code      string
	Message   string
	LocaleKey string
}

func (e *Base) Error() string {
	return e.Message
}

func NewError(code, message, localeKey string) *Base {
	return &Base{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

// FieldRequired reports a missing required input field.
type FieldRequired struct {
	Base
	Field string
}

func NewFieldRequiredError(field, localeKey string) *FieldRequired {
	return &FieldRequired{
		Base: Base{
			Code:      "FIELD_REQUIRED",
			Message:   fmt.Sprintf("field %q is required", field),
			LocaleKey: localeKey,
		},
		Field: field,
	}
}

// FieldInvalid reports a field value that failed a validation rule other
// than presence.
type FieldInvalid struct {
	Base
	Field string
	Rule  string
}

func NewFieldInvalidError(field, rule, localeKey string) *FieldInvalid {
	return &FieldInvalid{
		Base: Base{
			Code:      "FIELD_INVALID",
			Message:   fmt.Sprintf("field %q failed %q validation", field, rule),
			LocaleKey: localeKey,
		},
		Field: field,
		Rule:  rule,
	}
}

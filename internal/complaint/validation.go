package complaint

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SubmitInput is a citizen's new complaint.
type SubmitInput struct {
	Title               string   `json:"title" validate:"required,max=200"`
	Description         string   `json:"description" validate:"required,max=5000"`
	StakeholderOfficeID string   `json:"stakeholder_office_id" validate:"required"`
	Location            string   `json:"location" validate:"max=500"`
	Attachments         []string `json:"attachments" validate:"max=10,dive,required,max=500"`
}

// RespondInput is a handler's reply. Comment stays internal.
type RespondInput struct {
	Body    string `json:"body" validate:"required,max=5000"`
	Comment string `json:"comment" validate:"max=5000"`
}

// SecondStageInput carries the citizen's follow-up. Empty fields are copied
// from the original complaint.
type SecondStageInput struct {
	Title       string   `json:"title" validate:"max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Location    string   `json:"location" validate:"max=500"`
	Attachments []string `json:"attachments" validate:"max=10,dive,required,max=500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs the struct tags and reports every failing field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Code: CodeValidation, Message: "invalid request", Err: err}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeField(fe))
	}
	return &Error{Code: CodeValidation, Message: strings.Join(problems, "; ")}
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s long", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

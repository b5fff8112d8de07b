package classifier

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// MinDescriptionLength is the shortest product description accepted.
const MinDescriptionLength = 10

// Request is one classification submission.
type Request struct {
	Brand       string `json:"brand" validate:"max=120"`
	Description string `json:"description" validate:"min=10,max=2000"`
	UserID      string `json:"userId" validate:"max=128"`
}

// FieldError is a human-readable message for one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a Request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// Validator checks requests before any provider is called.
type Validator struct {
	validate    *validator.Validate
	trans       ut.Translator
	requireUser bool
}

// NewValidator builds a Validator with English messages. When requireUser is
// set a request without a user id is rejected.
func NewValidator(requireUser bool) (*Validator, error) {
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register translations: %w", err)
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(Request)
		if requireUser && req.UserID == "" {
			sl.ReportError(req.UserID, "userId", "UserID", "required", "")
		}
	}, Request{})

	return &Validator{validate: v, trans: trans, requireUser: requireUser}, nil
}

// Validate trims the request and checks it. The returned error is a
// *ValidationError when the input is rejected.
func (v *Validator) Validate(req Request) (Request, error) {
	req.Brand = strings.TrimSpace(req.Brand)
	req.Description = strings.TrimSpace(req.Description)
	req.UserID = strings.TrimSpace(req.UserID)

	err := v.validate.Struct(req)
	if err == nil {
		return req, nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return req, fmt.Errorf("validate request: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(errs))}
	for _, fe := range errs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fe.Translate(v.trans)})
	}
	return req, out
}

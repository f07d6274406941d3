// Package validator checks usecase inputs against their `validate` tags and
// reports failures as a field to message map.
package validator

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	v10 "github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// OTPCodeMinLen and OTPCodeMaxLen bound the digits accepted by the otpcode
// rule. Issuers must stay inside them or their codes can never verify.
const (
	OTPCodeMinLen = 4
	OTPCodeMaxLen = 12
)

var reOTPCode = regexp.MustCompile(
	`^[0-9]{` + strconv.Itoa(OTPCodeMinLen) + `,` + strconv.Itoa(OTPCodeMaxLen) + `}$`,
)

// ErrTranslatorNotFound indicates the english translator could not be loaded.
var ErrTranslatorNotFound = errors.New("validator: translator not found")

// Validator validates structs using their `validate` tags.
type Validator interface {
	Validate(data any) error
}

// FieldErrors maps a snake_case field name to a readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation error"
	}

	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Values returns the field error map.
func (fe FieldErrors) Values() map[string]string {
	return fe
}

// Playground implements Validator on go-playground/validator.
type Playground struct {
	validate   *v10.Validate
	translator ut.Translator
}

// New constructs a Playground validator with english messages and the
// otpcode rule registered.
func New() (*Playground, error) {
	validate := v10.New(v10.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(fieldName)

	lang := en.New()
	trans, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := registerOTPCode(validate, trans); err != nil {
		return nil, err
	}

	return &Playground{validate: validate, translator: trans}, nil
}

// Validate returns FieldErrors when data breaks one of its rules. Other
// errors, such as a non-struct argument, are returned as they are.
func (p *Playground) Validate(data any) error {
	err := p.validate.Struct(data)
	if err == nil {
		return nil
	}

	var errs v10.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	out := make(FieldErrors, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(p.translator)
	}
	return out
}

func registerOTPCode(validate *v10.Validate, trans ut.Translator) error {
	err := validate.RegisterValidation("otpcode", func(fl v10.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && reOTPCode.MatchString(fl.Field().String())
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation("otpcode", trans,
		func(t ut.Translator) error {
			msg := "{0} must be " + strconv.Itoa(OTPCodeMinLen) + "-" + strconv.Itoa(OTPCodeMaxLen) + " digits"
			return t.Add("otpcode", msg, false)
		},
		func(t ut.Translator, fe v10.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// fieldName prefers the json tag and falls back to the snake_case form of
// the Go field name, so SubjectID reports as subject_id.
func fieldName(f reflect.StructField) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
		return tag
	}
	return snake(f.Name)
}

func snake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(runes) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

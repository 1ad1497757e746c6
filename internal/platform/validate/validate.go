// Package validate wires go-playground/validator into echo with the
// health-record specific rules phn, sms and hdid.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/healthgateway/gateway/internal/platform/result"
)

const maxHdidLength = 54

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phn", phnRule)
	_ = v.RegisterValidation("sms", smsRule)
	_ = v.RegisterValidation("hdid", hdidRule)
	return &Validator{v: v}
}

// Validate returns a result.Validation error naming every failed field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return result.Validation("invalid request: %v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return result.FieldErrors(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "phn":
		return "must be a valid personal health number"
	case "sms":
		return "must be a 10 digit phone number"
	case "hdid":
		return "must be a valid hdid"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func phnRule(fl validator.FieldLevel) bool {
	return IsValidPHN(fl.Field().String())
}

// smsRule accepts an empty value; use required to demand one.
func smsRule(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || IsValidSms(s)
}

func hdidRule(fl validator.FieldLevel) bool {
	return IsValidHdid(fl.Field().String())
}

var phnWeights = [8]int{2, 4, 8, 5, 10, 9, 7, 3}

// IsValidPHN checks a BC Personal Health Number: ten digits starting with 9
// whose last digit is the mod-11 check digit of digits two to nine.
func IsValidPHN(phn string) bool {
	if len(phn) != 10 || phn[0] != '9' {
		return false
	}
	sum := 0
	for i, c := range phn {
		if c < '0' || c > '9' {
			return false
		}
		if i >= 1 && i <= 8 {
			sum += (int(c-'0') * phnWeights[i-1]) % 11
		}
	}
	check := 11 - sum%11
	return check < 10 && int(phn[9]-'0') == check
}

// SanitizeSms strips spaces, dashes, dots and parentheses.
func SanitizeSms(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func IsValidSms(s string) bool {
	s = SanitizeSms(s)
	if len(s) != 10 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func IsValidHdid(s string) bool {
	return s != "" && len(s) <= maxHdidLength && strings.TrimSpace(s) == s
}

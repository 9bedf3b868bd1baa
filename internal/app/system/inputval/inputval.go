// Package inputval validates decoded request bodies.
//
// Structs declare rules with go-playground/validator tags and a human label:
//
//	type createProjectInput struct {
//	    Name string `validate:"notblank,max=200" label:"Name"`
//	}
//
// Validate returns a Result whose messages use the label, so handlers can
// hand First() straight to the client.
package inputval

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"

	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects every failed rule for one struct.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "" when valid.
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		return f.Name
	})
	mustRegister(val, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(val, "objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	mustRegister(val, "role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})
	mustRegister(val, "wistatus", func(fl validator.FieldLevel) bool {
		return models.WorkItemStatus(enumValue(fl)).Valid()
	})
	mustRegister(val, "wipriority", func(fl validator.FieldLevel) bool {
		return models.WorkItemPriority(enumValue(fl)).Valid()
	})
	mustRegister(val, "witype", func(fl validator.FieldLevel) bool {
		return models.WorkItemType(enumValue(fl)).Valid()
	})
	mustRegister(val, "useremail", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	return val
}

// enumValue reads enum fields case-insensitively, matching the services.
func enumValue(fl validator.FieldLevel) string {
	return strings.ToUpper(strings.TrimSpace(fl.Field().String()))
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("inputval: register %s: %v", tag, err))
	}
}

// Validate runs the struct's validate tags. s must be a struct or a pointer
// to one.
func Validate(s any) *Result {
	res := &Result{}
	err := v.Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.StructField(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email", "useremail":
		return "A valid " + strings.ToLower(label) + " is required."
	case "objectid":
		return label + " is not a valid id."
	default:
		return label + " has an invalid value."
	}
}

// IsValidEmail accepts a bare RFC 5322 address (no display name) and
// rejects dotted-atom mistakes the stdlib parser lets through.
func IsValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	for _, part := range []string{s[:at], s[at+1:]} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	return true
}

// IsValidObjectID reports whether s (trimmed) is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

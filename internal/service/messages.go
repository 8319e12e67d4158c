package service

import (
	"errors"
	"sort"
	"strings"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// userMessage picks the text shown to the user for a failed login or signup.
func userMessage(err error, fallback string) string {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnavailable:
		return msgBackendUnavailable
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeForbidden,
		apperrors.ErrCodeRemote:
		return apperrors.Message(err, fallback)
	default:
		return fallback
	}
}

func normalizeSignup(in domainauth.SignupInput) domainauth.SignupInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if strings.TrimSpace(string(in.Role)) == "" {
		in.Role = domainauth.RoleFieldOfficer
	} else if r, ok := domainauth.ParseRole(string(in.Role)); ok {
		in.Role = r
	}
	return in
}

func validateSignup(in domainauth.SignupInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Role, validation.By(validRole)),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid signup details.")
	}
	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	first := fields[0]
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeValidation,
		Message: fieldLabel(first) + " " + fieldErrs[first].Error() + ".",
		Field:   first,
		Cause:   err,
	}
}

var fieldLabels = map[string]string{
	"email":    "Email",
	"password": "Password",
	"name":     "Name",
	"role":     "Role",
}

// fieldLabel maps a json field name to the label shown in the UI.
func fieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func validRole(v any) error {
	r, _ := v.(domainauth.Role)
	if !r.IsValid() {
		return errors.New("must be one of field_officer, veterinarian, admin")
	}
	return nil
}

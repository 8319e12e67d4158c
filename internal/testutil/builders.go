// Package testutil provides testing utilities and helpers for the breedify session service.
package testutil

import (
	"encoding/json"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
)

// OfficerUser returns the demo field officer account.
func OfficerUser() domainauth.User {
	return domainauth.User{ID: "1", Name: "Field Officer", Email: "officer@breedify.gov.in", Role: domainauth.RoleFieldOfficer}
}

// VetUser returns the demo veterinarian account.
func VetUser() domainauth.User {
	return domainauth.User{ID: "2", Name: "Dr. Veterinarian", Email: "vet@breedify.gov.in", Role: domainauth.RoleVeterinarian}
}

// RecordBuilder assembles the persisted session record for store seeding.
type RecordBuilder struct {
	values map[string]string
}

// NewRecord creates an empty RecordBuilder.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{values: make(map[string]string)}
}

// WithUser stores u JSON-encoded under the user key.
func (b *RecordBuilder) WithUser(u domainauth.User) *RecordBuilder {
	data, _ := json.Marshal(u)
	b.values[domainauth.KeyUser] = string(data)
	return b
}

// WithRawUser stores raw under the user key as-is.
func (b *RecordBuilder) WithRawUser(raw string) *RecordBuilder {
	b.values[domainauth.KeyUser] = raw
	return b
}

// WithToken stores the bearer token.
func (b *RecordBuilder) WithToken(token string) *RecordBuilder {
	b.values[domainauth.KeyToken] = token
	return b
}

// WithTimeout stores the inactivity timeout preference.
func (b *RecordBuilder) WithTimeout(raw string) *RecordBuilder {
	b.values[domainauth.KeyInactivityTimeout] = raw
	return b
}

// Build returns a copy of the accumulated values.
func (b *RecordBuilder) Build() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// SignedToken returns an HS256 JWT for sub expiring at exp.
func SignedToken(sub string, exp time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

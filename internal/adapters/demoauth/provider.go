package demoauth

// Package demoauth provides the offline demo directory used when the backend is unreachable.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultPassword is shared by every demo account.
	DefaultPassword = "demo123"
	// DefaultRegion is used to parse phone numbers without a country code.
	DefaultRegion = "IN"
	// TokenPrefix prefixes every synthesized token.
	TokenPrefix = "demo_token_"

	msgInvalidCredentials = "Invalid credentials. Please try again."
)

var _ ports.Authenticator = (*Provider)(nil)

// Account is one entry of the demo directory.
type Account struct {
	ID    string
	Name  string
	Email string
	Phone string
	Role  domainauth.Role
}

// DefaultAccounts returns the built-in field officer, veterinarian and admin accounts.
func DefaultAccounts() []Account {
	return []Account{
		{ID: "1", Name: "Field Officer", Email: "officer@breedify.gov.in", Phone: "9876543210", Role: domainauth.RoleFieldOfficer},
		{ID: "2", Name: "Dr. Veterinarian", Email: "vet@breedify.gov.in", Phone: "9876543211", Role: domainauth.RoleVeterinarian},
		{ID: "3", Name: "System Admin", Email: "admin@breedify.gov.in", Phone: "9876543212", Role: domainauth.RoleAdmin},
	}
}

// Config controls the demo provider. Zero delays disable the artificial wait.
type Config struct {
	Password    string // default DefaultPassword
	Region      string // default DefaultRegion
	LoginDelay  time.Duration
	SignupDelay time.Duration
	Accounts    []Account // default DefaultAccounts()
	Clock       clockwork.Clock
}

// Provider implements ports.Authenticator against a fixed in-memory directory.
type Provider struct {
	byKey       map[string]Account
	hash        []byte
	region      string
	loginDelay  time.Duration
	signupDelay time.Duration
	clock       clockwork.Clock
}

// NewProvider constructs a demo provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	password := cfg.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("demo auth: hash password: %w", err)
	}
	region := strings.ToUpper(strings.TrimSpace(cfg.Region))
	if region == "" {
		region = DefaultRegion
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	accounts := cfg.Accounts
	if len(accounts) == 0 {
		accounts = DefaultAccounts()
	}

	p := &Provider{
		byKey:       make(map[string]Account, len(accounts)*3),
		hash:        hash,
		region:      region,
		loginDelay:  cfg.LoginDelay,
		signupDelay: cfg.SignupDelay,
		clock:       clock,
	}
	for _, a := range accounts {
		if a.ID == "" || a.Email == "" {
			return nil, errors.New("demo auth: account ID and Email are required")
		}
		if !a.Role.IsValid() {
			return nil, fmt.Errorf("demo auth: account %s has unknown role %q", a.ID, a.Role)
		}
		p.byKey[normalizeIdentifier(a.Email)] = a
		if a.Phone != "" {
			p.byKey[normalizeIdentifier(a.Phone)] = a
			if e164, ok := p.phoneKey(a.Phone); ok {
				p.byKey[e164] = a
			}
		}
	}
	return p, nil
}

// Name identifies the provider in the chain.
func (p *Provider) Name() string { return "demo" }

// Login matches the identifier against the directory after the configured delay.
func (p *Provider) Login(ctx context.Context, emailOrPhone, password string) (domainauth.AuthResult, error) {
	if err := p.wait(ctx, p.loginDelay); err != nil {
		return domainauth.AuthResult{}, err
	}

	acct, ok := p.lookup(emailOrPhone)
	if !ok || bcrypt.CompareHashAndPassword(p.hash, []byte(strings.TrimSpace(password))) != nil {
		return domainauth.AuthResult{}, apperrors.Unauthorized(msgInvalidCredentials)
	}
	user := domainauth.User{ID: acct.ID, Name: acct.Name, Email: acct.Email, Role: acct.Role}
	return domainauth.AuthResult{User: user, Token: TokenPrefix + acct.ID}, nil
}

// Signup synthesizes a local account after the configured delay. The id is the
// current time in milliseconds.
func (p *Provider) Signup(ctx context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error) {
	if err := p.wait(ctx, p.signupDelay); err != nil {
		return domainauth.AuthResult{}, err
	}

	role := in.Role
	if role == "" {
		role = domainauth.RoleFieldOfficer
	}
	id := strconv.FormatInt(p.clock.Now().UnixMilli(), 10)
	user := domainauth.User{
		ID:    id,
		Name:  in.Name,
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Role:  role,
	}
	return domainauth.AuthResult{User: user, Token: TokenPrefix + id}, nil
}

func (p *Provider) lookup(identifier string) (Account, bool) {
	if acct, ok := p.byKey[normalizeIdentifier(identifier)]; ok {
		return acct, true
	}
	if key, ok := p.phoneKey(identifier); ok {
		acct, found := p.byKey[key]
		return acct, found
	}
	return Account{}, false
}

// phoneKey returns the E.164 form of a phone-looking identifier.
func (p *Provider) phoneKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "@") {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, p.region)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func (p *Provider) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return contextError(err)
		}
		return nil
	}
	select {
	case <-p.clock.After(d):
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "Request timed out. Please try again.")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "Request was canceled.")
}

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

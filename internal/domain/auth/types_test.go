package auth

import (
	"testing"
	"time"
)

func TestRole_IsValid(t *testing.T) {
	for _, r := range []Role{RoleFieldOfficer, RoleVeterinarian, RoleAdmin} {
		if !r.IsValid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if Role("owner").IsValid() {
		t.Fatalf("did not expect owner to be valid")
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("  Veterinarian ")
	if !ok || r != RoleVeterinarian {
		t.Fatalf("ParseRole = %q, %v", r, ok)
	}
	if _, ok := ParseRole(""); ok {
		t.Fatalf("empty role should not parse")
	}
}

func TestParseTimeoutMinutes(t *testing.T) {
	tests := map[string]int{
		"":      DefaultInactivityTimeoutMinutes,
		"abc":   DefaultInactivityTimeoutMinutes,
		"0":     DefaultInactivityTimeoutMinutes,
		"-5":    DefaultInactivityTimeoutMinutes,
		"15":    15,
		" 240 ": 240,
	}
	for raw, want := range tests {
		if got := ParseTimeoutMinutes(raw); got != want {
			t.Fatalf("ParseTimeoutMinutes(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestTimeoutDuration(t *testing.T) {
	if got := TimeoutDuration(15); got != 15*time.Minute {
		t.Fatalf("TimeoutDuration(15) = %v", got)
	}
	if got := TimeoutDuration(0); got != 30*time.Minute {
		t.Fatalf("TimeoutDuration(0) = %v", got)
	}
}

func TestTimeoutForPreset(t *testing.T) {
	tests := map[string]int{"15min": 15, "30min": 30, "1hour": 60, "4HOURS": 240}
	for label, want := range tests {
		got, ok := TimeoutForPreset(label)
		if !ok || got != want {
			t.Fatalf("TimeoutForPreset(%q) = %d, %v", label, got, ok)
		}
	}
	if _, ok := TimeoutForPreset("2days"); ok {
		t.Fatalf("unexpected preset match")
	}
}

func TestParseActivityKinds(t *testing.T) {
	got := ParseActivityKinds([]string{" Click", "", "keydown", "click"})
	if len(got) != 2 || got[0] != ActivityClick || got[1] != ActivityKeyDown {
		t.Fatalf("unexpected kinds: %v", got)
	}
}

func TestState_LoggedIn(t *testing.T) {
	if (State{}).LoggedIn() {
		t.Fatalf("empty state should be logged out")
	}
	if !(State{User: &User{ID: "1"}}).LoggedIn() {
		t.Fatalf("expected logged in")
	}
}

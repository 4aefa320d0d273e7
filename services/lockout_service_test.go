package services

import (
	"testing"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/models"
)

func TestApplyFailureLocksAtThreshold(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	att := &models.LoginAttempt{UserID: "1234"}

	for i := 0; i < 4; i++ {
		applyFailure(att, now, 5, 30*time.Second)
		if att.Locked {
			t.Fatalf("locked after %d failures, want unlocked below 5", i+1)
		}
	}

	applyFailure(att, now, 5, 30*time.Second)
	if !att.Locked {
		t.Fatal("not locked after 5 failures")
	}
	if att.LockUntil == nil || !att.LockUntil.Equal(now.Add(30*time.Second)) {
		t.Fatalf("LockUntil = %v, want %v", att.LockUntil, now.Add(30*time.Second))
	}
}

func TestLockRemaining(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Second)

	tests := []struct {
		name string
		att  models.LoginAttempt
		at   time.Time
		want int
	}{
		{"not locked", models.LoginAttempt{}, now, 0},
		{"freshly locked", models.LoginAttempt{Locked: true, LockUntil: &until}, now, 30},
		{"mid window", models.LoginAttempt{Locked: true, LockUntil: &until}, now.Add(12 * time.Second), 18},
		{"partial second rounds up", models.LoginAttempt{Locked: true, LockUntil: &until}, now.Add(29*time.Second + 500*time.Millisecond), 1},
		{"window elapsed", models.LoginAttempt{Locked: true, LockUntil: &until}, now.Add(31 * time.Second), 0},
		{"locked without deadline", models.LoginAttempt{Locked: true}, now, 0},
	}
	for _, tt := range tests {
		if got := lockRemaining(&tt.att, tt.at); got != tt.want {
			t.Errorf("%s: lockRemaining = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLockExpiresWithoutReset(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	att := &models.LoginAttempt{UserID: "1234"}
	for i := 0; i < 5; i++ {
		applyFailure(att, now, 5, 30*time.Second)
	}

	// past the window the id is open again, but the counter still
	// stands, so the very next failure re-locks
	after := now.Add(31 * time.Second)
	if got := lockRemaining(att, after); got != 0 {
		t.Fatalf("lockRemaining after expiry = %d, want 0", got)
	}
	applyFailure(att, after, 5, 30*time.Second)
	if !att.Locked || att.LockUntil == nil || !att.LockUntil.Equal(after.Add(30*time.Second)) {
		t.Fatalf("failure after expiry did not re-lock: %+v", att)
	}
}

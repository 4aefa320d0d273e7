package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/models"

	"gorm.io/gorm"
)

// LockoutError reports how long the id stays locked. Handlers surface
// the remaining seconds so the login form can show a countdown.
type LockoutError struct {
	RemainingSecs int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("login locked, retry in %d seconds", e.RemainingSecs)
}

// LockoutService maintains the shared failed-login ledger. The ledger is
// stored in the database so a lockout follows the user id across devices,
// unlike the local send quota.
type LockoutService struct {
	db          *gorm.DB
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

func NewLockoutService(db *gorm.DB, maxAttempts, lockoutSecs int) *LockoutService {
	return &LockoutService{
		db:          db,
		maxAttempts: maxAttempts,
		lockout:     time.Duration(lockoutSecs) * time.Second,
		now:         time.Now,
	}
}

// Check returns a *LockoutError while the id is inside an active lock
// window. An expired lock is treated as open; the counter is only reset
// by a successful login.
func (s *LockoutService) Check(userID string) error {
	att, err := s.load(userID)
	if err != nil {
		return err
	}
	if remaining := lockRemaining(att, s.now()); remaining > 0 {
		return &LockoutError{RemainingSecs: remaining}
	}
	return nil
}

// RecordFailure bumps the counter and locks the id once it reaches the
// threshold. When the lock engages, the returned error carries the full
// lockout duration.
func (s *LockoutService) RecordFailure(userID string) error {
	att, err := s.load(userID)
	if err != nil {
		return err
	}
	applyFailure(att, s.now(), s.maxAttempts, s.lockout)
	if err := s.db.Save(att).Error; err != nil {
		return err
	}
	if att.Locked {
		return &LockoutError{RemainingSecs: int(s.lockout.Seconds())}
	}
	return nil
}

// RecordSuccess resets the ledger for the id.
func (s *LockoutService) RecordSuccess(userID string) error {
	att, err := s.load(userID)
	if err != nil {
		return err
	}
	att.Attempts = 0
	att.Locked = false
	att.LockUntil = nil
	att.LastAttempt = s.now()
	return s.db.Save(att).Error
}

func (s *LockoutService) load(userID string) (*models.LoginAttempt, error) {
	var att models.LoginAttempt
	err := s.db.First(&att, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		att = models.LoginAttempt{UserID: userID, LastAttempt: s.now()}
		if err := s.db.Create(&att).Error; err != nil {
			return nil, err
		}
		return &att, nil
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// lockRemaining returns the whole seconds left in the lock window, or 0
// when the id is not locked (or the window has elapsed).
func lockRemaining(att *models.LoginAttempt, now time.Time) int {
	if !att.Locked || att.LockUntil == nil {
		return 0
	}
	diff := att.LockUntil.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Seconds()))
}

func applyFailure(att *models.LoginAttempt, now time.Time, maxAttempts int, lockout time.Duration) {
	att.Attempts++
	att.LastAttempt = now
	if att.Attempts >= maxAttempts {
		until := now.Add(lockout)
		att.Locked = true
		att.LockUntil = &until
	}
}

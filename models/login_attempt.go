package models

import "time"

// LoginAttempt is the shared failed-login ledger for one user id. Unlike
// the per-room send quota it lives in the database, so a lockout follows
// the id across devices.
type LoginAttempt struct {
	UserID      string     `json:"user_id" gorm:"primaryKey"`
	Attempts    int        `json:"attempts"`
	LastAttempt time.Time  `json:"last_attempt"`
	Locked      bool       `json:"locked"`
	LockUntil   *time.Time `json:"lock_until"`
}

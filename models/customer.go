package models

import "time"

type Customer struct {
	UserID    string    `json:"user_id" gorm:"primaryKey"` // 4-digit customer code
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	KyotenID  string    `json:"kyoten_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

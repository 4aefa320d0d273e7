package models

import "time"

type Staff struct {
	UserID    string    `json:"user_id" gorm:"primaryKey"` // 7-digit staff code
	Name      string    `json:"name"`
	KyotenID  string    `json:"kyoten_id" gorm:"index"`
	Routes    []string  `json:"routes" gorm:"serializer:json"` // assignable route ids
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import "time"

// User is the authentication record behind a short numeric id.
// 4-digit ids belong to customers, 7-digit ids to staff.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex"`
	Email     string    `json:"email" gorm:"uniqueIndex"` // synthetic handle, <user_id>@medic.co.jp
	Password  string    `json:"-"`                        // bcrypt hash
	UserType  string    `json:"user_type"`                // customer, staff
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

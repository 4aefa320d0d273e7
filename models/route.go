package models

import "time"

// ScheduleEntry is one customer stop in a route's day plan.
type ScheduleEntry struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	IsRePickup bool   `json:"isRePickup"`
	Order      int    `json:"order"`
}

// WeekSchedule maps a lowercase English weekday ("monday"...) to the
// ordered customer stops for that day.
type WeekSchedule map[string][]ScheduleEntry

// PickupRoute is the reference data for one course: which customers are
// visited on which weekday. Read-only to this service.
type PickupRoute struct {
	RouteID   string       `json:"route_id" gorm:"primaryKey"`
	KyotenID  string       `json:"kyoten_id" gorm:"index"`
	Schedule  WeekSchedule `json:"schedule" gorm:"serializer:json"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RouteActivity marks which staff member is running a route today. The
// course overview screen reads it to show routes as staffed "online".
type RouteActivity struct {
	KyotenID   string    `json:"kyoten_id" gorm:"primaryKey"`
	RouteID    string    `json:"route_id" gorm:"primaryKey"`
	StaffID    string    `json:"staff_id"`
	StaffName  string    `json:"staff_name"`
	LoginDate  string    `json:"login_date"` // YYYY-MM-DD
	LastAction string    `json:"last_action"`
	UpdatedAt  time.Time `json:"updated_at"`
}

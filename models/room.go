package models

import "time"

// ChatRoom is a per staff-customer channel for one day. The id is
// deterministic (staffID + "_" + customerID) so re-materializing the
// same route overwrites instead of duplicating.
type ChatRoom struct {
	RoomID       string    `json:"room_id" gorm:"primaryKey"`
	CustomerID   string    `json:"customer_id" gorm:"index"`
	CustomerName string    `json:"customer_name"`
	StaffID      string    `json:"staff_id" gorm:"index"`
	StaffName    string    `json:"staff_name"`
	RouteID      string    `json:"route_id" gorm:"index"`
	KyotenID     string    `json:"kyoten_id"`
	PickupStatus string    `json:"pickup_status"`
	IsRePickup   bool      `json:"isRePickup"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Date         string    `json:"date" gorm:"index"` // YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at"`
}

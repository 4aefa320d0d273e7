package models

import "gorm.io/gorm"

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Customer{},
		&Staff{},
		&PickupRoute{},
		&RouteActivity{},
		&ChatRoom{},
		&RoomMessage{},
		&LoginAttempt{},
	)
	if err != nil {
		return err
	}
	return nil
}

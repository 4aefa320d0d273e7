package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"
	"gorm.io/gorm"

	"github.com/KitaosakaSystem/webSyuhai/models"
)

// StatusEvent is emitted on every customer send and staff acknowledge.
// The course overview keeps its per-route last-action column fresh by
// consuming these.
type StatusEvent struct {
	RoomID     string `json:"room_id"`
	RouteID    string `json:"route_id"`
	KyotenID   string `json:"kyoten_id"`
	StaffID    string `json:"staff_id"`
	Action     string `json:"selectedAction"`
	IsCustomer bool   `json:"isCustomer"`
	OccurredAt int64  `json:"occurred_at"`
}

type StatusHandler struct {
	db *gorm.DB
}

func NewStatusHandler(db *gorm.DB) *StatusHandler {
	return &StatusHandler{db: db}
}

func (h *StatusHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event StatusEvent

	if err := json.Unmarshal(message.Value, &event); err != nil {
		log.Printf("Failed to unmarshal status event: %v", err)
		return err
	}

	if event.RouteID == "" {
		return nil
	}

	err := h.db.WithContext(ctx).
		Model(&models.RouteActivity{}).
		Where("kyoten_id = ? AND route_id = ?", event.KyotenID, event.RouteID).
		Update("last_action", event.Action).Error
	if err != nil {
		log.Printf("Failed to update route activity: %v", err)
		return err
	}

	return nil
}

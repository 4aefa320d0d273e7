package services

import (
	"context"
	"errors"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownAction = errors.New("unknown action kind")
	ErrNoMessage     = errors.New("room has no message to acknowledge")
)

// customerActionText is what a customer's action renders as in the slot.
var customerActionText = map[string]string{
	models.ActionCollect:   "〇検体あり",
	models.ActionNoCollect: "X検体なし",
	models.ActionRecollect: "▼再集配",
}

// staffReplyText is the canned reply synthesized for each action once
// staff acknowledges it.
var staffReplyText = map[string]string{
	models.ActionCollect:   "ありがとうございます。検体の回収にむかいます。",
	models.ActionNoCollect: "かしこまりました。\nまた次回、よろしくお願いいたします。",
	models.ActionRecollect: "ありがとうございます。再回収に伺います。",
}

// ReplyTextFor returns the canned staff reply for a customer action, or
// "" when the action has no reply template.
func ReplyTextFor(action string) string {
	return staffReplyText[action]
}

// ChatService owns the single live message slot each room has. Every
// send targets the row whose primary key is the room id, so the slot is
// overwritten, never appended to. Last write wins when both sides race.
type ChatService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db, now: time.Now}
}

// SendCustomerAction overwrites the room's slot with a fresh customer
// selection. The staff read state always restarts at unread.
func (s *ChatService) SendCustomerAction(ctx context.Context, roomID, senderID, action string) (*models.RoomMessage, error) {
	text, ok := customerActionText[action]
	if !ok {
		return nil, ErrUnknownAction
	}

	msg := models.RoomMessage{
		RoomID:      roomID,
		SenderID:    senderID,
		IsCustomer:  true,
		Text:        text,
		Action:      action,
		Time:        FormatClock(s.now()),
		IsStaffRead: false,
		ReadAt:      "",
		PickupAt:    "",
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// AcknowledgeAsStaff marks the current slot read and stamps the reply
// time. Acknowledging and replying are the same write: the read_at value
// is what makes the customer-side feed synthesize the canned reply.
func (s *ChatService) AcknowledgeAsStaff(ctx context.Context, roomID string) (*models.RoomMessage, error) {
	var msg models.RoomMessage
	if err := s.db.WithContext(ctx).First(&msg, "room_id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMessage
		}
		return nil, err
	}

	msg.IsStaffRead = true
	msg.ReadAt = FormatClock(s.now())
	if err := s.db.WithContext(ctx).Save(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Slot returns the room's current message, or nil when nothing has been
// sent yet.
func (s *ChatService) Slot(ctx context.Context, roomID string) (*models.RoomMessage, error) {
	var msg models.RoomMessage
	err := s.db.WithContext(ctx).First(&msg, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Slots loads the current message of every listed room.
func (s *ChatService) Slots(ctx context.Context, roomIDs []string) ([]models.RoomMessage, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	var msgs []models.RoomMessage
	if err := s.db.WithContext(ctx).Where("room_id IN ?", roomIDs).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// Room loads one room record.
func (s *ChatService) Room(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := s.db.WithContext(ctx).First(&room, "room_id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// CustomerRooms lists today's rooms a customer appears in.
func (s *ChatService) CustomerRooms(ctx context.Context, customerID, date string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND date = ?", customerID, date).
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// Today returns the YYYY-MM-DD key for the current room set.
func (s *ChatService) Today() string {
	return FormatDate(s.now())
}

// FormatClock renders the HH:mm display timestamp stored on the slot.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

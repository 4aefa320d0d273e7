package services

import (
	"github.com/KitaosakaSystem/webSyuhai/models"
)

// The feed layer mirrors what the document listeners do on the client:
// it folds a stream of message-slot change events into a derived,
// role-aware view. Subscription batches from independent listeners can
// interleave arbitrarily, so every merge here is idempotent: applying
// the same change twice, or reordering changes of unrelated rooms,
// converges to the same state.

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
)

// SlotChange is one message-slot change event as delivered by the
// backend. Added and modified are handled identically because a room
// only ever has one slot.
type SlotChange struct {
	Type    ChangeType
	Message models.RoomMessage
}

// StatusLabelFor maps an action kind to the room-list status badge.
func StatusLabelFor(action string) string {
	switch action {
	case models.ActionCollect:
		return "検体あり"
	case models.ActionRecollect:
		return "再集配あり"
	case models.ActionNoCollect:
		return "検体なし"
	default:
		return "未選択"
	}
}

// ReplyStateFor maps the slot's read state to the unread/replied badge.
func ReplyStateFor(action, readAt string) string {
	if readAt != "" {
		return "返信済み"
	}
	if action != "" {
		return "未読"
	}
	return ""
}

// RoomStatus is one merged row of the room list: the room joined with
// its current slot state.
type RoomStatus struct {
	Room        models.ChatRoom `json:"room"`
	Action      string          `json:"selectedAction"`
	ReadAt      string          `json:"read_at"`
	StatusLabel string          `json:"status_label"`
	ReplyState  string          `json:"reply_state"`
}

// Feed is the role-specific merge of slot changes into a room list. The
// implementation is picked once when the session opens; the per-event
// code never branches on role.
type Feed interface {
	Apply(change SlotChange)
	Snapshot() []RoomStatus
}

type slotView struct {
	action string
	readAt string
}

// StaffFeed folds the whole message stream down to the rooms the staff
// member materialized today; changes for unknown rooms are dropped.
type StaffFeed struct {
	order []string
	rooms map[string]models.ChatRoom
	slots map[string]slotView
}

func NewStaffFeed(rooms []models.ChatRoom) *StaffFeed {
	f := &StaffFeed{
		rooms: make(map[string]models.ChatRoom, len(rooms)),
		slots: make(map[string]slotView, len(rooms)),
	}
	for _, r := range rooms {
		if _, ok := f.rooms[r.RoomID]; ok {
			continue
		}
		f.order = append(f.order, r.RoomID)
		f.rooms[r.RoomID] = r
	}
	return f
}

func (f *StaffFeed) Apply(change SlotChange) {
	roomID := change.Message.RoomID
	if _, ok := f.rooms[roomID]; !ok {
		return
	}
	f.slots[roomID] = slotView{action: change.Message.Action, readAt: change.Message.ReadAt}
}

func (f *StaffFeed) Snapshot() []RoomStatus {
	out := make([]RoomStatus, 0, len(f.order))
	for _, id := range f.order {
		slot := f.slots[id]
		out = append(out, RoomStatus{
			Room:        f.rooms[id],
			Action:      slot.action,
			ReadAt:      slot.readAt,
			StatusLabel: StatusLabelFor(slot.action),
			ReplyState:  ReplyStateFor(slot.action, slot.readAt),
		})
	}
	return out
}

// CustomerFeed is the customer-side room list: today's rooms where the
// customer appears, with the courier shown as the chat partner.
type CustomerFeed struct {
	order []string
	rooms map[string]models.ChatRoom
	slots map[string]slotView
}

func NewCustomerFeed(rooms []models.ChatRoom) *CustomerFeed {
	f := &CustomerFeed{
		rooms: make(map[string]models.ChatRoom, len(rooms)),
		slots: make(map[string]slotView, len(rooms)),
	}
	for _, r := range rooms {
		if _, ok := f.rooms[r.RoomID]; ok {
			continue
		}
		f.order = append(f.order, r.RoomID)
		f.rooms[r.RoomID] = r
	}
	return f
}

func (f *CustomerFeed) Apply(change SlotChange) {
	roomID := change.Message.RoomID
	if _, ok := f.rooms[roomID]; !ok {
		return
	}
	f.slots[roomID] = slotView{action: change.Message.Action, readAt: change.Message.ReadAt}
}

func (f *CustomerFeed) Snapshot() []RoomStatus {
	out := make([]RoomStatus, 0, len(f.order))
	for _, id := range f.order {
		room := f.rooms[id]
		room.CustomerName = "(メディック)" + room.StaffName
		slot := f.slots[id]
		out = append(out, RoomStatus{
			Room:        room,
			Action:      slot.action,
			ReadAt:      slot.readAt,
			StatusLabel: StatusLabelFor(slot.action),
			ReplyState:  ReplyStateFor(slot.action, slot.readAt),
		})
	}
	return out
}

// FeedEntry is one rendered line of an open room's message feed.
type FeedEntry struct {
	Text        string `json:"text"`
	Time        string `json:"time"`
	IsCustomer  bool   `json:"isCustomer"`
	Synthesized bool   `json:"synthesized"`
}

// RoomFeed reconstructs a message history from the room's single slot.
// The slot itself is the only stored message; the staff reply exists
// only as the read_at transition, so the feed synthesizes the canned
// reply entry when that transition is first observed. emittedFor
// remembers which (action, read_at) pair already produced a reply, so
// redelivered snapshots of unchanged state never duplicate it.
type RoomFeed struct {
	roomID     string
	current    *models.RoomMessage
	emittedFor slotView
	emitted    bool
}

func NewRoomFeed(roomID string) *RoomFeed {
	return &RoomFeed{roomID: roomID}
}

// Apply folds one slot change in and returns the feed entries this
// change newly produced, in delivery order.
func (f *RoomFeed) Apply(change SlotChange) []FeedEntry {
	msg := change.Message
	if msg.RoomID != f.roomID {
		return nil
	}

	var fresh []FeedEntry

	prev := f.current
	cur := msg
	f.current = &cur

	if prev == nil || prev.Time != msg.Time || prev.Action != msg.Action {
		fresh = append(fresh, FeedEntry{
			Text:       msg.Text,
			Time:       msg.Time,
			IsCustomer: msg.IsCustomer,
		})
		// a rewritten slot starts a new send/read cycle
		f.emitted = false
	}

	state := slotView{action: msg.Action, readAt: msg.ReadAt}
	if msg.ReadAt == "" {
		f.emitted = false
		f.emittedFor = slotView{}
		return fresh
	}
	if f.emitted && f.emittedFor == state {
		return fresh
	}
	fresh = append(fresh, FeedEntry{
		Text:        ReplyTextFor(msg.Action),
		Time:        msg.ReadAt,
		IsCustomer:  false,
		Synthesized: true,
	})
	f.emitted = true
	f.emittedFor = state
	return fresh
}

// Entries renders the feed's current state: the live slot message plus
// the synthesized reply when the slot has been acknowledged.
func (f *RoomFeed) Entries() []FeedEntry {
	if f.current == nil {
		return nil
	}
	entries := []FeedEntry{{
		Text:       f.current.Text,
		Time:       f.current.Time,
		IsCustomer: f.current.IsCustomer,
	}}
	if f.current.ReadAt != "" {
		entries = append(entries, FeedEntry{
			Text:        ReplyTextFor(f.current.Action),
			Time:        f.current.ReadAt,
			IsCustomer:  false,
			Synthesized: true,
		})
	}
	return entries
}

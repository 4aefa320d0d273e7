package services

import (
	"testing"

	"github.com/KitaosakaSystem/webSyuhai/models"
)

func slotMsg(roomID, action, sentAt, readAt string) models.RoomMessage {
	return models.RoomMessage{
		RoomID:      roomID,
		SenderID:    "1234",
		IsCustomer:  true,
		Text:        "〇検体あり",
		Action:      action,
		Time:        sentAt,
		IsStaffRead: readAt != "",
		ReadAt:      readAt,
	}
}

func TestRoomFeedSynthesizesReplyOnce(t *testing.T) {
	feed := NewRoomFeed("r1")

	fresh := feed.Apply(SlotChange{Type: ChangeAdded, Message: slotMsg("r1", models.ActionCollect, "09:00", "")})
	if len(fresh) != 1 {
		t.Fatalf("unread slot produced %d entries, want 1", len(fresh))
	}
	if fresh[0].Synthesized {
		t.Fatal("customer entry flagged as synthesized")
	}

	// read transition produces the canned reply
	fresh = feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("r1", models.ActionCollect, "09:00", "09:05")})
	if len(fresh) != 1 {
		t.Fatalf("read transition produced %d entries, want 1", len(fresh))
	}
	if !fresh[0].Synthesized {
		t.Fatal("reply entry not flagged as synthesized")
	}
	if fresh[0].Text != ReplyTextFor(models.ActionCollect) {
		t.Fatalf("reply text = %q", fresh[0].Text)
	}
	if fresh[0].Time != "09:05" {
		t.Fatalf("reply time = %q, want 09:05", fresh[0].Time)
	}

	// redelivered identical snapshots never duplicate the reply
	for i := 0; i < 3; i++ {
		fresh = feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("r1", models.ActionCollect, "09:00", "09:05")})
		if len(fresh) != 0 {
			t.Fatalf("redelivery %d produced %d entries, want 0", i+1, len(fresh))
		}
	}
}

func TestRoomFeedNewSendStartsNewCycle(t *testing.T) {
	feed := NewRoomFeed("r1")
	feed.Apply(SlotChange{Type: ChangeAdded, Message: slotMsg("r1", models.ActionCollect, "09:00", "")})
	feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("r1", models.ActionCollect, "09:00", "09:05")})

	// the customer overwrites the slot, read state resets
	fresh := feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("r1", models.ActionRecollect, "10:00", "")})
	if len(fresh) != 1 {
		t.Fatalf("rewritten slot produced %d entries, want 1", len(fresh))
	}
	if fresh[0].Synthesized {
		t.Fatal("rewritten slot entry flagged as synthesized")
	}

	// the second acknowledgement is a new transition, so a new reply
	fresh = feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("r1", models.ActionRecollect, "10:00", "10:02")})
	if len(fresh) != 1 || !fresh[0].Synthesized {
		t.Fatalf("second cycle reply = %+v", fresh)
	}
	if fresh[0].Text != ReplyTextFor(models.ActionRecollect) {
		t.Fatalf("second cycle reply text = %q", fresh[0].Text)
	}
}

func TestRoomFeedDropsForeignRooms(t *testing.T) {
	feed := NewRoomFeed("r1")
	fresh := feed.Apply(SlotChange{Type: ChangeAdded, Message: slotMsg("other", models.ActionCollect, "09:00", "")})
	if len(fresh) != 0 {
		t.Fatalf("foreign room produced %d entries", len(fresh))
	}
	if entries := feed.Entries(); entries != nil {
		t.Fatalf("Entries = %+v, want nil", entries)
	}
}

func TestRoomFeedEntriesRenderCurrentState(t *testing.T) {
	feed := NewRoomFeed("r1")
	feed.Apply(SlotChange{Type: ChangeAdded, Message: slotMsg("r1", models.ActionNoCollect, "08:30", "08:45")})

	entries := feed.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want slot + reply", len(entries))
	}
	if !entries[0].IsCustomer || entries[0].Synthesized {
		t.Fatalf("first entry = %+v, want customer slot", entries[0])
	}
	if !entries[1].Synthesized || entries[1].Text != ReplyTextFor(models.ActionNoCollect) {
		t.Fatalf("second entry = %+v, want synthesized reply", entries[1])
	}
}

func staffRooms() []models.ChatRoom {
	return []models.ChatRoom{
		{RoomID: "1000001_0001", CustomerID: "0001", StaffID: "1000001", StaffName: "佐藤"},
		{RoomID: "1000001_0002", CustomerID: "0002", StaffID: "1000001", StaffName: "佐藤"},
	}
}

func TestStaffFeedIdempotentMerge(t *testing.T) {
	feed := NewStaffFeed(staffRooms())

	change := SlotChange{Type: ChangeAdded, Message: slotMsg("1000001_0002", models.ActionCollect, "09:00", "")}
	feed.Apply(change)
	feed.Apply(change)
	feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("not_materialized", models.ActionCollect, "09:00", "")})

	snap := feed.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d rows, want 2", len(snap))
	}
	if snap[0].Room.RoomID != "1000001_0001" || snap[1].Room.RoomID != "1000001_0002" {
		t.Fatalf("row order = %s, %s", snap[0].Room.RoomID, snap[1].Room.RoomID)
	}
	if snap[0].StatusLabel != "未選択" {
		t.Fatalf("untouched room label = %q", snap[0].StatusLabel)
	}
	if snap[1].StatusLabel != "検体あり" || snap[1].ReplyState != "未読" {
		t.Fatalf("touched room = %q / %q", snap[1].StatusLabel, snap[1].ReplyState)
	}
}

func TestStaffFeedReadStateBadge(t *testing.T) {
	feed := NewStaffFeed(staffRooms())
	feed.Apply(SlotChange{Type: ChangeModified, Message: slotMsg("1000001_0001", models.ActionRecollect, "09:00", "09:10")})

	snap := feed.Snapshot()
	if snap[0].StatusLabel != "再集配あり" || snap[0].ReplyState != "返信済み" {
		t.Fatalf("acknowledged room = %q / %q", snap[0].StatusLabel, snap[0].ReplyState)
	}
}

func TestCustomerFeedShowsCourierAsPartner(t *testing.T) {
	feed := NewCustomerFeed([]models.ChatRoom{
		{RoomID: "1000001_0001", CustomerID: "0001", CustomerName: "田中医院", StaffID: "1000001", StaffName: "佐藤"},
	})

	snap := feed.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d rows, want 1", len(snap))
	}
	if snap[0].Room.CustomerName != "(メディック)佐藤" {
		t.Fatalf("partner name = %q", snap[0].Room.CustomerName)
	}
}

func TestStatusLabelFor(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{models.ActionCollect, "検体あり"},
		{models.ActionRecollect, "再集配あり"},
		{models.ActionNoCollect, "検体なし"},
		{"", "未選択"},
		{"bogus", "未選択"},
	}
	for _, tt := range tests {
		if got := StatusLabelFor(tt.action); got != tt.want {
			t.Errorf("StatusLabelFor(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestReplyStateFor(t *testing.T) {
	tests := []struct {
		action string
		readAt string
		want   string
	}{
		{models.ActionCollect, "09:05", "返信済み"},
		{models.ActionCollect, "", "未読"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := ReplyStateFor(tt.action, tt.readAt); got != tt.want {
			t.Errorf("ReplyStateFor(%q, %q) = %q, want %q", tt.action, tt.readAt, got, tt.want)
		}
	}
}

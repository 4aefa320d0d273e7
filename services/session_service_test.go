package services

import (
	"testing"

	"github.com/KitaosakaSystem/webSyuhai/models"
)

func TestEvictStale(t *testing.T) {
	rooms := []models.ChatRoom{{RoomID: "1000001_0001"}}

	tests := []struct {
		name        string
		state       SessionState
		today       string
		wantEvicted bool
	}{
		{"empty state", SessionState{}, "2025-06-03", false},
		{"same day", SessionState{Date: "2025-06-03", TodayRoute: "R7", Rooms: rooms}, "2025-06-03", false},
		{"previous day", SessionState{Date: "2025-06-02", TodayRoute: "R7", Rooms: rooms}, "2025-06-03", true},
		{"future date", SessionState{Date: "2025-06-04", TodayRoute: "R7", Rooms: rooms}, "2025-06-03", true},
	}
	for _, tt := range tests {
		got, evicted := EvictStale(tt.state, tt.today)
		if evicted != tt.wantEvicted {
			t.Errorf("%s: evicted = %v, want %v", tt.name, evicted, tt.wantEvicted)
			continue
		}
		if evicted {
			if got.TodayRoute != "" || len(got.Rooms) != 0 || got.Date != "" {
				t.Errorf("%s: evicted state not empty: %+v", tt.name, got)
			}
		} else if got.TodayRoute != tt.state.TodayRoute || len(got.Rooms) != len(tt.state.Rooms) {
			t.Errorf("%s: kept state mangled: %+v", tt.name, got)
		}
	}
}

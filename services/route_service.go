package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRouteRequired  = errors.New("route id is required")
	ErrDuplicateRoute = errors.New("route is already active for today")
	ErrRouteNotFound  = errors.New("route not found")
)

// StaffIdentity is the subset of the session a materialization needs.
type StaffIdentity struct {
	UserID   string
	Name     string
	KyotenID string
}

type RouteService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRouteService(db *gorm.DB) *RouteService {
	return &RouteService{db: db, now: time.Now}
}

// MaterializeRoute turns today's schedule of a course into one chat room
// per customer. Room ids are deterministic (staff_customer), so running
// the same route twice overwrites the same N rooms instead of creating
// 2N. The whole step runs in one transaction: either every room and the
// activity marker land, or nothing does.
func (s *RouteService) MaterializeRoute(ctx context.Context, staff StaffIdentity, routeID, activeRouteID string) ([]models.ChatRoom, error) {
	if routeID == "" {
		return nil, ErrRouteRequired
	}
	if routeID == activeRouteID {
		return nil, ErrDuplicateRoute
	}

	var route models.PickupRoute
	if err := s.db.WithContext(ctx).First(&route, "route_id = ?", routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	today := s.now()
	entries := route.Schedule[WeekdayKey(today)]
	if len(entries) == 0 {
		return nil, ErrRouteNotFound
	}

	rooms := BuildRooms(staff, routeID, route.KyotenID, entries, today)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rooms {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rooms[i]).Error; err != nil {
				return err
			}
		}
		activity := models.RouteActivity{
			KyotenID:  route.KyotenID,
			RouteID:   routeID,
			StaffID:   staff.UserID,
			StaffName: staff.Name,
			LoginDate: FormatDate(today),
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&activity).Error
	})
	if err != nil {
		return nil, err
	}

	return rooms, nil
}

// AssignedRoutes returns the course ids a staff member may run.
func (s *RouteService) AssignedRoutes(ctx context.Context, staffID string) ([]string, error) {
	var st models.Staff
	if err := s.db.WithContext(ctx).First(&st, "user_id = ?", staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return st.Routes, nil
}

// RouteOverview lists a depot's routes with today's staffing state.
type RouteOverview struct {
	RouteID    string `json:"route_id"`
	StaffName  string `json:"staff_name"`
	LastAction string `json:"last_action"`
	Status     string `json:"status"` // online, offline
}

// DepotOverview reports which routes of a depot are staffed today. A
// route is online when its activity marker carries today's date.
func (s *RouteService) DepotOverview(ctx context.Context, kyotenID string) ([]RouteOverview, error) {
	var activities []models.RouteActivity
	if err := s.db.WithContext(ctx).Where("kyoten_id = ?", kyotenID).Find(&activities).Error; err != nil {
		return nil, err
	}
	return buildOverview(activities, FormatDate(s.now())), nil
}

// buildOverview renders activity markers as overview rows. Staff name
// and last action only show while the marker is current; an offline
// route carries stale values from its last run.
func buildOverview(activities []models.RouteActivity, today string) []RouteOverview {
	overviews := make([]RouteOverview, 0, len(activities))
	for _, a := range activities {
		o := RouteOverview{RouteID: a.RouteID, Status: "offline"}
		if a.LoginDate == today {
			o.StaffName = a.StaffName
			o.LastAction = a.LastAction
			o.Status = "online"
		}
		overviews = append(overviews, o)
	}
	sort.Slice(overviews, func(i, j int) bool { return overviews[i].RouteID < overviews[j].RouteID })
	return overviews
}

// RoomID derives the deterministic room key for a staff-customer pair.
func RoomID(staffID, customerID string) string {
	return staffID + "_" + customerID
}

// WeekdayKey maps a time to the schedule key ("monday".."sunday").
func WeekdayKey(t time.Time) string {
	switch t.Weekday() {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

// FormatDate renders the YYYY-MM-DD cache-validity key.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// BuildRooms expands today's schedule entries into room records in visit
// order.
func BuildRooms(staff StaffIdentity, routeID, kyotenID string, entries []models.ScheduleEntry, today time.Time) []models.ChatRoom {
	ordered := make([]models.ScheduleEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	rooms := make([]models.ChatRoom, 0, len(ordered))
	for _, e := range ordered {
		rooms = append(rooms, models.ChatRoom{
			RoomID:       RoomID(staff.UserID, e.CustomerID),
			CustomerID:   e.CustomerID,
			CustomerName: e.Name,
			StaffID:      staff.UserID,
			StaffName:    staff.Name,
			RouteID:      routeID,
			KyotenID:     kyotenID,
			PickupStatus: "1",
			IsRePickup:   e.IsRePickup,
			Address:      e.Address,
			Phone:        e.Phone,
			Date:         FormatDate(today),
			CreatedAt:    today,
		})
	}
	return rooms
}

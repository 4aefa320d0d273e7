package handlers

import (
	"errors"
	"net/http"

	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/services"

	"github.com/labstack/echo/v4"
)

type RouteHandler struct {
	routeService   *services.RouteService
	chatService    *services.ChatService
	sessionService *services.SessionService
}

func NewRouteHandler(routeService *services.RouteService, chatService *services.ChatService, sessionService *services.SessionService) *RouteHandler {
	return &RouteHandler{
		routeService:   routeService,
		chatService:    chatService,
		sessionService: sessionService,
	}
}

// ListAssignedRoutes returns the course ids the staff member may pick.
func (h *RouteHandler) ListAssignedRoutes(c echo.Context) error {
	user := c.Get("user").(*models.User)

	routes, err := h.routeService.AssignedRoutes(c.Request().Context(), user.UserID)
	if err != nil {
		if errors.Is(err, services.ErrRouteNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "staff record not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch routes"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"routes": routes})
}

type selectRouteRequest struct {
	RouteID string `json:"route_id"`
}

// SelectRoute materializes today's chat rooms for the chosen course and
// caches them as the session's day state.
func (h *RouteHandler) SelectRoute(c echo.Context) error {
	user := c.Get("user").(*models.User)
	claims := c.Get("claims").(*services.Claims)

	var req selectRouteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	state, err := h.sessionService.Load(ctx, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
	}

	staff := services.StaffIdentity{
		UserID:   user.UserID,
		Name:     claims.UserName,
		KyotenID: claims.KyotenID,
	}
	rooms, err := h.routeService.MaterializeRoute(ctx, staff, req.RouteID, state.TodayRoute)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRouteRequired):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "route id is required"})
		case errors.Is(err, services.ErrDuplicateRoute):
			return c.JSON(http.StatusConflict, map[string]string{"error": "route is already active, re-login before switching back"})
		case errors.Is(err, services.ErrRouteNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to materialize route"})
		}
	}

	if err := h.sessionService.SaveRoute(ctx, user.UserID, req.RouteID, rooms); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cache rooms"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"route_id": req.RouteID,
		"rooms":    rooms,
	})
}

// ListRooms renders the role-aware room list: the staff view covers the
// materialized route, the customer view covers today's rooms the
// customer appears in. Both merge the current message slots through the
// role's feed.
func (h *RouteHandler) ListRooms(c echo.Context) error {
	user := c.Get("user").(*models.User)
	ctx := c.Request().Context()

	var feed services.Feed
	var rooms []models.ChatRoom

	switch user.UserType {
	case services.UserTypeStaff:
		state, err := h.sessionService.Load(ctx, user.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
		}
		rooms = state.Rooms
		feed = services.NewStaffFeed(rooms)
	default:
		today := h.chatService.Today()
		customerRooms, err := h.chatService.CustomerRooms(ctx, user.UserID, today)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch rooms"})
		}
		rooms = customerRooms
		feed = services.NewCustomerFeed(rooms)
	}

	roomIDs := make([]string, 0, len(rooms))
	for _, r := range rooms {
		roomIDs = append(roomIDs, r.RoomID)
	}
	slots, err := h.chatService.Slots(ctx, roomIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch messages"})
	}
	for _, slot := range slots {
		feed.Apply(services.SlotChange{Type: services.ChangeAdded, Message: slot})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rooms": feed.Snapshot(),
	})
}

package handlers

import (
	"net/http"

	"github.com/KitaosakaSystem/webSyuhai/services"

	"github.com/labstack/echo/v4"
)

type CourseHandler struct {
	routeService *services.RouteService
}

func NewCourseHandler(routeService *services.RouteService) *CourseHandler {
	return &CourseHandler{routeService: routeService}
}

// GetDepotOverview lists the depot's routes with today's staffing. A
// route shows as online only while the activity marker carries today's
// date, so yesterday's couriers drop off automatically.
func (h *CourseHandler) GetDepotOverview(c echo.Context) error {
	kyotenID := c.QueryParam("kyoten_id")
	if kyotenID == "" {
		claims := c.Get("claims").(*services.Claims)
		kyotenID = claims.KyotenID
	}
	if kyotenID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "kyoten_id is required"})
	}

	overview, err := h.routeService.DepotOverview(c.Request().Context(), kyotenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch course overview"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"kyoten_id": kyotenID,
		"routes":    overview,
	})
}

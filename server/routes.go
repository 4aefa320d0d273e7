package server

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) SetupRoutes(authMiddleware echo.MiddlewareFunc, staffMiddleware echo.MiddlewareFunc) {
	e := s.Echo
	api := e.Group("/api/v1")
	// Auth routes (unprotected)
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.AuthHandler.Register)
		auth.POST("/login", s.AuthHandler.Login, s.loginRateLimit())
		auth.POST("/refresh", s.AuthHandler.RefreshToken)
	}
	// 需要认证
	protected := api.Group("")
	protected.Use(authMiddleware)
	{
		// User routes
		protected.GET("/user", s.AuthHandler.GetCurrentUser)
		protected.POST("/logout", s.AuthHandler.Logout)
		// Course/route routes
		routes := protected.Group("/routes")
		{
			routes.GET("", s.RouteHandler.ListAssignedRoutes, staffMiddleware) // 担当コース一覧
			routes.POST("/select", s.RouteHandler.SelectRoute, staffMiddleware)
		}
		protected.GET("/rooms", s.RouteHandler.ListRooms) // 本日のルーム一覧
		protected.GET("/courses/overview", s.CourseHandler.GetDepotOverview)
		// Chat routes
		chat := protected.Group("/chat")
		{
			chat.GET("/:roomId/messages", s.ChatWebSocketHandler.GetMessages)
			chat.GET("/:roomId/online-users", s.ChatWebSocketHandler.GetOnlineUsers)
		}
		protected.GET("/chat/:roomId/ws", s.ChatWebSocketHandler.HandleWebSocket)
		// Bulk registration (staff only)
		admin := protected.Group("/admin", staffMiddleware)
		{
			admin.POST("/import/users", s.ImportHandler.ImportUsers)
			admin.POST("/import/customers", s.ImportHandler.ImportCustomers)
			admin.POST("/import/staff", s.ImportHandler.ImportStaff)
		}
	}
}

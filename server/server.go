package server

import (
	"context"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/config"
	"github.com/KitaosakaSystem/webSyuhai/csvimport"
	"github.com/KitaosakaSystem/webSyuhai/handlers"
	"github.com/KitaosakaSystem/webSyuhai/kafka"
	"github.com/KitaosakaSystem/webSyuhai/limiter"
	custommiddleware "github.com/KitaosakaSystem/webSyuhai/middleware"
	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/redis"
	"github.com/KitaosakaSystem/webSyuhai/services"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Echo                 *echo.Echo
	DB                   *gorm.DB
	Config               *config.Config
	AuthService          *services.AuthService
	AuthHandler          *handlers.AuthHandler
	RouteHandler         *handlers.RouteHandler
	CourseHandler        *handlers.CourseHandler
	ImportHandler        *handlers.ImportHandler
	ChatWebSocketHandler *handlers.ChatWebSocketHandler
	LimiterStore         limiter.Store
	Consumer             *kafka.Consumer
}

func NewServer() *Server {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		log.Fatal("Failed to auto-migrate database:", err)
	}

	rdb, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentLength},
		MaxAge:           86400,
	}))

	authService := services.NewAuthService(db, &cfg.Auth)
	lockoutService := services.NewLockoutService(db, cfg.Auth.MaxAttempts, cfg.Auth.LockoutSecs)
	sessionService := services.NewSessionService(rdb.Client, cfg.Chat.SessionTTLHours)
	routeService := services.NewRouteService(db)
	chatService := services.NewChatService(db)
	importer := csvimport.NewImporter(db, authService)

	limiterStore := limiter.NewRedisStore(rdb.Client)
	quota := limiter.NewRoomQuota(limiterStore, cfg.Chat.HourlyMessageLimit)

	producer, consumer := setupKafka(&cfg.Kafka, db)

	s := &Server{
		Echo:                 e,
		DB:                   db,
		Config:               &cfg,
		AuthService:          authService,
		AuthHandler:          handlers.NewAuthHandler(authService, lockoutService, sessionService),
		RouteHandler:         handlers.NewRouteHandler(routeService, chatService, sessionService),
		CourseHandler:        handlers.NewCourseHandler(routeService),
		ImportHandler:        handlers.NewImportHandler(importer),
		ChatWebSocketHandler: handlers.NewChatWebSocketHandler(chatService, quota, rdb, producer),
		LimiterStore:         limiterStore,
		Consumer:             consumer,
	}

	authMiddleware := custommiddleware.AuthMiddleware(authService)
	s.SetupRoutes(authMiddleware, custommiddleware.StaffOnlyMiddleware())
	return s
}

// setupKafka builds the status event producer and consumer. Both are
// optional: without brokers the server runs with the event stream off.
func setupKafka(cfg *config.KafkaConfig, db *gorm.DB) (*kafka.Producer, *kafka.Consumer) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	saramaCfg, err := kafka.NewSaramaConfig(cfg)
	if err != nil {
		log.Fatal("Failed to build kafka config:", err)
	}

	producer, err := kafka.NewProducer(cfg.Brokers, cfg.Topic, saramaCfg)
	if err != nil {
		log.Fatal("Failed to create kafka producer:", err)
	}

	consumer, err := kafka.NewConsumer(cfg.Brokers, cfg.GroupID, []string{cfg.Topic},
		saramaCfg, kafka.NewStatusHandler(db))
	if err != nil {
		log.Fatal("Failed to create kafka consumer:", err)
	}

	return producer, consumer
}

func (s *Server) Start(addr string) {
	if s.Consumer != nil {
		go func() {
			if err := s.Consumer.Start(context.Background()); err != nil {
				log.Errorf("Kafka consumer stopped: %v", err)
			}
		}()
	}
	log.Fatal(s.Echo.Start(addr))
}

// loginRateLimit throttles login attempts per client IP ahead of the
// per-id lockout ledger.
func (s *Server) loginRateLimit() echo.MiddlewareFunc {
	return custommiddleware.NewRateLimitMiddleware(s.LimiterStore, custommiddleware.RateLimitConfig{
		Limit:  30,
		Window: time.Minute,
	})
}

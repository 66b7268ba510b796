package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/checkin"
	"github.com/farellandr/ticketgate/internal/handlers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/ratelimit"
	"github.com/farellandr/ticketgate/internal/store"
)

type Deps struct {
	DB       *gorm.DB
	Services *middleware.Services
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger
}

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := config.InitRedis(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	var limiter *ratelimit.Limiter
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, "scan", cfg.ScanRateLimit, cfg.ScanRateWindow)
	} else {
		logger.Warn("REDIS_URL not set, scanner rate limiting disabled")
	}

	reveal, err := cfg.RevealScannerTo()
	if err != nil {
		return err
	}

	tickets, events, users := store.NewTicketStore(db), store.NewEventStore(db), store.NewUserStore(db)
	services := &middleware.Services{
		Checkin: checkin.NewEngine(tickets, events, users,
			checkin.WithRevealScannerTo(reveal),
			checkin.WithLogger(logger)),
		Booking: booking.NewEngine(tickets, events,
			booking.WithMaxPerBooking(cfg.MaxTicketsPerBooking),
			booking.WithLogger(logger)),
		Tokens: auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Logger: logger,
	}

	gin.SetMode(cfg.GinMode)
	r := NewRouter(Deps{DB: db, Services: services, Limiter: limiter, Logger: logger})

	logger.Info("listening", "port", cfg.Port)
	return r.Run(":" + cfg.Port)
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger))
	setupRoutes(r, d)
	return r
}

func setupRoutes(r *gin.Engine, d Deps) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(d.DB))

	r.Use(middleware.DatabaseMiddleware(d.DB), middleware.ServicesMiddleware(d.Services))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}
	}

	organizerOnly := middleware.RequireRoles(models.NewRoleSet(models.RoleOrganizer))
	adminOnly := middleware.RequireRoles(models.NewRoleSet(models.RoleAdmin))
	checkerOnly := middleware.RequireRoles(models.NewRoleSet(models.RoleTicketChecker))

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile)

		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", organizerOnly, handlers.CreateEvent)
			eventProtected.PUT("/:id", organizerOnly, handlers.UpdateEvent)
			eventProtected.DELETE("/:id", organizerOnly, handlers.DeleteEvent)
			eventProtected.GET("/:id/stats", middleware.RequireRoles(models.StaffRoles), handlers.GetEventStats)
		}

		organizer := protected.Group("/organizer")
		{
			organizer.POST("/apply", handlers.ApplyOrganizer)
			organizer.GET("/status", handlers.GetOrganizerStatus)
			organizer.GET("/events", organizerOnly, handlers.ListOrganizerEvents)
		}

		checkers := protected.Group("/checkers", organizerOnly)
		{
			checkers.POST("", handlers.InviteChecker)
			checkers.POST("/:id/events", handlers.AssignCheckerEvent)
		}

		checker := protected.Group("/checker", checkerOnly)
		{
			checker.GET("/events", handlers.ListCheckerEvents)
			checker.GET("/events/:id/stats", handlers.GetCheckerEventStats)
		}

		tickets := protected.Group("/tickets")
		{
			tickets.POST("", handlers.BookTickets)
			tickets.GET("/mine", handlers.ListMyTickets)
			tickets.GET("/:ticketId/qr", handlers.GetTicketQR)
			tickets.PATCH("/:ticketId/cancel", handlers.CancelTicket)
		}

		wishlist := protected.Group("/wishlist")
		{
			wishlist.GET("", handlers.ListWishlist)
			wishlist.POST("/:id", handlers.AddToWishlist)
			wishlist.DELETE("/:id", handlers.RemoveFromWishlist)
			wishlist.POST("/:id/toggle", handlers.ToggleWishlist)
		}

		scanner := protected.Group("/scanner", middleware.RequireRoles(models.ScanRoles), middleware.RateLimit(d.Limiter))
		{
			scanner.GET("/tickets/:ticketId", handlers.PreviewTicket)
			scanner.POST("/tickets/:ticketId/checkin", handlers.CheckinTicket)
		}

		admin := protected.Group("/admin", adminOnly)
		{
			admin.GET("/events/pending", handlers.ListPendingEvents)
			admin.PATCH("/events/:id/approve", handlers.ApproveEvent)
			admin.PATCH("/events/:id/reject", handlers.RejectEvent)
			admin.GET("/organizers/pending", handlers.ListPendingOrganizers)
			admin.PATCH("/organizers/:id", handlers.ReviewOrganizer)
			admin.GET("/users", handlers.ListUsers)
			admin.GET("/users/:id", handlers.GetUser)
			admin.PATCH("/users/:id/role", handlers.UpdateUserRole)
			admin.PATCH("/users/:id/status", handlers.UpdateUserStatus)
			admin.DELETE("/users/:id", handlers.DeleteUser)
		}
	}
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

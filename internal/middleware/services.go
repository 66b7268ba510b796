package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/checkin"
)

// Services are the long-lived components handlers reach through the gin
// context.
type Services struct {
	Checkin *checkin.Engine
	Booking *booking.Engine
	Tokens  *auth.TokenIssuer
	Logger  *slog.Logger
}

func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

func ServicesMiddleware(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("checkin_engine", svc.Checkin)
		c.Set("booking_engine", svc.Booking)
		c.Set("token_issuer", svc.Tokens)
		c.Set("logger", svc.Logger)
		c.Next()
	}
}

func GetDB(c *gin.Context) *gorm.DB {
	db, exists := c.Get("db")
	if !exists {
		return nil
	}
	return db.(*gorm.DB)
}

func GetCheckinEngine(c *gin.Context) *checkin.Engine {
	engine, exists := c.Get("checkin_engine")
	if !exists {
		return nil
	}
	return engine.(*checkin.Engine)
}

func GetBookingEngine(c *gin.Context) *booking.Engine {
	engine, exists := c.Get("booking_engine")
	if !exists {
		return nil
	}
	return engine.(*booking.Engine)
}

func GetTokenIssuer(c *gin.Context) *auth.TokenIssuer {
	issuer, exists := c.Get("token_issuer")
	if !exists {
		return nil
	}
	return issuer.(*auth.TokenIssuer)
}

func GetLogger(c *gin.Context) *slog.Logger {
	if logger, exists := c.Get("logger"); exists {
		if l, ok := logger.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

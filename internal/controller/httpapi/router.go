package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig зависимости HTTP-слоя
type RouterConfig struct {
	Bookings    *BookingHandlers
	Slots       *SlotHandlers
	JWTSecret   string
	Environment string
	Logger      *zap.Logger
}

// NewRouter собирает gin-маршрутизатор: публичное расписание и гостевые
// брони без аутентификации, пользовательские брони за JWT, операции со
// слотами за JWT плюс ролью администратора.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Публичное расписание
	r.GET("/api/slots", cfg.Slots.List)

	// Гостевые брони: авторизация кодом управления
	guest := r.Group("/api/guest/bookings")
	{
		guest.POST("", cfg.Bookings.CreateGuest)
		guest.GET("/:reference", cfg.Bookings.GetGuest)
		guest.POST("/:reference/cancel", cfg.Bookings.CancelGuest)
	}

	// Брони пользователей
	bookings := r.Group("/api/bookings")
	bookings.Use(JWTAuth(cfg.JWTSecret))
	{
		bookings.POST("/daycare", cfg.Bookings.CreateDaycare)
		bookings.POST("/interval", cfg.Bookings.CreateInterval)
		bookings.GET("", cfg.Bookings.List)
		bookings.GET("/:id", cfg.Bookings.Get)
		bookings.PATCH("/:id", cfg.Bookings.Modify)
		bookings.POST("/:id/cancel", cfg.Bookings.Cancel)
		bookings.DELETE("/:id", cfg.Bookings.Delete)
		bookings.POST("/:id/confirm", RequireAdmin(), cfg.Bookings.Confirm)
	}

	// Администрирование слотов
	admin := r.Group("/api/admin/slots")
	admin.Use(JWTAuth(cfg.JWTSecret), RequireAdmin())
	{
		admin.POST("", cfg.Slots.Create)
		admin.POST("/batch", cfg.Slots.CreateBatch)
		admin.GET("", cfg.Slots.List)
		admin.PATCH("/:id", cfg.Slots.Update)
		admin.DELETE("/:id", cfg.Slots.Delete)
		admin.DELETE("", cfg.Slots.DeleteRange)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

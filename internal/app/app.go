// Package app assembles the portal router from its modules.
package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kundenportal/internal/config"
	"kundenportal/internal/crm"
	"kundenportal/internal/middleware"
	"kundenportal/internal/modules/booking"
	"kundenportal/internal/modules/progress"
	"kundenportal/internal/modules/quote"
	"kundenportal/internal/pkg/jwt"
	"kundenportal/internal/session"
)

// App is the wired portal.
type App struct {
	Router *gin.Engine
	Quotes *quote.Service
	Hub    *progress.Hub
}

// New wires every module against the CRM client and the session store.
func New(cfg *config.PortalConfig, client *crm.Client, sessions session.Store) *App {
	j := jwt.New(cfg.SessionSecret, cfg.SessionTTL)
	hub := progress.NewHub()
	origins := cfg.Origins()

	quoteService := quote.NewService(client, sessions, hub, cfg.SessionTTL)
	quoteHandler := quote.NewHandler(quoteService, j, middleware.CookieOptions{
		Path:     cfg.CookiePath,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.SameSite(),
	})

	bookingService := booking.NewService(client, cfg.PublicBaseURL)
	bookingHandler := booking.NewHandler(bookingService)

	progressHandler := progress.NewHandler(hub, origins)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(origins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", middleware.PortalSession(j))
	{
		quoteHandler.RegisterRoutes(api)
		bookingHandler.RegisterRoutes(api)
	}

	ws := r.Group("/ws", middleware.PortalSession(j))
	{
		progressHandler.RegisterRoutes(ws)
	}

	return &App{Router: r, Quotes: quoteService, Hub: hub}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/auth"
	"listing-portal/internal/ratelimit"
	"listing-portal/internal/submission"
)

// RouterOptions carries everything NewRouter wires into routes
type RouterOptions struct {
	Base     *BaseHandler
	Listings *ListingHandler
	Requests *RequestHandler
	Admin    *AdminHandler

	Sessions *auth.Sessions
	Signer   *auth.InternalSigner
	// Limiter guards the public inquiry endpoint; nil disables it
	Limiter *ratelimit.KeyedLimiter

	AllowedOrigins     []string
	MaxMultipartMemory int64
	// MaxUploadBytes caps multipart bodies; zero leaves them unbounded
	MaxUploadBytes int64
	// MediaDir is served under /media when set
	MediaDir    string
	LogRequests bool
	Logger      *logrus.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.LogRequests {
		r.Use(RequestLogger(log))
	}
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}

	// CORS configuration
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	var upload []gin.HandlerFunc
	if opts.MaxUploadBytes > 0 {
		upload = append(upload, limitBody(opts.MaxUploadBytes))
	}

	r.GET("/health", healthCheck)
	if opts.MediaDir != "" {
		r.Static("/media", opts.MediaDir)
	}

	// Base record stage, reachable only with a signed service token
	internal := r.Group(submission.InternalPropertiesPath, opts.Signer.RequireInternal(opts.Sessions))
	{
		internal.POST("", append(upload, opts.Base.Create)...)
		internal.PUT("/:id", append(upload, opts.Base.Update)...)
	}

	r.GET("/api/property-types", opts.Listings.PropertyTypes)
	r.GET("/api/property-types/:id/fields", opts.Listings.Fields)

	properties := r.Group("/api/properties", opts.Sessions.RequireSession())
	{
		properties.POST("/:subtype", append(upload, opts.Listings.Create)...)
		properties.GET("/:subtype/:id", opts.Listings.Get)
		properties.PUT("/:subtype/:id", append(upload, opts.Listings.Update)...)
	}

	dashboard := r.Group("/dashboard/properties", opts.Sessions.RequireSession())
	{
		dashboard.GET("/:subtype/add", opts.Listings.AddForm)
		dashboard.GET("/:subtype/:id", opts.Listings.EditForm)
	}

	inquiry := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		inquiry = append(inquiry, opts.Limiter.Middleware())
	}
	r.POST("/api/property-request", append(inquiry, opts.Requests.Create)...)

	// Admin API routes
	admin := r.Group("/api/admin", opts.Sessions.RequireSession(), auth.RequireStaff())
	{
		admin.GET("/stats", opts.Admin.GetStats)

		admin.POST("/reconcile/run", opts.Admin.RunReconcile)
		admin.GET("/reconcile/logs", opts.Admin.GetReconcileLogs)

		admin.GET("/properties/:id/history", opts.Admin.GetPropertyHistory)
		admin.GET("/changes/recent", opts.Admin.GetRecentChanges)
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

// RequestLogger logs method, path, status and latency of every request
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

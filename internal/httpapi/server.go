// Package httpapi maps pipeline outcomes onto the JSON contract the
// kiosks and the admin frontend already speak.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"absensi/internal/activity"
	"absensi/internal/auth"
	"absensi/internal/config"
	"absensi/internal/httpmiddleware"
	"absensi/internal/ledger"
	"absensi/internal/scan"
	"absensi/internal/store"
	"absensi/internal/student"
	"absensi/internal/token"
)

// Server holds the wired components behind the HTTP routes.
type Server struct {
	cfg      config.App
	db       *store.DB
	redis    *store.Redis
	codec    *token.Codec
	students student.Repository
	records  *ledger.Service
	pipeline *scan.Service
	gate     *auth.Gate
	feed     *activity.Feed
}

// New creates a server. redis and feed may be nil.
func New(cfg config.App, db *store.DB, redis *store.Redis, codec *token.Codec,
	students student.Repository, records *ledger.Service, pipeline *scan.Service,
	gate *auth.Gate, feed *activity.Feed) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		redis:    redis,
		codec:    codec,
		students: students,
		records:  records,
		pipeline: pipeline,
		gate:     gate,
		feed:     feed,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	// Public scan surface: reachable from unattended kiosks, so no auth,
	// only the rate limiter.
	limiter := httpmiddleware.NewTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin)
	pub := r.Group("/api", limiter.Gin())
	pub.POST("/scan", s.scanNIS)
	pub.POST("/scan-nisn", s.scanNISN)
	pub.POST("/qr/verify", s.qrVerify)
	pub.GET("/scan-status/:nis", s.scanStatus)

	r.POST("/api/auth/login", s.login)

	admin := r.Group("/api", auth.Middleware(s.gate))
	admin.GET("/students", s.listStudents)
	admin.GET("/qr/generate/:nis", s.qrGenerate)
	admin.POST("/students/:nis/reissue-card", s.reissueCard)
	admin.GET("/scan-history", s.scanHistory)
	admin.GET("/attendance/today", s.attendanceToday)
	admin.GET("/attendance/by-date", s.attendanceByDate)
	admin.GET("/attendance/student/:nis", s.studentAttendance)
	admin.GET("/attendance/statistics", s.attendanceStatistics)
	admin.POST("/attendance/manual", s.manualAttendance)
	admin.PUT("/attendance/:id", s.updateAttendance)
	admin.DELETE("/attendance/:id", s.deleteAttendance)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	dbHealthy := s.db != nil && s.db.Client.PingContext(c.Request.Context()) == nil
	redisHealthy := s.redis.Healthy(c.Request.Context())
	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
}

// parseDate parses YYYY-MM-DD in local time, matching how record dates
// are assigned.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/services"
)

// QuestionSource loads a version and its questions.
type QuestionSource interface {
	Version(ctx context.Context, versionID string) (*models.QuestionSetVersion, error)
	QuestionsByVersion(ctx context.Context, versionID string) ([]services.Question, error)
}

type Deps struct {
	Reference  services.ReferenceService
	Submission services.SubmissionService
	Questions  QuestionSource
	Config     services.ConfigService
	History    services.HistoryService
	Dashboard  services.DashboardService

	Secret      []byte
	CORSOrigins []string
	// MediaDir is served under MediaPath when both are set.
	MediaDir  string
	MediaPath string

	LocationTimeout time.Duration
	LocationMaxAge  time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, o := range d.CORSOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return strings.HasPrefix(origin, "http://localhost:")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	if d.MediaDir != "" && d.MediaPath != "" {
		r.Static(d.MediaPath, d.MediaDir)
	}

	h := &handlers{deps: d}

	api := r.Group("/api/v1", RequireAuth(d.Secret))
	{
		api.GET("/reference", h.reference)
		api.POST("/checklists/score", h.score)
		api.POST("/checklists/report", h.report)
		api.POST("/checklists", h.submit)
		api.GET("/checklists", h.history)
		api.GET("/dashboard", RequireRole(RoleAdmin, RoleManager), h.dashboard)

		admin := api.Group("/admin", RequireRole(RoleAdmin))
		admin.GET("/versions/:id/check", h.checkVersion)
		admin.POST("/versions/:id/publish", h.publishVersion)
		admin.PUT("/versions/:id/questions", h.saveQuestion)
	}

	return r
}

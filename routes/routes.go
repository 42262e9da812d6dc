package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/controllers"
	"github.com/phillip/group-contributions-go/middleware"
)

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter(d *controllers.Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.Recovery(d.Log, !d.Cfg.IsProduction()),
		middleware.Metrics(d.Metrics),
		cors.New(corsConfig(d.Cfg)),
		middleware.BodyLimit(d.Cfg.MaxBodyBytes),
	)
	SetupRoutes(r, d)
	return r
}

func SetupRoutes(r *gin.Engine, d *controllers.Deps) {
	cfg := d.Cfg

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")

	// public
	api.GET("/health", controllers.Health())
	api.GET("/ready", controllers.Ready(d))

	// protected
	auth := middleware.AuthMiddleware(cfg)

	members := api.Group("/members")
	members.Use(auth)
	{
		members.GET("", controllers.ListMembers(d))
		members.POST("", controllers.CreateMember(d))
		members.GET("/:id", controllers.GetMember(d))
		members.PUT("/:id", controllers.UpdateMember(d))
		members.DELETE("/:id", middleware.RequireRole(cfg, middleware.RoleAdmin), controllers.DeleteMember(d))
	}

	contributions := api.Group("/contributions")
	contributions.Use(auth)
	{
		contributions.GET("", controllers.ListContributions(d))
		contributions.GET("/member/:memberId", controllers.ListMemberContributions(d))
		contributions.GET("/:year", controllers.ListContributionsForYear(d))
		contributions.PUT("/member/:memberId/month/:month", controllers.UpsertMonth(d))
		contributions.PUT("/:id", controllers.UpdateContribution(d))
	}

	reports := api.Group("/reports")
	reports.Use(auth)
	{
		reports.GET("/:year", controllers.GetReport(d))
		reports.GET("/:year/pdf", controllers.DownloadReport(d, "pdf"))
		reports.GET("/:year/xlsx", controllers.DownloadReport(d, "xlsx"))
		reports.POST("/:year/share", controllers.ShareReport(d))
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-None-Match", middleware.RequestIDHeader},
		ExposeHeaders: []string{"ETag", "Last-Modified", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
		c.AllowCredentials = true
	}
	return c
}

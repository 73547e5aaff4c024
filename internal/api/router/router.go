package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nucleo-coop/backend/config"
	"nucleo-coop/backend/internal/api/handler"
	"nucleo-coop/backend/internal/api/middleware"
	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/pkg/jwt"
)

// Deps 路由依赖；Blacklist / Limiter 在 Redis 不可用时为 nil
type Deps struct {
	JWT       *jwt.Manager
	Blacklist middleware.TokenChecker
	Limiter   middleware.RateLimiter
	Logger    *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	staff := middleware.RoleAuth(model.RoleTeacher, model.RoleManager)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.Blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 选举模块
			elections := authorized.Group("/elections")
			{
				elections.GET("", h.Election.ListElections)
				elections.GET("/:id", h.Election.GetElection)
				elections.POST("", staff, h.Election.CreateElection)
				elections.PUT("/:id", staff, h.Election.UpdateElection)
				elections.DELETE("/:id", staff, h.Election.DeleteElection)
				elections.PUT("/:id/status", staff, h.Election.AdvanceStatus)
				elections.GET("/:id/calendar.ics", h.Export.ExportCalendar)

				// 候选人
				elections.GET("/:id/candidates", h.Candidate.ListCandidates)

				// 投票（仅学生）
				ballot := elections.Group("/:id/ballot", middleware.RoleAuth(model.RoleStudent))
				{
					ballot.POST("", middleware.RateLimit(deps.Limiter, cfg.Election.BallotRateLimit, cfg.Election.BallotRateWindow), h.Ballot.SubmitBallot)
					ballot.GET("", h.Ballot.GetBallotStatus)
				}

				// 计票与结果
				elections.POST("/:id/close", staff, h.Tally.CloseElection)
				elections.POST("/:id/ties/resolve", middleware.RoleAuth(model.RoleManager), h.Tally.ResolveTie)
				elections.GET("/:id/results", h.Tally.GetResults)
				elections.GET("/:id/results/export", staff, h.Export.ExportResults)
			}
		}
	}

	return r
}

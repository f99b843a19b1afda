package router

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sistema-notas/backend/config"
	"sistema-notas/backend/internal/api/handler"
	"sistema-notas/backend/internal/api/middleware"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/pkg/jwt"
	"sistema-notas/backend/pkg/redis"
)

const (
	maxBodyBytes    = 1 << 20
	maxUploadBytes  = 8 << 20
	sheetUploadPath = "/api/v1/grades/sheet"

	loginRateLimit     = 10
	loginRateWindow    = time.Minute
	gradeSaveRateLimit = 60
	gradeSaveWindow    = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 避免把 nil 指针包装成非 nil 接口
	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes, map[string]int64{sheetUploadPath: maxUploadBytes}))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleDirector)
	grading := middleware.RoleAuth(model.RoleAdmin, model.RoleDirector, model.RoleTeacher)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, loginRateLimit, loginRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users", staff)
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", middleware.RoleAuth(model.RoleAdmin), h.User.CreateUser)
			}

			// 学年模块
			terms := authorized.Group("/terms")
			{
				terms.GET("", h.Term.ListTerms)
				terms.GET("/active", h.Term.GetActivePeriod)
				terms.GET("/:id", h.Term.GetTerm)
				terms.POST("", staff, h.Term.CreateTerm)
				terms.PUT("/:id", staff, h.Term.UpdateTerm)
				terms.PUT("/:id/activate", staff, h.Term.ActivateTerm)
				terms.GET("/:id/grade-lock", grading, h.GradeLock.GetGradeLock)
				terms.PUT("/:id/grade-lock", staff, h.GradeLock.UpdateGradeLock)
			}

			// 班级模块
			courses := authorized.Group("/courses")
			{
				courses.GET("", grading, h.Course.ListCourses)
				courses.GET("/:id", grading, h.Course.GetCourse)
				courses.GET("/:id/students", grading, h.Course.ListStudents)
				courses.GET("/:id/offerings", grading, h.Course.ListOfferings)
				courses.POST("", staff, h.Course.CreateCourse)
				courses.DELETE("/:id", staff, h.Course.DeleteCourse)
				courses.POST("/:id/offerings", staff, h.Course.CreateOffering)
				courses.POST("/:id/enrollments", staff, h.Course.Enroll)
			}
			authorized.DELETE("/enrollments/:id", staff, h.Course.Withdraw)

			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", grading, h.Course.ListSubjects)
				subjects.POST("", staff, h.Course.CreateSubject)
			}

			offerings := authorized.Group("/offerings")
			{
				offerings.GET("/mine", grading, h.Course.ListMyOfferings)
				offerings.PUT("/:id/teacher", staff, h.Course.AssignTeacher)
				offerings.PUT("/:id/subgroups", grading, h.Course.SetSubgroupMembers) // 教师限本人任课（Service 层鉴权）
			}

			// 成绩模块
			grades := authorized.Group("/grades")
			{
				grades.GET("/roster", grading, h.Grade.GetRoster)
				grades.POST("", grading, middleware.RateLimit(limiter, gradeSaveRateLimit, gradeSaveWindow), h.Grade.SaveGrades)
				grades.GET("/report", h.Grade.StudentReport) // 学生限本人（Service 层鉴权）
				grades.GET("/sheet", grading, h.Sheet.ExportSheet)
				grades.POST("/sheet", grading, middleware.RateLimit(limiter, gradeSaveRateLimit, gradeSaveWindow), h.Sheet.ImportSheet)
			}

			// 重修模块（仅管理员与校领导）
			retakes := authorized.Group("/retakes", staff)
			{
				retakes.GET("", h.Retake.ListRetakes)
				retakes.GET("/stats", h.Retake.RetakeStats)
				retakes.GET("/:id", h.Retake.GetRetake)
				retakes.POST("", h.Retake.AssignRetake)
				retakes.PUT("/:id/status", h.Retake.ChangeStatus)
				retakes.DELETE("/:id", h.Retake.DeleteRetake)
			}

			// 待补科目模块：教师、学生的可见范围由 Service 层限定
			pending := authorized.Group("/pending-subjects")
			{
				pending.GET("", h.Pending.ListPending)
				pending.GET("/:id", h.Pending.GetPending)
				pending.POST("", staff, h.Pending.AssignPending)
				pending.PUT("/:id/status", staff, h.Pending.ChangeStatus)
				pending.POST("/grades", grading, middleware.RateLimit(limiter, gradeSaveRateLimit, gradeSaveWindow), h.Pending.SavePendingGrades)
			}
		}
	}

	return r
}

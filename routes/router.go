package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/controllers"
	"github.com/cppla/expertqa/middleware"
	"github.com/cppla/expertqa/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.S().Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// wildcard origins cannot be combined with credentials
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	questionController := controllers.NewQuestionController(db)
	answerController := controllers.NewAnswerController(db)
	commentController := controllers.NewCommentController(db)
	adminController := controllers.NewAdminController(db)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public reads; a valid token adds the caller's capabilities
	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/questions", questionController.ListQuestions)
	public.GET("/questions/:id", middleware.QuestionViewCounter(db), questionController.GetQuestion)
	public.GET("/users/:id", authController.GetUserPublic)
	public.GET("/stats", statsController.GetStats)
	public.GET("/config/policy", configController.GetPolicy)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/questions", questionController.CreateQuestion)
	protected.PUT("/questions/:id", questionController.UpdateQuestion)
	protected.DELETE("/questions/:id", questionController.DeleteQuestion)
	protected.POST("/questions/:id/close", questionController.CloseQuestion)
	protected.POST("/questions/:id/like", questionController.LikeQuestion)
	protected.POST("/questions/:id/answers", answerController.CreateAnswer)
	protected.POST("/questions/:id/comments", commentController.CreateComment)
	protected.PUT("/answers/:id", answerController.UpdateAnswer)
	protected.DELETE("/answers/:id", answerController.DeleteAnswer)
	protected.POST("/answers/:id/accept", answerController.AcceptAnswer)
	protected.POST("/answers/:id/moderate", answerController.ModerateAnswer)
	protected.PUT("/comments/:commentId", commentController.UpdateComment)
	protected.DELETE("/comments/:commentId", commentController.DeleteComment)

	admin := protected.Group("/admin")
	admin.GET("/users", adminController.ListUsers)
	admin.POST("/users/:id/ban", adminController.BanUser)
	admin.POST("/users/:id/unban", adminController.UnbanUser)
	admin.PUT("/users/:id/role", adminController.ChangeRole)
	admin.POST("/answers/moderate", adminController.BulkModerateAnswers)
	admin.POST("/answers/delete", adminController.BulkDeleteAnswers)
	admin.POST("/comments/delete", adminController.BulkDeleteComments)
	admin.POST("/users/ban", adminController.BulkBanUsers)
	admin.POST("/users/unban", adminController.BulkUnbanUsers)
	admin.GET("/queue", adminController.ModerationQueue)
	admin.GET("/audit/bans", adminController.ListBanRecords)
	admin.GET("/audit/roles", adminController.ListRoleChanges)
	admin.GET("/audit/moderation", adminController.ListModerationLog)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

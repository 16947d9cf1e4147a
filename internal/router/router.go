package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pod_studio_v1_202608/internal/controller"
	"pod_studio_v1_202608/internal/middleware"

	_ "pod_studio_v1_202608/docs"
)

// Controllers 控制器集合
type Controllers struct {
	User     *controller.UserController
	Pipeline *controller.PipelineController
}

// SetupRouter 注册所有路由
func SetupRouter(ctrls *Controllers) *gin.Engine {
	r := gin.Default()

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		// auth 认证组（无需登录）
		auth := api.Group("/auth")
		{
			auth.POST("/login", ctrls.User.Login)
			auth.POST("/refresh", ctrls.User.RefreshToken)
		}

		// 登录后接口
		authed := api.Group("")
		authed.Use(middleware.JWTAuth(), middleware.AuditContext())
		{
			// 个人信息
			authed.GET("/auth/profile", ctrls.User.GetProfile)
			authed.PUT("/auth/password", ctrls.User.ChangePassword)

			// 用户管理（仅管理员）
			users := authed.Group("/users")
			users.Use(middleware.RequireRole("admin"))
			{
				users.POST("", ctrls.User.CreateUser)
				users.GET("", ctrls.User.ListUsers)
				users.GET("/:id", ctrls.User.GetUser)
				users.PUT("/:id", ctrls.User.UpdateUser)
				users.PUT("/:id/password", ctrls.User.ResetPassword)
				users.DELETE("/:id", ctrls.User.DeleteUser)
			}

			// pipeline 变体图片流水线
			sessions := authed.Group("/pipeline/sessions")
			{
				sessions.POST("", ctrls.Pipeline.CreateSession)
				sessions.GET("", ctrls.Pipeline.ListSessions)
				sessions.GET("/:session_id", ctrls.Pipeline.GetSession)
				sessions.DELETE("/:session_id", ctrls.Pipeline.DeleteSession)

				// plan 阶段
				sessions.POST("/:session_id/plan", ctrls.Pipeline.SubmitColorPlan)

				// generation 阶段
				sessions.GET("/:session_id/generation", ctrls.Pipeline.GenerationStatus)
				sessions.POST("/:session_id/regenerate",
					middleware.ActionRateLimit(middleware.ActionTypeGenerate, 0),
					ctrls.Pipeline.Regenerate,
				)

				// mockup 阶段
				sessions.POST("/:session_id/advance-mockup",
					middleware.ActionRateLimit(middleware.ActionTypeMockup, 0),
					ctrls.Pipeline.AdvanceToMockup,
				)
				sessions.GET("/:session_id/mockups", ctrls.Pipeline.MockupStatus)
				sessions.GET("/:session_id/positions", ctrls.Pipeline.GetPositionGroups)
				sessions.POST("/:session_id/images/:image_id/toggle", ctrls.Pipeline.ToggleMockupImage)
				sessions.POST("/:session_id/positions/toggle", ctrls.Pipeline.TogglePositionGroup)

				// matching 阶段与提交
				sessions.POST("/:session_id/advance-matching", ctrls.Pipeline.AdvanceToMatching)
				sessions.GET("/:session_id/matching", ctrls.Pipeline.GetMatchingPreview)
				sessions.POST("/:session_id/commit",
					middleware.ActionRateLimit(middleware.ActionTypeCommit, 0),
					ctrls.Pipeline.Commit,
				)

				// 阶段回退与进度流
				sessions.POST("/:session_id/back", ctrls.Pipeline.GoBack)
				sessions.GET("/:session_id/stream", ctrls.Pipeline.StreamProgress)
			}
		}
	}

	return r
}

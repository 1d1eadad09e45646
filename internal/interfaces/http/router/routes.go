// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 知识库问答
	ragGroup := v1.Group("/rag")
	{
		ragGroup.POST("/documents", h.Rag.AddDocument)
		ragGroup.POST("/files", h.Rag.UploadFile)
		ragGroup.POST("/ask", h.Rag.Ask)

		// 知识库管理
		ragGroup.GET("/knowledge-bases", h.KnowledgeBase.List)
		ragGroup.POST("/knowledge-bases", h.KnowledgeBase.Create)
		ragGroup.DELETE("/knowledge-bases/:name", h.KnowledgeBase.Delete)
	}

	// 普通聊天
	chatGroup := v1.Group("/chat")
	{
		chatGroup.GET("/text", h.Chat.Text)
		chatGroup.GET("/stream", h.Chat.Stream) // SSE
	}

	// 天气查询
	weatherGroup := v1.Group("/weather")
	{
		weatherGroup.GET("/city/:city", h.Weather.Current)
		weatherGroup.GET("/forecast/:city", h.Weather.Forecast)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("", h.User.List)
		users.POST("", h.User.Create)
		users.GET("/username/:name", h.User.GetByUsername)
		users.GET("/:id", h.User.Get)
		users.DELETE("/:id", h.User.Delete)
	}
}

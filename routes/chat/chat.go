package chat

import (
	"nochatbuilder/controllers"
	"nochatbuilder/middleware"
	svc "nochatbuilder/pkg/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register registers the public widget routes.
func Register(r *gin.Engine, db *gorm.DB, orch *svc.Orchestrator) {
	g := r.Group("/api/chat")
	g.POST("/:slug", middleware.RateLimit(), controllers.SubmitMessage(db, orch))
	g.GET("/:slug/stream", controllers.StreamAnswer(db, orch))
	g.GET("/:slug/history", controllers.SessionHistory(db))
}

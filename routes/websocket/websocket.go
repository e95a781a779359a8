package websocket

import (
	"nochatbuilder/controllers"
	"nochatbuilder/middleware"
	svc "nochatbuilder/pkg/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Register(r *gin.Engine, db *gorm.DB, orch *svc.Orchestrator) {
	r.GET("/ws/chat/:slug", middleware.RateLimit(), controllers.ChatWS(db, orch))
}

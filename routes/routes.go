package routes

import (
	"net/http"

	"nochatbuilder/middleware"
	svc "nochatbuilder/pkg/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	adminRoutes "nochatbuilder/routes/admin"
	chatRoutes "nochatbuilder/routes/chat"
	websocketRoutes "nochatbuilder/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, orch *svc.Orchestrator) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "chatbot backend running"})
	})

	chatRoutes.Register(r, db, orch)
	websocketRoutes.Register(r, db, orch)
	adminRoutes.RegisterPublic(r)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	adminRoutes.RegisterProtected(protected, db)
}

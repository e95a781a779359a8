package admin

import (
	"nochatbuilder/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublic registers the operator login route.
func RegisterPublic(r *gin.Engine) {
	r.POST("/api/admin/login", controllers.Login())
}

// RegisterProtected registers routes behind the operator JWT.
func RegisterProtected(g *gin.RouterGroup, db *gorm.DB) {
	g.POST("/api/admin/logout", controllers.Logout())
	g.GET("/api/admin/logs", controllers.SearchLogs(db))
}

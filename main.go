package main

import (
	"log"
	"time"

	"nochatbuilder/models"
	"nochatbuilder/pkg/config"
	svc "nochatbuilder/pkg/services"
	"nochatbuilder/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB() (*gorm.DB, error) {
	// MySQL when a DSN is configured, local sqlite file otherwise
	if config.DatabaseDSN != "" {
		return gorm.Open(mysql.Open(config.DatabaseDSN), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open("app.db"), &gorm.Config{})
}

func main() {
	// config init via package init()

	db, err := openDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// auto-migrate
	if err := db.AutoMigrate(&models.Chatbot{}, &models.Rule{}, &models.Message{}); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	orch := svc.NewOrchestrator(svc.NewResponsesClient(), svc.NewChatCompletionsClient())

	r := gin.Default()

	// CORS is wide open on purpose: the widget embeds on customer sites
	// we cannot enumerate. Operator routes are protected by JWT, not origin.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, orch)
	r.Run(":" + config.Port)
}

package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface.
func NewRouter(contracts *ContractHandler, cal *CalendarHandler, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(RequestID())
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/contracts", contracts.Upload)
	router.GET("/contracts", contracts.List)
	router.DELETE("/contracts", contracts.ClearAll)
	router.GET("/contracts.xlsx", contracts.XLSX)
	router.GET("/contracts/:id", contracts.Get)
	router.PUT("/contracts/:id", contracts.Update)
	router.DELETE("/contracts/:id", contracts.Delete)
	router.GET("/contracts/:id/pdf", contracts.PDF)
	router.HEAD("/contracts/:id/pdf", contracts.PDF)
	router.GET("/contracts/:id/ocr_text", contracts.OCRText)

	router.GET("/calendar", cal.Events)
	router.GET("/calendar.ics", cal.ICS)
	router.POST("/calendar/email", cal.Email)

	return router
}

package router

import (
	"github.com/gin-gonic/gin"
	"glowfeed.app/discovery/internal/http/handler"
	"glowfeed.app/discovery/internal/service"
)

func SetupRoutes(router *gin.Engine, discoveryService service.DiscoveryService) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	discoveryHandler := handler.NewDiscoveryHandler(discoveryService)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/discovery/search", discoveryHandler.Search)
	}
}

// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/api/handlers"
	"github.com/andresuchdata/oilhub/backend-go/internal/api/middleware"
	"github.com/andresuchdata/oilhub/backend-go/internal/observability/metrics"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/andresuchdata/oilhub/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Branches  repository.BranchRepository
	Catalog   *service.SourceCatalog
	Inventory *service.InventoryService
	Orders    *service.OrderService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	if services.Branches != nil && services.Catalog != nil && services.Inventory != nil {
		branchHandler := handlers.NewBranchHandler(services.Branches, services.Catalog, services.Inventory)
		branchGroup := apiGroup.Group("/branches")
		{
			branchGroup.GET("", branchHandler.ListBranches)
			branchGroup.GET("/:id/sources", branchHandler.ListSources)
			branchGroup.GET("/:id/inventory", branchHandler.GetInventory)
			branchGroup.GET("/:id/available", branchHandler.GetAvailable)
		}
	}

	if services.Orders != nil {
		orderHandler := handlers.NewOrderHandler(services.Orders)
		approvalHandler := handlers.NewApprovalHandler(services.Orders)

		orderGroup := apiGroup.Group("/orders")
		{
			orderGroup.POST("", orderHandler.CreateOrder)
			orderGroup.GET("", orderHandler.ListOrders)
			orderGroup.GET("/:id", orderHandler.GetOrder)
			orderGroup.POST("/:id/transition", orderHandler.Transition)
			orderGroup.POST("/:id/approval", approvalHandler.StartApproval)
			orderGroup.POST("/:id/approval/commit", approvalHandler.Commit)
		}

		draftGroup := apiGroup.Group("/approval/drafts")
		{
			draftGroup.POST("/add-line", approvalHandler.AddLine)
			draftGroup.POST("/remove-line", approvalHandler.RemoveLine)
			draftGroup.POST("/oil-type", approvalHandler.SetOilType)
			draftGroup.POST("/source", approvalHandler.SetSource)
			draftGroup.POST("/quantity", approvalHandler.SetQuantity)
			draftGroup.POST("/price", approvalHandler.SetPrice)
			draftGroup.POST("/branch", approvalHandler.SetBranch)
			draftGroup.POST("/validate", approvalHandler.Validate)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

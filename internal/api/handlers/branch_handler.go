package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/andresuchdata/oilhub/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	branches  repository.BranchRepository
	catalog   *service.SourceCatalog
	inventory *service.InventoryService
}

func NewBranchHandler(branches repository.BranchRepository, catalog *service.SourceCatalog, inventory *service.InventoryService) *BranchHandler {
	return &BranchHandler{branches: branches, catalog: catalog, inventory: inventory}
}

// ListBranches returns every branch, hub first.
func (h *BranchHandler) ListBranches(c *gin.Context) {
	branches, err := h.branches.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

// ListSources returns the supply records of a branch, optionally narrowed by oil_type.
func (h *BranchHandler) ListSources(c *gin.Context) {
	branchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var (
		records []domain.SourceRecord
		err     error
	)
	if raw := strings.TrimSpace(c.Query("oil_type")); raw != "" {
		oil, valid := domain.ParseOilType(raw)
		if !valid {
			badRequest(c, "unknown oil_type "+raw)
			return
		}
		records, err = h.catalog.ListSources(c.Request.Context(), branchID, oil)
	} else {
		records, err = h.catalog.ListAllSources(c.Request.Context(), branchID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch_id": branchID, "sources": records})
}

// GetInventory returns the per-grade remaining/in-transit/reclaimed breakdown.
func (h *BranchHandler) GetInventory(c *gin.Context) {
	branchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	summaries, err := h.inventory.BranchInventory(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch_id": branchID, "inventory": summaries})
}

// GetAvailable returns the allocation ceiling for one grade.
func (h *BranchHandler) GetAvailable(c *gin.Context) {
	branchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	oil, valid := domain.ParseOilType(c.Query("oil_type"))
	if !valid {
		badRequest(c, "oil_type is required")
		return
	}

	breakdown, err := h.inventory.Breakdown(c.Request.Context(), branchID, oil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"branch_id": branchID,
		"oil_type":  oil,
		"available": breakdown.Total,
		"breakdown": breakdown,
	})
}

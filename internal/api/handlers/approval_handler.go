package handlers

import (
	"net/http"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ApprovalHandler serves the approval screen. Drafts live on the client; every edit posts the
// current drafts and receives the edited copy back.
type ApprovalHandler struct {
	orders   *service.OrderService
	workflow *service.AllocationWorkflow
}

func NewApprovalHandler(orders *service.OrderService) *ApprovalHandler {
	return &ApprovalHandler{orders: orders, workflow: orders.Workflow()}
}

type draftRequest struct {
	Drafts   []service.AllocationDraft `json:"drafts"`
	Index    int                       `json:"index"`
	OilType  domain.OilType            `json:"oil_type"`
	Source   string                    `json:"source"`
	Quantity decimal.Decimal           `json:"quantity"`
	Price    decimal.Decimal           `json:"price"`
	BranchID int64                     `json:"branch_id"`
}

type draftResponse struct {
	Drafts     []service.AllocationDraft `json:"drafts"`
	Violations domain.ValidationErrors   `json:"violations"`
}

func (h *ApprovalHandler) respondDrafts(c *gin.Context, drafts []service.AllocationDraft) {
	violations := h.workflow.Validate(drafts)
	if violations == nil {
		violations = domain.ValidationErrors{}
	}
	if drafts == nil {
		drafts = []service.AllocationDraft{}
	}
	c.JSON(http.StatusOK, draftResponse{Drafts: drafts, Violations: violations})
}

func bindDrafts(c *gin.Context) (draftRequest, bool) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// StartApproval seeds drafts from the order's requested lines.
func (h *ApprovalHandler) StartApproval(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	drafts, err := h.orders.StartApproval(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) AddLine(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	h.respondDrafts(c, h.workflow.AddLine(req.Drafts, req.BranchID))
}

func (h *ApprovalHandler) RemoveLine(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.RemoveLine(req.Drafts, req.Index)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) SetOilType(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.SetOilType(c.Request.Context(), req.Drafts, req.Index, req.OilType)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) SetSource(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.SetSource(c.Request.Context(), req.Drafts, req.Index, req.Source)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) SetQuantity(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.SetQuantity(req.Drafts, req.Index, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) SetPrice(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.SetPrice(req.Drafts, req.Index, req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

func (h *ApprovalHandler) SetBranch(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.SetBranch(c.Request.Context(), req.Drafts, req.BranchID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

// Validate refreshes availability and reports every violation without committing.
func (h *ApprovalHandler) Validate(c *gin.Context) {
	req, ok := bindDrafts(c)
	if !ok {
		return
	}
	drafts, err := h.workflow.Refresh(c.Request.Context(), req.Drafts)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDrafts(c, drafts)
}

// Commit approves the order with the posted drafts.
func (h *ApprovalHandler) Commit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.CommitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.Commit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

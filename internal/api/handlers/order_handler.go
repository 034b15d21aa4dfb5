package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder records a new branch request in pending approval.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders supports status, requesting_branch_id, supplying_branch_id, limit and offset.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := domain.OrderFilter{
		Limit:  parsePositiveIntWithDefault(c.Query("limit"), 50),
		Offset: parseNonNegativeInt(c.Query("offset")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := domain.ParseOrderStatus(raw)
		if !ok {
			badRequest(c, "unknown status "+raw)
			return
		}
		filter.Status = &status
	}

	var ok bool
	if filter.RequestingBranchID, ok = parseOptionalInt64(c.Query("requesting_branch_id")); !ok {
		badRequest(c, "invalid requesting_branch_id")
		return
	}
	if filter.SupplyingBranchID, ok = parseOptionalInt64(c.Query("supplying_branch_id")); !ok {
		badRequest(c, "invalid supplying_branch_id")
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Transition applies a manual status change such as dispatch, delivery or cancellation.
func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.TransitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

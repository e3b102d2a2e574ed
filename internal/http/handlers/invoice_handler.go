package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-core/internal/dto"
	"github.com/ignatzorin/freelance-core/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/service"
)

type InvoiceHandler struct {
	invoices *service.InvoiceService
}

func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	items := make([]models.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.InvoiceItem{
			Description: item.Description,
			Amount:      item.Amount,
		})
	}

	invoice, err := h.invoices.Create(c.Request.Context(), service.CreateInvoiceInput{
		ContractID: req.ContractID,
		IssuerID:   userID,
		Items:      items,
		Tax:        req.Tax,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// Get GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.Get(c.Request.Context(), id, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListByContract GET /contracts/:id/invoices
func (h *InvoiceHandler) ListByContract(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoices, err := h.invoices.ListByContract(c.Request.Context(), contractID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// MarkPaid POST /invoices/:id/pay
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.invoices.MarkPaid)
}

// Cancel POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.invoices.Cancel)
}

// MarkOverdue POST /invoices/:id/overdue
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.MarkOverdue(c.Request.Context(), id, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, invoiceID, userID uuid.UUID, role string) (*models.Invoice, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoice, err := op(c.Request.Context(), id, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-core/internal/dto"
	"github.com/ignatzorin/freelance-core/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/service"
)

type TimeEntryHandler struct {
	entries  *service.TimeEntryService
	invoices *service.InvoiceService
}

func NewTimeEntryHandler(entries *service.TimeEntryService, invoices *service.InvoiceService) *TimeEntryHandler {
	return &TimeEntryHandler{entries: entries, invoices: invoices}
}

// Start POST /time-entries/start
func (h *TimeEntryHandler) Start(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}

	entry, err := h.entries.Start(c.Request.Context(), service.StartTimerInput{
		ContractID:  req.ContractID,
		UserID:      userID,
		Description: req.Description,
		Billable:    billable,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Stop POST /time-entries/:id/stop
func (h *TimeEntryHandler) Stop(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.entries.Stop(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Get GET /time-entries/:id
func (h *TimeEntryHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.entries.Get(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListByContract GET /contracts/:id/time-entries
func (h *TimeEntryHandler) ListByContract(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var status *models.TimeEntryStatus
	if raw := c.Query("status"); raw != "" {
		s := models.TimeEntryStatus(raw)
		if !s.IsValid() {
			common.RespondBadRequest(c, "некорректный статус записи времени")
			return
		}
		status = &s
	}

	entries, err := h.entries.ListByContract(c.Request.Context(), contractID, userID, status)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_entries": entries})
}

// Update PATCH /time-entries/:id
func (h *TimeEntryHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	entry, err := h.entries.UpdateDraft(c.Request.Context(), id, userID, req.Description, req.Billable)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Delete DELETE /time-entries/:id
func (h *TimeEntryHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.entries.DeleteDraft(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "черновик удалён"})
}

// SubmitBatch POST /time-entries/submit
func (h *TimeEntryHandler) SubmitBatch(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.TimeEntryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	entries, err := h.entries.SubmitBatch(c.Request.Context(), req.EntryIDs, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_entries": entries})
}

// Approve POST /time-entries/approve — приёмка часов клиентом: записи
// утверждаются и по ним выставляется счёт одной операцией.
func (h *TimeEntryHandler) Approve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.TimeEntryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	invoice, err := h.invoices.ApproveTimeEntries(c.Request.Context(), req.EntryIDs, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// RejectBatch POST /time-entries/reject
func (h *TimeEntryHandler) RejectBatch(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.TimeEntryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	entries, err := h.entries.RejectBatch(c.Request.Context(), req.EntryIDs, userID, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_entries": entries})
}

// ResetToDraft POST /time-entries/reset
func (h *TimeEntryHandler) ResetToDraft(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.TimeEntryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	entries, err := h.entries.ResetToDraft(c.Request.Context(), req.EntryIDs, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_entries": entries})
}

package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles balances, ledger entries, draws and payments of a deal.
type ledgerHandler struct {
	ledgerService  portssvc.LedgerSvcFacade
	paymentService portssvc.PaymentSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade, ps portssvc.PaymentSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls, paymentService: ps}
}

// registerLedgerRoutes registers ledger routes under /deals/:dealID.
func registerLedgerRoutes(deal *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, paymentService portssvc.PaymentSvcFacade) {
	h := newLedgerHandler(ledgerService, paymentService)

	deal.GET("/balances", h.getBalances)
	deal.GET("/ledger", h.listLedgerEntries)
	deal.POST("/ledger", h.recordLedgerEntry)
	deal.POST("/disbursements", h.disburse)
	deal.POST("/payments", h.recordPayment)
}

// getBalances godoc
// @Summary Get deal balances
// @Description Recomputes outstanding principal and totals from the ledger
// @Tags ledger
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} domain.Balances
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/balances [get]
func (h *ledgerHandler) getBalances(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	balances, err := h.ledgerService.GetBalances(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "get balances")
		return
	}
	c.JSON(http.StatusOK, balances)
}

// listLedgerEntries godoc
// @Summary List ledger entries
// @Description Pages through a deal's ledger in occurrence order
// @Tags ledger
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Continuation token from the previous page"
// @Success 200 {object} dto.ListLedgerEntriesResponse
// @Failure 400 {object} handlers.ErrorResponse "Invalid query or token"
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/ledger [get]
func (h *ledgerHandler) listLedgerEntries(c *gin.Context) {
	var params dto.ListLedgerEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}
	if _, ok := actorFromContext(c); !ok {
		return
	}
	resp, err := h.ledgerService.ListLedgerEntries(c.Request.Context(), c.Param("dealID"), params)
	if err != nil {
		respondError(c, err, "list ledger entries")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// recordLedgerEntry godoc
// @Summary Record a manual ledger entry
// @Description Books a fee, penalty, adjustment or offset. These do not change outstanding principal.
// @Tags ledger
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param entry body dto.RecordLedgerEntryRequest true "Entry"
// @Success 201 {object} domain.LedgerEntry
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/ledger [post]
func (h *ledgerHandler) recordLedgerEntry(c *gin.Context) {
	var req dto.RecordLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.RecordLedgerEntry(c.Request.Context(), c.Param("dealID"), req, actorID)
	if err != nil {
		respondError(c, err, "record ledger entry")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// disburse godoc
// @Summary Disburse an additional draw
// @Tags ledger
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param disbursement body dto.DisburseRequest true "Draw"
// @Success 201 {object} dto.DisbursementResponse
// @Success 200 {object} dto.DisbursementResponse "Replayed request"
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Failure 424 {object} handlers.ErrorResponse "Cashbox unavailable"
// @Security BearerAuth
// @Router /deals/{dealID}/disbursements [post]
func (h *ledgerHandler) disburse(c *gin.Context) {
	var req dto.DisburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	resp, err := h.ledgerService.Disburse(c.Request.Context(), c.Param("dealID"), req, actorID)
	if err != nil {
		respondError(c, err, "disburse")
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// recordPayment godoc
// @Summary Record a payment
// @Description Allocates the payment oldest-due-first, interest before principal; any remainder is an early repayment.
// @Description Retrying with the same requestID returns the original allocation.
// @Tags payments
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param payment body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResult
// @Success 200 {object} dto.PaymentResult "Replayed request"
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/payments [post]
func (h *ledgerHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}

	dealID := c.Param("dealID")
	result, err := h.paymentService.RecordPayment(c.Request.Context(), dealID, req, actorID)
	if err != nil {
		respondError(c, err, "record payment")
		return
	}

	logger.Info("Payment recorded", slog.String("deal_id", dealID),
		slog.String("payment_id", result.PaymentID), slog.Bool("replayed", result.Replayed))
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

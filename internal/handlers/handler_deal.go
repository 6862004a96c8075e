package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// dealHandler handles HTTP requests for the deal lifecycle.
type dealHandler struct {
	dealService       portssvc.DealSvcFacade
	collateralService portssvc.CollateralSvcFacade
}

func newDealHandler(ds portssvc.DealSvcFacade, cs portssvc.CollateralSvcFacade) *dealHandler {
	return &dealHandler{dealService: ds, collateralService: cs}
}

// registerDealRoutes registers deal routes. Sub-resources register themselves on the returned group.
func registerDealRoutes(rg *gin.RouterGroup, dealService portssvc.DealSvcFacade, collateralService portssvc.CollateralSvcFacade) *gin.RouterGroup {
	h := newDealHandler(dealService, collateralService)

	deals := rg.Group("/deals")
	{
		deals.POST("", h.createDeal)
		deals.GET("", h.listDeals)
	}

	deal := deals.Group("/:dealID")
	{
		deal.GET("", h.getDeal)
		deal.POST("/activate", h.activateDeal)
		deal.POST("/close", h.closeDeal)
		deal.POST("/cancel", h.cancelDeal)
		deal.POST("/default", h.defaultDeal)
	}
	return deal
}

// createDeal godoc
// @Summary Create a deal
// @Description Opens a new deal in status NEW with its contract terms
// @Tags deals
// @Accept json
// @Produce json
// @Param deal body dto.CreateDealRequest true "Deal details"
// @Success 201 {object} dto.DealResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 500 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals [post]
func (h *dealHandler) createDeal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}

	logger.Info("Received request to create deal", slog.String("title", req.Title), slog.String("schedule_type", string(req.ScheduleType)))
	resp, err := h.dealService.CreateDeal(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "create deal")
		return
	}

	logger.Info("Deal created successfully", slog.String("deal_id", resp.Deal.DealID))
	c.JSON(http.StatusCreated, resp)
}

// listDeals godoc
// @Summary List deals
// @Description Lists deals newest first, optionally filtered by status
// @Tags deals
// @Produce json
// @Param status query string false "Deal status" Enums(NEW, ACTIVE, PAUSED, CLOSED, DEFAULTED, CANCELLED)
// @Param limit query int false "Limit number of results" default(20)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListDealsResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals [get]
func (h *dealHandler) listDeals(c *gin.Context) {
	var params dto.ListDealsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}
	if _, ok := actorFromContext(c); !ok {
		return
	}

	resp, err := h.dealService.ListDeals(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "list deals")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getDeal godoc
// @Summary Get a deal
// @Description Returns the deal, its contract terms and balances recomputed from the ledger
// @Tags deals
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} dto.DealResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID} [get]
func (h *dealHandler) getDeal(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	resp, err := h.dealService.GetDeal(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "get deal")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// activateDeal godoc
// @Summary Activate a deal
// @Description Disburses the principal, optionally debiting a cashbox, and generates the schedule
// @Tags deals
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param activation body dto.ActivateDealRequest false "Disbursement details"
// @Success 200 {object} dto.DealResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse "Invalid transition or insufficient cashbox funds"
// @Security BearerAuth
// @Router /deals/{dealID}/activate [post]
func (h *dealHandler) activateDeal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ActivateDealRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err, "request format")
			return
		}
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}

	dealID := c.Param("dealID")
	resp, err := h.dealService.ActivateDeal(c.Request.Context(), dealID, req, actorID)
	if err != nil {
		respondError(c, err, "activate deal")
		return
	}
	logger.Info("Deal activated", slog.String("deal_id", dealID))
	c.JSON(http.StatusOK, resp)
}

// closeDeal godoc
// @Summary Close a deal
// @Tags deals
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} domain.Deal
// @Failure 422 {object} handlers.ErrorResponse "Invalid transition or outstanding balance"
// @Security BearerAuth
// @Router /deals/{dealID}/close [post]
func (h *dealHandler) closeDeal(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	deal, err := h.dealService.CloseDeal(c.Request.Context(), c.Param("dealID"), actorID)
	if err != nil {
		respondError(c, err, "close deal")
		return
	}
	c.JSON(http.StatusOK, deal)
}

// cancelDeal godoc
// @Summary Cancel a deal
// @Tags deals
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} domain.Deal
// @Failure 422 {object} handlers.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Router /deals/{dealID}/cancel [post]
func (h *dealHandler) cancelDeal(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	deal, err := h.dealService.CancelDeal(c.Request.Context(), c.Param("dealID"), actorID)
	if err != nil {
		respondError(c, err, "cancel deal")
		return
	}
	c.JSON(http.StatusOK, deal)
}

// defaultDeal godoc
// @Summary Default a deal
// @Description Moves the deal to DEFAULTED and forecloses every active collateral link
// @Tags deals
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} dto.DefaultResult
// @Failure 422 {object} handlers.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Router /deals/{dealID}/default [post]
func (h *dealHandler) defaultDeal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	dealID := c.Param("dealID")
	resp, err := h.collateralService.DefaultWithSideEffects(c.Request.Context(), dealID, actorID)
	if err != nil {
		respondError(c, err, "default deal")
		return
	}
	logger.Info("Deal defaulted", slog.String("deal_id", dealID), slog.Int("foreclosed_links", len(resp.ForeclosedLinkIDs)))
	c.JSON(http.StatusOK, resp)
}

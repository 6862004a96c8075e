package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// pauseHandler handles payment holidays.
type pauseHandler struct {
	pauseService portssvc.PauseSvcFacade
}

func newPauseHandler(ps portssvc.PauseSvcFacade) *pauseHandler {
	return &pauseHandler{pauseService: ps}
}

func registerPauseRoutes(deal *gin.RouterGroup, pauseService portssvc.PauseSvcFacade) {
	h := newPauseHandler(pauseService)

	deal.GET("/pauses", h.listPauses)
	deal.POST("/pauses", h.pauseDeal)
	deal.DELETE("/pauses/:pauseID", h.deletePause)
	deal.POST("/resume", h.resumeDeal)
}

// listPauses godoc
// @Summary List pause periods
// @Tags pauses
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {array} domain.PausePeriod
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/pauses [get]
func (h *pauseHandler) listPauses(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	pauses, err := h.pauseService.ListPauses(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "list pauses")
		return
	}
	c.JSON(http.StatusOK, pauses)
}

// pauseDeal godoc
// @Summary Pause a deal
// @Description Adds a pause period; the schedule of regenerable deals shifts by the paused days
// @Tags pauses
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param pause body dto.PauseDealRequest true "Pause period"
// @Success 201 {object} dto.PauseResult
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Overlapping pause"
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/pauses [post]
func (h *pauseHandler) pauseDeal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PauseDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}

	dealID := c.Param("dealID")
	result, err := h.pauseService.PauseDeal(c.Request.Context(), dealID, req, actorID)
	if err != nil {
		respondError(c, err, "pause deal")
		return
	}
	logger.Info("Deal paused", slog.String("deal_id", dealID), slog.Bool("schedule_regenerated", result.ScheduleRegenerated))
	c.JSON(http.StatusCreated, result)
}

// resumeDeal godoc
// @Summary Resume a paused deal
// @Description Ends the running pause yesterday or removes an upcoming one
// @Tags pauses
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param resume body dto.ResumeDealRequest false "Pause to end"
// @Success 200 {object} dto.PauseResult
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/resume [post]
func (h *pauseHandler) resumeDeal(c *gin.Context) {
	var req dto.ResumeDealRequest
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
	result, err := h.pauseService.ResumeDeal(c.Request.Context(), c.Param("dealID"), req, actorID)
	if err != nil {
		respondError(c, err, "resume deal")
		return
	}
	c.JSON(http.StatusOK, result)
}

// deletePause godoc
// @Summary Delete a pause period
// @Tags pauses
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param pauseID path string true "Pause ID"
// @Success 200 {object} dto.PauseResult
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse "Pause cannot be removed"
// @Security BearerAuth
// @Router /deals/{dealID}/pauses/{pauseID} [delete]
func (h *pauseHandler) deletePause(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.pauseService.DeletePause(c.Request.Context(), c.Param("dealID"), c.Param("pauseID"), actorID)
	if err != nil {
		respondError(c, err, "delete pause")
		return
	}
	c.JSON(http.StatusOK, result)
}

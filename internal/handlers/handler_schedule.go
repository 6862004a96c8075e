package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/export"
	"github.com/gin-gonic/gin"
)

// scheduleHandler handles amortization schedule requests.
type scheduleHandler struct {
	scheduleService portssvc.ScheduleSvcFacade
}

func newScheduleHandler(ss portssvc.ScheduleSvcFacade) *scheduleHandler {
	return &scheduleHandler{scheduleService: ss}
}

func registerScheduleRoutes(deal *gin.RouterGroup, scheduleService portssvc.ScheduleSvcFacade) {
	h := newScheduleHandler(scheduleService)

	schedule := deal.Group("/schedule")
	{
		schedule.GET("", h.getSchedule)
		schedule.PUT("", h.setManualSchedule)
		schedule.POST("/regenerate", h.regenerateSchedule)
		schedule.GET("/export", h.exportSchedule)
	}
}

// getSchedule godoc
// @Summary Get the schedule
// @Description Returns schedule lines with their status as of today
// @Tags schedule
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/schedule [get]
func (h *scheduleHandler) getSchedule(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	resp, err := h.scheduleService.GetSchedule(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "get schedule")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// regenerateSchedule godoc
// @Summary Regenerate the schedule
// @Description Rebuilds an annuity or equal-principal schedule, shifts it by pauses and re-applies paid totals
// @Tags schedule
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 422 {object} handlers.ErrorResponse "Unsupported schedule type"
// @Security BearerAuth
// @Router /deals/{dealID}/schedule/regenerate [post]
func (h *scheduleHandler) regenerateSchedule(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	resp, err := h.scheduleService.RegenerateSchedule(c.Request.Context(), c.Param("dealID"), actorID)
	if err != nil {
		respondError(c, err, "regenerate schedule")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// setManualSchedule godoc
// @Summary Set a manual schedule
// @Description Replaces the lines of a MANUAL or TRANCHES deal while no payment is recorded
// @Tags schedule
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param schedule body dto.SetManualScheduleRequest true "Lines"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/schedule [put]
func (h *scheduleHandler) setManualSchedule(c *gin.Context) {
	var req dto.SetManualScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	resp, err := h.scheduleService.SetManualSchedule(c.Request.Context(), c.Param("dealID"), req, actorID)
	if err != nil {
		respondError(c, err, "set manual schedule")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// exportSchedule godoc
// @Summary Export the schedule
// @Description Downloads the schedule as an Excel workbook or CSV file
// @Tags schedule
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param dealID path string true "Deal ID"
// @Param format query string false "File format" Enums(xlsx, csv) default(xlsx)
// @Success 200 {file} file
// @Failure 400 {object} handlers.ErrorResponse "Unknown format"
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/schedule/export [get]
func (h *scheduleHandler) exportSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := actorFromContext(c); !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, err, "export schedule")
		return
	}

	dealID := c.Param("dealID")
	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err, "export schedule")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, format, schedule); err != nil {
		respondError(c, err, "export schedule")
		return
	}

	logger.Info("Schedule exported", slog.String("deal_id", dealID), slog.String("format", string(format)), slog.Int("bytes", buf.Len()))
	c.Header("Content-Disposition", `attachment; filename="`+format.FileName(dealID)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// collateralHandler handles pledges, substitutions, valuations and foreclosure sales.
type collateralHandler struct {
	collateralService portssvc.CollateralSvcFacade
}

func newCollateralHandler(cs portssvc.CollateralSvcFacade) *collateralHandler {
	return &collateralHandler{collateralService: cs}
}

// registerCollateralRoutes registers deal-scoped routes on deal and link/asset routes on rg.
func registerCollateralRoutes(rg *gin.RouterGroup, deal *gin.RouterGroup, collateralService portssvc.CollateralSvcFacade) {
	h := newCollateralHandler(collateralService)

	dealCollateral := deal.Group("/collateral")
	{
		dealCollateral.GET("", h.listCollateral)
		dealCollateral.POST("", h.pledgeCollateral)
		dealCollateral.GET("/chain", h.getCollateralChain)
		dealCollateral.POST("/:linkID/replace", h.replaceCollateral)
	}

	links := rg.Group("/collateral/:linkID")
	{
		links.POST("/evaluate", h.evaluateCollateral)
		links.POST("/release", h.releaseCollateral)
		links.POST("/sale", h.recordCollateralSale)
	}

	rg.PUT("/assets/:assetID/valuation", h.upsertAssetValuation)
}

// listCollateral godoc
// @Summary List collateral links of a deal
// @Tags collateral
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {array} domain.CollateralLink
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/collateral [get]
func (h *collateralHandler) listCollateral(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	links, err := h.collateralService.ListCollateral(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "list collateral")
		return
	}
	c.JSON(http.StatusOK, links)
}

// getCollateralChain godoc
// @Summary Get the substitution chain of a deal
// @Tags collateral
// @Produce json
// @Param dealID path string true "Deal ID"
// @Success 200 {array} domain.CollateralChainEvent
// @Failure 404 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/collateral/chain [get]
func (h *collateralHandler) getCollateralChain(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	events, err := h.collateralService.GetCollateralChain(c.Request.Context(), c.Param("dealID"))
	if err != nil {
		respondError(c, err, "get collateral chain")
		return
	}
	c.JSON(http.StatusOK, events)
}

// pledgeCollateral godoc
// @Summary Pledge an asset
// @Tags collateral
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param pledge body dto.PledgeCollateralRequest true "Asset to pledge"
// @Success 201 {object} domain.CollateralLink
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Asset already pledged"
// @Failure 422 {object} handlers.ErrorResponse "Zero valuation or terminal deal"
// @Security BearerAuth
// @Router /deals/{dealID}/collateral [post]
func (h *collateralHandler) pledgeCollateral(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PledgeCollateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.collateralService.PledgeCollateral(c.Request.Context(), c.Param("dealID"), req, actorID)
	if err != nil {
		respondError(c, err, "pledge collateral")
		return
	}
	logger.Info("Collateral pledged", slog.String("link_id", link.LinkID), slog.String("asset_id", link.AssetID))
	c.JSON(http.StatusCreated, link)
}

// replaceCollateral godoc
// @Summary Replace the asset of an active link
// @Description Marks the old link REPLACED, pledges the new asset and appends a chain event atomically
// @Tags collateral
// @Accept json
// @Produce json
// @Param dealID path string true "Deal ID"
// @Param linkID path string true "Link ID"
// @Param replacement body dto.ReplaceCollateralRequest true "Replacement"
// @Success 200 {object} dto.ReplaceCollateralResult
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Stale link or asset already pledged"
// @Failure 422 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /deals/{dealID}/collateral/{linkID}/replace [post]
func (h *collateralHandler) replaceCollateral(c *gin.Context) {
	var req dto.ReplaceCollateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.collateralService.ReplaceCollateral(c.Request.Context(), c.Param("dealID"), c.Param("linkID"), req, actorID)
	if err != nil {
		respondError(c, err, "replace collateral")
		return
	}
	c.JSON(http.StatusOK, result)
}

// evaluateCollateral godoc
// @Summary Evaluate loan-to-value of a link
// @Tags collateral
// @Accept json
// @Produce json
// @Param linkID path string true "Link ID"
// @Param evaluation body dto.EvaluateCollateralRequest false "Outstanding principal override"
// @Success 200 {object} dto.EvaluationResult
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse "Zero valuation"
// @Security BearerAuth
// @Router /collateral/{linkID}/evaluate [post]
func (h *collateralHandler) evaluateCollateral(c *gin.Context) {
	var req dto.EvaluateCollateralRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err, "request format")
			return
		}
	}
	if _, ok := actorFromContext(c); !ok {
		return
	}
	result, err := h.collateralService.EvaluateCollateral(c.Request.Context(), c.Param("linkID"), req.OutstandingPrincipal)
	if err != nil {
		respondError(c, err, "evaluate collateral")
		return
	}
	c.JSON(http.StatusOK, result)
}

// releaseCollateral godoc
// @Summary Release an active link
// @Tags collateral
// @Produce json
// @Param linkID path string true "Link ID"
// @Success 200 {object} domain.CollateralLink
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Stale link"
// @Failure 422 {object} handlers.ErrorResponse "Link not active"
// @Security BearerAuth
// @Router /collateral/{linkID}/release [post]
func (h *collateralHandler) releaseCollateral(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.collateralService.ReleaseCollateral(c.Request.Context(), c.Param("linkID"), actorID)
	if err != nil {
		respondError(c, err, "release collateral")
		return
	}
	c.JSON(http.StatusOK, link)
}

// recordCollateralSale godoc
// @Summary Record proceeds of selling a foreclosed asset
// @Tags collateral
// @Accept json
// @Produce json
// @Param linkID path string true "Link ID"
// @Param sale body dto.RecordCollateralSaleRequest true "Sale proceeds"
// @Success 201 {object} dto.CollateralSaleResult
// @Success 200 {object} dto.CollateralSaleResult "Replayed request"
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse "Link not foreclosed"
// @Security BearerAuth
// @Router /collateral/{linkID}/sale [post]
func (h *collateralHandler) recordCollateralSale(c *gin.Context) {
	var req dto.RecordCollateralSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.collateralService.RecordCollateralSale(c.Request.Context(), c.Param("linkID"), req, actorID)
	if err != nil {
		respondError(c, err, "record collateral sale")
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// upsertAssetValuation godoc
// @Summary Set the valuation of an asset
// @Tags assets
// @Accept json
// @Produce json
// @Param assetID path string true "Asset ID"
// @Param valuation body dto.UpsertAssetValuationRequest true "Valuation"
// @Success 200 {object} domain.AssetValuation
// @Failure 400 {object} handlers.ErrorResponse
// @Security BearerAuth
// @Router /assets/{assetID}/valuation [put]
func (h *collateralHandler) upsertAssetValuation(c *gin.Context) {
	var req dto.UpsertAssetValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	valuation, err := h.collateralService.UpsertAssetValuation(c.Request.Context(), c.Param("assetID"), req, actorID)
	if err != nil {
		respondError(c, err, "upsert asset valuation")
		return
	}
	c.JSON(http.StatusOK, valuation)
}

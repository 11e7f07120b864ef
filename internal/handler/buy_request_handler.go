package handler

import (
	"net/http"

	"savefood/internal/middleware"
	"savefood/internal/service"
	"savefood/pkg/pagination"
	"savefood/pkg/response"

	"github.com/gin-gonic/gin"
)

type BuyRequestHandler struct {
	buyRequestService service.BuyRequestService
	auth              *middleware.Auth
}

// NewBuyRequestHandler wires the buy request lifecycle endpoints
func NewBuyRequestHandler(buyRequestService service.BuyRequestService, auth *middleware.Auth) *BuyRequestHandler {
	return &BuyRequestHandler{buyRequestService: buyRequestService, auth: auth}
}

func (h *BuyRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	authed := router.Group("")
	authed.Use(h.auth.RequireAuth())
	{
		authed.POST("/buy-request", h.Create)
		authed.GET("/buy-requests/sent", h.ListSent)
		authed.GET("/buy-requests/received", h.ListReceived)
		authed.POST("/buy-requests/:id/respond", h.Respond)
		authed.GET("/buy-requests/check/:donation_id", h.Check)
	}
}

// Create asks a donor for one of their donations
// @Summary      Create buy request
// @Description  Requests a donation. Fails when the donation is the caller's own, already sold, or already requested by the caller.
// @Tags         buy-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBuyRequestDTO  true  "Buy Request Payload"
// @Success      201      {object}  response.Response{data=service.BuyRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/buy-request [post]
func (h *BuyRequestHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req service.CreateBuyRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.buyRequestService.CreateRequest(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListSent returns the requests the caller has made
// @Summary      Sent buy requests
// @Tags         buy-requests
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/buy-requests/sent [get]
func (h *BuyRequestHandler) ListSent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	items, total, err := h.buyRequestService.ListSent(c.Request.Context(), userID, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page(items, total, p)))
}

// ListReceived returns the requests made on the caller's donations
// @Summary      Received buy requests
// @Tags         buy-requests
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/buy-requests/received [get]
func (h *BuyRequestHandler) ListReceived(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	items, total, err := h.buyRequestService.ListReceived(c.Request.Context(), userID, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page(items, total, p)))
}

// Respond lets the donor accept or reject a pending request
// @Summary      Respond to buy request
// @Description  Accepting marks the donation sold, issues both OTPs and rejects every other pending request for it.
// @Tags         buy-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Buy Request ID"
// @Param        payload  body      service.RespondBuyRequestDTO  true  "accept | reject"
// @Success      200      {object}  response.Response{data=service.BuyRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/buy-requests/{id}/respond [post]
func (h *BuyRequestHandler) Respond(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req service.RespondBuyRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.buyRequestService.RespondToRequest(c.Request.Context(), userID, requestID, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Check reports whether the caller already requested a donation
// @Summary      Check buy request
// @Tags         buy-requests
// @Security     BearerAuth
// @Produce      json
// @Param        donation_id  path      string  true  "Donation ID"
// @Success      200          {object}  response.Response{data=service.CheckRequestResponse}
// @Router       /api/buy-requests/check/{donation_id} [get]
func (h *BuyRequestHandler) Check(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	donationID, ok := pathUUID(c, "donation_id")
	if !ok {
		return
	}

	res, err := h.buyRequestService.CheckRequest(c.Request.Context(), userID, donationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

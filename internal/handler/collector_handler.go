package handler

import (
	"net/http"

	"savefood/internal/middleware"
	"savefood/internal/model"
	"savefood/internal/service"
	"savefood/pkg/pagination"
	"savefood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CollectorHandler serves the collector app and the admin collector registry.
type CollectorHandler struct {
	collectorService  service.CollectorService
	buyRequestService service.BuyRequestService
	auth              *middleware.Auth
}

func NewCollectorHandler(collectorService service.CollectorService, buyRequestService service.BuyRequestService, auth *middleware.Auth) *CollectorHandler {
	return &CollectorHandler{
		collectorService:  collectorService,
		buyRequestService: buyRequestService,
		auth:              auth,
	}
}

func (h *CollectorHandler) RegisterRoutes(router *gin.RouterGroup) {
	collector := router.Group("/collector")
	{
		collector.POST("/login", h.Login)
		collector.GET("/dashboard", h.auth.RequireAuth(), h.Dashboard)
		collector.POST("/verify-otp/:id", h.auth.RequireAuth(), h.VerifyOTP)
	}

	admin := router.Group("/admin")
	admin.Use(h.auth.RequireRole(model.RoleAdmin))
	{
		admin.GET("/collectors", h.List)
		admin.POST("/collectors", h.Register)
		admin.PUT("/collectors/:id/active", h.SetActive)
		admin.PUT("/buy-requests/:id/collector", h.AssignCollector)
	}
}

// Login authenticates an active collector
// @Summary      Collector login
// @Tags         collector
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.CollectorAuthResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/collector/login [post]
func (h *CollectorHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}

	res, err := h.collectorService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auth.SetTokenCookie(c, res.Token)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Dashboard lists the accepted requests assigned to the calling collector
// @Summary      Collector dashboard
// @Tags         collector
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.BuyRequestResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/collector/dashboard [get]
func (h *CollectorHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.buyRequestService.ListCollectorAssignments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// VerifyOTP advances the delivery of an assigned request
// @Summary      Verify handoff OTP
// @Description  The sender OTP confirms pickup from the donor, the receiver OTP confirms delivery to the requester.
// @Tags         collector
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Buy Request ID"
// @Param        payload  body      service.VerifyOTPDTO  true  "OTP"
// @Success      200      {object}  response.Response{data=service.VerifyOTPResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/collector/verify-otp/{id} [post]
func (h *CollectorHandler) VerifyOTP(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req service.VerifyOTPDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.buyRequestService.VerifyOTP(c.Request.Context(), userID, requestID, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// List returns every registered collector
// @Summary      List collectors
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/admin/collectors [get]
func (h *CollectorHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.collectorService.List(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page(items, total, p)))
}

// Register makes an existing user a food waste collector
// @Summary      Register collector
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterCollectorRequest  true  "Collector Payload"
// @Success      201      {object}  response.Response{data=service.CollectorResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/collectors [post]
func (h *CollectorHandler) Register(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req service.RegisterCollectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.collectorService.Register(c.Request.Context(), adminID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// SetActive activates or deactivates a collector
// @Summary      Toggle collector
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "Collector ID"
// @Param        payload  body      service.SetCollectorActiveRequest  true  "Active flag"
// @Success      200      {object}  response.Response{data=service.CollectorResponse}
// @Router       /api/admin/collectors/{id}/active [put]
func (h *CollectorHandler) SetActive(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	collectorID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req service.SetCollectorActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.collectorService.SetActive(c.Request.Context(), adminID, collectorID, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AssignCollector sets or clears the collector of an accepted request
// @Summary      Assign collector
// @Description  A null collector_id unassigns the request.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Buy Request ID"
// @Param        payload  body      service.AssignCollectorDTO  true  "Collector"
// @Success      200      {object}  response.Response{data=service.BuyRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admin/buy-requests/{id}/collector [put]
func (h *CollectorHandler) AssignCollector(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req service.AssignCollectorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var collectorID *uuid.UUID
	if req.CollectorID != nil {
		id, err := uuid.Parse(*req.CollectorID)
		if err != nil {
			badRequest(c, "Invalid collector_id")
			return
		}
		collectorID = &id
	}

	res, err := h.buyRequestService.AssignCollector(c.Request.Context(), adminID, requestID, collectorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

package handler

import (
	"net/http"

	"savefood/internal/middleware"
	"savefood/internal/service"
	"savefood/pkg/pagination"
	"savefood/pkg/response"

	"github.com/gin-gonic/gin"
)

type DonationHandler struct {
	donationService service.DonationService
	auth            *middleware.Auth
}

func NewDonationHandler(donationService service.DonationService, auth *middleware.Auth) *DonationHandler {
	return &DonationHandler{donationService: donationService, auth: auth}
}

func (h *DonationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/donations", h.ListFeed)

	authed := router.Group("")
	authed.Use(h.auth.RequireAuth())
	{
		authed.POST("/donate", h.Donate)
		authed.GET("/my-donations", h.ListMine)
	}
}

// Donate publishes a food donation with its photo
// @Summary      Create donation
// @Description  Multipart upload of a donation listing. The image field is required.
// @Tags         donations
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        title            formData  string  true   "Title"
// @Param        description      formData  string  false  "Description"
// @Param        food_type        formData  string  true   "packed | homecooked | organic"
// @Param        category         formData  string  false  "edible | recyclable | rejected"
// @Param        latitude         formData  number  true   "Latitude"
// @Param        longitude        formData  number  true   "Longitude"
// @Param        address          formData  string  false  "Pickup address"
// @Param        expiry_date      formData  string  false  "YYYY-MM-DD"
// @Param        safety_hours     formData  int     false  "Hours the food stays safe"
// @Param        safety_analysis  formData  string  false  "JSON document from the food scanner"
// @Param        is_safe          formData  bool    false  "Safe to eat (default true)"
// @Param        image            formData  file    true   "Photo"
// @Success      201  {object}  response.Response{data=service.DonationResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/donate [post]
func (h *DonationHandler) Donate(c *gin.Context) {
	donorID, ok := currentUser(c)
	if !ok {
		return
	}

	var req service.CreateDonationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "failed to read image")
		return
	}
	defer file.Close()

	res, err := h.donationService.CreateDonation(c.Request.Context(), donorID, req, service.ImageUpload{
		Filename: header.Filename,
		Content:  file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListFeed returns the public feed of safe donations
// @Summary      Donation feed
// @Tags         donations
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.DonationPage}
// @Router       /api/donations [get]
func (h *DonationHandler) ListFeed(c *gin.Context) {
	p := pagination.Parse(c)
	res, err := h.donationService.ListFeed(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListMine returns the caller's donations
// @Summary      My donations
// @Tags         donations
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.DonationPage}
// @Router       /api/my-donations [get]
func (h *DonationHandler) ListMine(c *gin.Context) {
	donorID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	res, err := h.donationService.ListMine(c.Request.Context(), donorID, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

package handler

import (
	"net/http"

	"savefood/internal/middleware"
	"savefood/internal/model"
	"savefood/internal/service"
	"savefood/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	auth        *middleware.Auth
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, auth *middleware.Auth) *UserHandler {
	return &UserHandler{userService: userService, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/signup", h.Signup)
	router.POST("/login", h.Login)
	router.GET("/districts", h.Districts)
	router.GET("/user-types", h.UserTypes)

	router.POST("/logout", h.Logout)
	router.GET("/profile", h.auth.RequireAuth(), h.Profile)
}

// Signup registers a new marketplace account
// @Summary      Sign up
// @Description  Creates a user and returns an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SignupRequest  true  "Signup Payload"
// @Success      201      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/signup [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.userService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auth.SetTokenCookie(c, res.Token)
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Login handles POST /login to authenticate and return a JWT token
// @Summary      Login user
// @Description  Authenticates a user by username and password, returning a JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auth.SetTokenCookie(c, res.Token)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout clears the access token cookie
// @Summary      Logout user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	h.auth.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out successfully"}))
}

// Profile returns the authenticated user
// @Summary      Current user profile
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Router       /api/profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Districts lists the supported districts
// @Summary      Districts
// @Tags         lookups
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Choice}
// @Router       /api/districts [get]
func (h *UserHandler) Districts(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, model.Districts))
}

// UserTypes lists the account types a user can sign up as
// @Summary      User types
// @Tags         lookups
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Choice}
// @Router       /api/user-types [get]
func (h *UserHandler) UserTypes(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, model.UserTypes))
}

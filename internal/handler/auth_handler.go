package handler

import (
	"net/http"

	"nfa-backend/internal/middleware"
	"nfa-backend/internal/service"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService service.UserService
	auth        *middleware.AuthMiddleware
	log         *zap.Logger
}

// NewAuthHandler sets up the routing dependencies for auth and user endpoints
func NewAuthHandler(userService service.UserService, auth *middleware.AuthMiddleware, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, auth: auth, log: log}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public routes
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)

	// Authenticated routes
	authed := router.Group("", h.auth.RequireAuth())
	{
		authed.POST("/logout", h.Logout)
		authed.POST("/logout_all", h.LogoutAll)
		authed.GET("/sessions", h.ListSessions)
		authed.GET("/users/me", h.GetMe)
		authed.GET("/users", h.ListUsers)
		authed.GET("/users/:id", h.GetUserByID)
	}
}

// Register handles POST /register to create a plain user account
// @Summary      Register user
// @Description  Creates a new account; the default role is plain user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Register Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	// Self-registration never grants elevated roles.
	req.Role = nil
	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login handles POST /login to authenticate and return a JWT token
// @Summary      Login user
// @Description  Authenticates by username and password, returning a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	tokenRes, err := h.userService.Login(c.Request.Context(), req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.SetCookie("access_token", tokenRes.AccessToken, 0, "/", "", false, true)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout revokes the current session token
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Get(middleware.CtxToken)
	tokenStr, _ := token.(string)
	if err := h.userService.Logout(c.Request.Context(), tokenStr); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// LogoutAll revokes every session of the current user
// @Summary      Logout everywhere
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /logout_all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if err := h.userService.LogoutAll(c.Request.Context(), callerID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "All sessions revoked"))
}

// ListSessions lists the caller's active sessions
// @Summary      List sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.SessionInfo}
// @Router       /sessions [get]
func (h *AuthHandler) ListSessions(c *gin.Context) {
	sessions, err := h.userService.ListSessions(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sessions))
}

// GetMe handles GET /users/me to return the current authenticated user
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /users/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ListUsers returns all users; any authenticated user may look up names for
// building an approval chain
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.UserResponse}
// @Router       /users [get]
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

// GetUserByID handles GET /users/:id
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
func (h *AuthHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

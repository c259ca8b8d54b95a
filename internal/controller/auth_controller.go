package controller

import (
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.RegisterInput true "registration"
// @Success 201 {object} util.Response
// @Router /api/auth/register [post]
func (ctl *AuthController) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctl.authService.Register(input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, result)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.LoginInput true "credentials"
// @Success 200 {object} util.Response
// @Router /api/auth/login [post]
func (ctl *AuthController) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctl.authService.Login(input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, result)
}

// Profile godoc
// @Summary Current user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/auth/profile [get]
func (ctl *AuthController) Profile(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	user, err := ctl.authService.Profile(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, user)
}

func (ctl *AuthController) UpdateProfile(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var input service.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	user, err := ctl.authService.UpdateProfile(claims.UserID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, user)
}

type connectWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// ConnectWallet godoc
// @Summary Attach a wallet address to the current user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/auth/wallet [post]
func (ctl *AuthController) ConnectWallet(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var req connectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	user, err := ctl.authService.ConnectWallet(claims.UserID, req.Address)
	if err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	util.Success(c, user)
}

package controller

import (
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StakeController struct {
	stakeService *service.StakeService
}

func NewStakeController(stakeService *service.StakeService) *StakeController {
	return &StakeController{stakeService: stakeService}
}

// Eligibility godoc
// @Summary Refund eligibility, local tracks plus the contract's answer
// @Tags stake
// @Produce json
// @Security BearerAuth
// @Param courseId query int true "course id"
// @Success 200 {object} util.Response
// @Router /api/stake/eligibility [get]
func (ctl *StakeController) Eligibility(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := queryUint(c, "courseId")
	if !ok {
		return
	}
	view, err := ctl.stakeService.Eligibility(c.Request.Context(), claims.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, view)
}

type refundClaimedRequest struct {
	CourseID uint   `json:"courseId" binding:"required"`
	TxHash   string `json:"txHash" binding:"required"`
}

// RefundClaimed godoc
// @Summary Record an on-chain refund claim transaction
// @Tags stake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/stake/refund-claimed [post]
func (ctl *StakeController) RefundClaimed(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var req refundClaimedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	enrollment, err := ctl.stakeService.RecordRefundClaimed(c.Request.Context(), claims.UserID, req.CourseID, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, enrollment)
}

package controller

import (
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	progressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{progressService: progressService}
}

type updateProgressRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// UpdateProgress godoc
// @Summary Recompute the enrollment's derived progress columns
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/update [post]
func (ctl *ProgressController) UpdateProgress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var req updateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	enrollment, err := ctl.progressService.UpdateProgress(claims.UserID, req.CourseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, enrollment)
}

// StartSession godoc
// @Summary Open a learning session for a course
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/sessions/start [post]
func (ctl *ProgressController) StartSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	var input service.StartSessionInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		util.BadRequest(c, err.Error())
		return
	}
	session, err := ctl.progressService.StartSession(c.Request.Context(), claims.UserID, courseID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, session)
}

// EndSession godoc
// @Summary Close the open learning session and credit its time
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/sessions/end [post]
func (ctl *ProgressController) EndSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	session, enrollment, err := ctl.progressService.EndSession(claims.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"session": session, "enrollment": enrollment})
}

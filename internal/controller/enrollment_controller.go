package controller

import (
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	enrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{enrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary Enroll the current user in a course
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "course id"
// @Success 201 {object} util.Response
// @Router /api/courses/{courseId}/enroll [post]
func (ctl *EnrollmentController) Enroll(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	var input service.EnrollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	enrollment, err := ctl.enrollmentService.Enroll(claims.UserID, courseID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, enrollment)
}

// ListMine godoc
// @Summary Current user's enrollments
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/enrollments [get]
func (ctl *EnrollmentController) ListMine(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	enrollments, err := ctl.enrollmentService.ListByUser(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, enrollments)
}

func (ctl *EnrollmentController) GetEnrollment(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	enrollment, err := ctl.enrollmentService.GetEnrollment(claims.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, enrollment)
}

// Sections godoc
// @Summary Course sections with the learner's access state
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/sections [get]
func (ctl *EnrollmentController) Sections(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	access, err := ctl.enrollmentService.SectionAccessList(claims.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, access)
}

// SectionContent godoc
// @Summary Section content, gated by unlock state
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param sectionId path int true "section id"
// @Success 200 {object} util.Response
// @Router /api/sections/{sectionId} [get]
func (ctl *EnrollmentController) SectionContent(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	sectionID, ok := paramUint(c, "sectionId")
	if !ok {
		return
	}
	section, err := ctl.enrollmentService.SectionContent(claims.UserID, sectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, section)
}

// AdminUnlockSection godoc
// @Summary Manually unlock a section for a learner
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sectionId path int true "section id"
// @Success 200 {object} util.Response
// @Router /api/admin/sections/{sectionId}/unlock [post]
func (ctl *EnrollmentController) AdminUnlockSection(c *gin.Context) {
	sectionID, ok := paramUint(c, "sectionId")
	if !ok {
		return
	}
	var input struct {
		UserID uint `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	if err := ctl.enrollmentService.UnlockSectionForUser(input.UserID, sectionID); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"unlocked": true})
}

package controller

import (
	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	testingService *service.TestingService
}

func NewTestController(testingService *service.TestingService) *TestController {
	return &TestController{testingService: testingService}
}

// GetTest godoc
// @Summary Test questions for taking, without the answer key
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param testId path string true "test id"
// @Success 200 {object} util.Response
// @Router /api/tests/{testId} [get]
func (ctl *TestController) GetTest(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	test, err := ctl.testingService.TestForTaking(claims.UserID, c.Param("testId"))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, test)
}

// Submit godoc
// @Summary Submit answers for grading
// @Tags tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param testId path string true "test id"
// @Param body body service.SubmitTestInput true "answers keyed by question id"
// @Success 201 {object} util.Response
// @Router /api/tests/{testId}/submit [post]
func (ctl *TestController) Submit(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var input service.SubmitTestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctl.testingService.SubmitTest(claims.UserID, c.Param("testId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, result)
}

// ListAttempts godoc
// @Summary Current user's attempts on a test, newest first
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param testId path string true "test id"
// @Success 200 {object} util.Response
// @Router /api/tests/{testId}/attempts [get]
func (ctl *TestController) ListAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attempts, err := ctl.testingService.ListAttempts(claims.UserID, c.Param("testId"))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempts)
}

// GetAttempt godoc
// @Summary A single attempt with per-question grading detail
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "attempt id"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId} [get]
func (ctl *TestController) GetAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attempt, err := ctl.testingService.GetAttempt(claims.UserID, c.Param("attemptId"), claims.Role == model.Admin)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// ListAttemptsByTest is the admin view of everyone's attempts on a test.
func (ctl *TestController) ListAttemptsByTest(c *gin.Context) {
	page, limit := pagination(c)
	attempts, total, err := ctl.testingService.ListAttemptsByTest(c.Param("testId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"attempts": attempts, "total": total, "page": page, "limit": limit})
}

package controller

import (
	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/service"
	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	courseService  *service.CourseService
	storageService *service.StorageService
}

func NewCourseController(courseService *service.CourseService, storageService *service.StorageService) *CourseController {
	return &CourseController{courseService: courseService, storageService: storageService}
}

// ListCourses godoc
// @Summary Published course catalog
// @Tags courses
// @Produce json
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (ctl *CourseController) ListCourses(c *gin.Context) {
	page, limit := pagination(c)
	courses, total, err := ctl.courseService.ListPublished(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"courses": courses, "total": total, "page": page, "limit": limit})
}

// GetCourse godoc
// @Summary Course detail with sections
// @Tags courses
// @Produce json
// @Param courseId path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId} [get]
func (ctl *CourseController) GetCourse(c *gin.Context) {
	id, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	course, err := ctl.courseService.GetCourse(id)
	if err != nil {
		respondError(c, err)
		return
	}
	claims := util.GetUserFromContext(c)
	if !course.Published && (claims == nil || claims.Role != model.Admin) {
		util.NotFound(c)
		return
	}
	util.Success(c, course)
}

func (ctl *CourseController) ListAllCourses(c *gin.Context) {
	page, limit := pagination(c)
	courses, total, err := ctl.courseService.ListAll(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"courses": courses, "total": total, "page": page, "limit": limit})
}

// CreateCourse godoc
// @Summary Create a course
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response
// @Router /api/admin/courses [post]
func (ctl *CourseController) CreateCourse(c *gin.Context) {
	var input service.CourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	course, err := ctl.courseService.CreateCourse(input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, course)
}

func (ctl *CourseController) UpdateCourse(c *gin.Context) {
	id, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	var input service.CourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	course, err := ctl.courseService.UpdateCourse(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, course)
}

func (ctl *CourseController) DeleteCourse(c *gin.Context) {
	id, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	if err := ctl.courseService.DeleteCourse(id); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": id})
}

type publishRequest struct {
	Published bool `json:"published"`
}

// SetPublished godoc
// @Summary Publish or unpublish a course
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/admin/courses/{courseId}/publish [put]
func (ctl *CourseController) SetPublished(c *gin.Context) {
	id, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	course, err := ctl.courseService.SetPublished(id, req.Published)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, course)
}

// UploadCover godoc
// @Summary Upload a course cover image
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Router /api/admin/courses/{courseId}/cover [post]
func (ctl *CourseController) UploadCover(c *gin.Context) {
	id, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	file, err := c.FormFile("cover")
	if err != nil {
		util.BadRequest(c, "cover file is required")
		return
	}

	url, err := ctl.storageService.UploadCourseCover(c.Request.Context(), id, file)
	if err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	course, err := ctl.courseService.SetCoverURL(id, url)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"coverUrl": url, "course": course})
}

func (ctl *CourseController) CreateSection(c *gin.Context) {
	courseID, ok := paramUint(c, "courseId")
	if !ok {
		return
	}
	var input service.SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	section, err := ctl.courseService.CreateSection(courseID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, section)
}

func (ctl *CourseController) UpdateSection(c *gin.Context) {
	id, ok := paramUint(c, "sectionId")
	if !ok {
		return
	}
	var input service.SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	section, err := ctl.courseService.UpdateSection(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, section)
}

func (ctl *CourseController) DeleteSection(c *gin.Context) {
	id, ok := paramUint(c, "sectionId")
	if !ok {
		return
	}
	if err := ctl.courseService.DeleteSection(id); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": id})
}

func (ctl *CourseController) CreateTest(c *gin.Context) {
	sectionID, ok := paramUint(c, "sectionId")
	if !ok {
		return
	}
	var input service.TestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	test, err := ctl.courseService.CreateTest(sectionID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, test)
}

func (ctl *CourseController) GetTestAdmin(c *gin.Context) {
	test, err := ctl.courseService.GetTest(c.Param("testId"))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, test)
}

func (ctl *CourseController) UpdateTest(c *gin.Context) {
	var input service.TestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	test, err := ctl.courseService.UpdateTest(c.Param("testId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, test)
}

func (ctl *CourseController) DeleteTest(c *gin.Context) {
	if err := ctl.courseService.DeleteTest(c.Param("testId")); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": c.Param("testId")})
}

func (ctl *CourseController) CreateQuestion(c *gin.Context) {
	var input service.QuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	q, err := ctl.courseService.CreateQuestion(c.Param("testId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, q)
}

func (ctl *CourseController) UpdateQuestion(c *gin.Context) {
	var input service.QuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	q, err := ctl.courseService.UpdateQuestion(c.Param("questionId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, q)
}

func (ctl *CourseController) DeleteQuestion(c *gin.Context) {
	if err := ctl.courseService.DeleteQuestion(c.Param("questionId")); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": c.Param("questionId")})
}

func (ctl *CourseController) CreateAnswer(c *gin.Context) {
	var input service.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	a, err := ctl.courseService.CreateAnswer(c.Param("questionId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, a)
}

func (ctl *CourseController) UpdateAnswer(c *gin.Context) {
	var input service.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	a, err := ctl.courseService.UpdateAnswer(c.Param("answerId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, a)
}

func (ctl *CourseController) DeleteAnswer(c *gin.Context) {
	if err := ctl.courseService.DeleteAnswer(c.Param("answerId")); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": c.Param("answerId")})
}

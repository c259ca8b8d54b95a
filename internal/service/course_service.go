package service

import (
	"errors"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"
	"chainacademy_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	courseRepo *repository.CourseRepository
	testRepo   *repository.TestRepository
}

func NewCourseService(courseRepo *repository.CourseRepository, testRepo *repository.TestRepository) *CourseService {
	return &CourseService{courseRepo: courseRepo, testRepo: testRepo}
}

type CourseInput struct {
	Title                string     `json:"title" binding:"required,max=200"`
	Slug                 string     `json:"slug" binding:"required,max=200"`
	Description          string     `json:"description"`
	PriceEth             float64    `json:"priceEth" binding:"min=0"`
	StakeAmountEth       float64    `json:"stakeAmountEth" binding:"min=0"`
	RequiredCompletion   int        `json:"requiredCompletion" binding:"min=0,max=100"`
	RequiredTestAverage  int        `json:"requiredTestAverage" binding:"min=0,max=100"`
	DurationDays         int        `json:"durationDays" binding:"min=0"`
	DailyLearningMinutes int        `json:"dailyLearningMinutes" binding:"min=0"`
	ScheduledPublishAt   *time.Time `json:"scheduledPublishAt"`
}

func (s *CourseService) CreateCourse(input CourseInput) (*model.Course, error) {
	course := &model.Course{
		Title:                input.Title,
		Slug:                 input.Slug,
		Description:          input.Description,
		PriceEth:             input.PriceEth,
		StakeAmountEth:       input.StakeAmountEth,
		RequiredCompletion:   input.RequiredCompletion,
		RequiredTestAverage:  input.RequiredTestAverage,
		DurationDays:         input.DurationDays,
		DailyLearningMinutes: input.DailyLearningMinutes,
		ScheduledPublishAt:   input.ScheduledPublishAt,
	}
	if err := s.courseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.courseRepo.FindByIDWithSections(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(id uint, input CourseInput) (*model.Course, error) {
	course, err := s.courseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	course.Title = input.Title
	course.Slug = input.Slug
	course.Description = input.Description
	course.PriceEth = input.PriceEth
	course.StakeAmountEth = input.StakeAmountEth
	course.RequiredCompletion = input.RequiredCompletion
	course.RequiredTestAverage = input.RequiredTestAverage
	course.DurationDays = input.DurationDays
	course.DailyLearningMinutes = input.DailyLearningMinutes
	course.ScheduledPublishAt = input.ScheduledPublishAt

	if err := s.courseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) SetCoverURL(id uint, url string) (*model.Course, error) {
	course, err := s.courseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	course.CoverURL = url
	if err := s.courseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(id uint) error {
	if _, err := s.courseRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	return s.courseRepo.Delete(id)
}

func (s *CourseService) ListPublished(page, limit int) ([]model.Course, int64, error) {
	return s.courseRepo.ListPublished(page, limit)
}

func (s *CourseService) ListAll(page, limit int) ([]model.Course, int64, error) {
	return s.courseRepo.ListAll(page, limit)
}

// SetPublished flips the course's published flag. Publishing validates every
// attached test still carries gradable points; a test whose questions sum to
// zero cannot be scored and blocks the publish.
func (s *CourseService) SetPublished(id uint, published bool) (*model.Course, error) {
	course, err := s.courseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if published {
		if err := s.validateCourseTests(id); err != nil {
			return nil, err
		}
	}

	course.Published = published
	if published {
		course.ScheduledPublishAt = nil
	}
	if err := s.courseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) validateCourseTests(courseID uint) error {
	testIDs, err := s.testRepo.TestIDsByCourse(courseID)
	if err != nil {
		return err
	}
	for _, id := range testIDs {
		test, err := s.testRepo.FindByID(id)
		if err != nil {
			return err
		}
		total := 0
		for _, q := range test.Questions {
			total += q.Points
		}
		if total <= 0 {
			return util.ErrTestHasNoPoints
		}
	}
	return nil
}

// ProcessScheduledPublishes runs from the cron scheduler.
func (s *CourseService) ProcessScheduledPublishes() {
	n, err := s.courseRepo.PublishDue(time.Now())
	if err != nil {
		logger.Log.Error("scheduled publish sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("published scheduled courses", zap.Int64("count", n))
	}
}

type SectionInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Order       int    `json:"order" binding:"min=0"`
	Content     string `json:"content"`
	RequireTest bool   `json:"requireTest"`
}

func (s *CourseService) CreateSection(courseID uint, input SectionInput) (*model.Section, error) {
	if _, err := s.courseRepo.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	section := &model.Section{
		CourseID:    courseID,
		Title:       input.Title,
		Order:       input.Order,
		Content:     input.Content,
		RequireTest: input.RequireTest,
	}
	if err := s.courseRepo.CreateSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *CourseService) GetSection(id uint) (*model.Section, error) {
	section, err := s.courseRepo.FindSectionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSectionNotFound
		}
		return nil, err
	}
	return section, nil
}

func (s *CourseService) UpdateSection(id uint, input SectionInput) (*model.Section, error) {
	section, err := s.GetSection(id)
	if err != nil {
		return nil, err
	}
	section.Title = input.Title
	section.Order = input.Order
	section.Content = input.Content
	section.RequireTest = input.RequireTest
	if err := s.courseRepo.UpdateSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *CourseService) DeleteSection(id uint) error {
	if _, err := s.GetSection(id); err != nil {
		return err
	}
	return s.courseRepo.DeleteSection(id)
}

type TestInput struct {
	Title        string `json:"title" binding:"max=200"`
	PassingScore int    `json:"passingScore" binding:"min=0,max=100"`
	TimeLimit    int    `json:"timeLimit" binding:"min=0"`
}

func (s *CourseService) CreateTest(sectionID uint, input TestInput) (*model.Test, error) {
	section, err := s.GetSection(sectionID)
	if err != nil {
		return nil, err
	}
	test := &model.Test{
		SectionID:    section.ID,
		Title:        input.Title,
		PassingScore: input.PassingScore,
		TimeLimit:    input.TimeLimit,
	}
	if test.PassingScore == 0 {
		test.PassingScore = 70
	}
	if err := s.testRepo.Create(test); err != nil {
		return nil, err
	}

	if !section.RequireTest {
		section.RequireTest = true
		if err := s.courseRepo.UpdateSection(section); err != nil {
			return nil, err
		}
	}
	return test, nil
}

func (s *CourseService) GetTest(id string) (*model.Test, error) {
	test, err := s.testRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}

func (s *CourseService) UpdateTest(id string, input TestInput) (*model.Test, error) {
	test, err := s.GetTest(id)
	if err != nil {
		return nil, err
	}
	test.Title = input.Title
	if input.PassingScore > 0 {
		test.PassingScore = input.PassingScore
	}
	test.TimeLimit = input.TimeLimit
	if err := s.testRepo.Update(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *CourseService) DeleteTest(id string) error {
	test, err := s.GetTest(id)
	if err != nil {
		return err
	}
	if err := s.testRepo.Delete(test.ID); err != nil {
		return err
	}

	section, err := s.courseRepo.FindSectionByID(test.SectionID)
	if err != nil {
		return nil
	}
	section.RequireTest = false
	return s.courseRepo.UpdateSection(section)
}

type QuestionInput struct {
	Content string `json:"content" binding:"required"`
	Points  int    `json:"points" binding:"min=0"`
	Order   int    `json:"order" binding:"min=0"`
}

func (s *CourseService) CreateQuestion(testID string, input QuestionInput) (*model.Question, error) {
	if _, err := s.GetTest(testID); err != nil {
		return nil, err
	}
	points := input.Points
	if points == 0 {
		points = 1
	}
	q := &model.Question{
		TestID:  testID,
		Content: input.Content,
		Points:  points,
		Order:   input.Order,
	}
	if err := s.testRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CourseService) UpdateQuestion(id string, input QuestionInput) (*model.Question, error) {
	q, err := s.testRepo.FindQuestionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	q.Content = input.Content
	if input.Points > 0 {
		q.Points = input.Points
	}
	q.Order = input.Order
	if err := s.testRepo.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CourseService) DeleteQuestion(id string) error {
	return s.testRepo.DeleteQuestion(id)
}

type AnswerInput struct {
	Content   string `json:"content" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Order     int    `json:"order" binding:"min=0"`
}

func (s *CourseService) CreateAnswer(questionID string, input AnswerInput) (*model.Answer, error) {
	if _, err := s.testRepo.FindQuestionByID(questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	a := &model.Answer{
		QuestionID: questionID,
		Content:    input.Content,
		IsCorrect:  input.IsCorrect,
		Order:      input.Order,
	}
	if err := s.testRepo.CreateAnswer(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CourseService) UpdateAnswer(id string, input AnswerInput) (*model.Answer, error) {
	a, err := s.testRepo.FindAnswerByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	a.Content = input.Content
	a.IsCorrect = input.IsCorrect
	a.Order = input.Order
	if err := s.testRepo.UpdateAnswer(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CourseService) DeleteAnswer(id string) error {
	return s.testRepo.DeleteAnswer(id)
}

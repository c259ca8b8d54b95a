package service

import (
	"errors"
	"math"
	"sort"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"
	"chainacademy_backend/pkg/mailer"
	"chainacademy_backend/pkg/monitoring"

	"gorm.io/gorm"
)

type TestingService struct {
	db          *gorm.DB
	testRepo    *repository.TestRepository
	attemptRepo *repository.AttemptRepository
	courseRepo  *repository.CourseRepository
	enrollSvc   *EnrollmentService
	userRepo    *repository.UserRepository
	mailer      *mailer.Mailer
}

func NewTestingService(
	db *gorm.DB,
	testRepo *repository.TestRepository,
	attemptRepo *repository.AttemptRepository,
	courseRepo *repository.CourseRepository,
	enrollSvc *EnrollmentService,
	userRepo *repository.UserRepository,
	m *mailer.Mailer,
) *TestingService {
	return &TestingService{
		db:          db,
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		courseRepo:  courseRepo,
		enrollSvc:   enrollSvc,
		userRepo:    userRepo,
		mailer:      m,
	}
}

// TestForTaking strips correct-answer flags before handing the test to the
// learner; the Answer model never serializes IsCorrect.
func (s *TestingService) TestForTaking(userID uint, testID string) (*model.Test, error) {
	test, err := s.testRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	ok, err := s.enrollSvc.CanAccessSection(userID, test.SectionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrSectionLocked
	}
	return test, nil
}

type SubmitTestInput struct {
	// Answers maps questionID to the selected answer IDs.
	Answers map[string][]string `json:"answers" binding:"required"`
}

type SubmitTestResult struct {
	Attempt      *model.UserTestAttempt `json:"attempt"`
	Passed       bool                   `json:"passed"`
	Score        int                    `json:"score"`
	PassingScore int                    `json:"passingScore"`
	NextSection  *uint                  `json:"nextSectionId,omitempty"`
}

// SubmitTest grades a submission and applies its consequences in one
// transaction: the attempt row, section completion and next-section unlock on
// a pass, and the enrollment's derived progress and stake columns. A failed
// transaction leaves no partial state.
func (s *TestingService) SubmitTest(userID uint, testID string, input SubmitTestInput) (*SubmitTestResult, error) {
	test, err := s.TestForTaking(userID, testID)
	if err != nil {
		monitoring.TestSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	section, err := s.courseRepo.FindSectionByID(test.SectionID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollSvc.GetEnrollment(userID, section.CourseID)
	if err != nil {
		monitoring.TestSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	score, details, err := gradeTest(test, input.Answers)
	if err != nil {
		monitoring.TestSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	passed := score >= test.PassingScore
	now := time.Now()

	attempt := &model.UserTestAttempt{
		UserID:      userID,
		TestID:      test.ID,
		CourseID:    section.CourseID,
		SectionID:   section.ID,
		Score:       score,
		Passed:      passed,
		Answers:     details,
		CompletedAt: now,
	}

	var result SubmitTestResult
	var completedNow, eligibleNow bool
	var course *model.Course

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		if passed {
			if err := repository.UpsertCompletedTx(tx, userID, section.ID, section.CourseID, now); err != nil {
				return err
			}
			next, err := nextSectionTx(tx, section)
			if err != nil {
				return err
			}
			if next != nil {
				if err := repository.UpsertUnlockedTx(tx, userID, next.ID, section.CourseID); err != nil {
					return err
				}
				result.NextSection = &next.ID
			}
		}

		var c model.Course
		if err := tx.First(&c, section.CourseID).Error; err != nil {
			return err
		}
		course = &c

		var err error
		completedNow, eligibleNow, err = recomputeEnrollmentTx(tx, enrollment, course)
		return err
	})
	if txErr != nil {
		monitoring.TestSubmissions.WithLabelValues("error").Inc()
		return nil, txErr
	}

	if passed {
		monitoring.TestSubmissions.WithLabelValues("passed").Inc()
	} else {
		monitoring.TestSubmissions.WithLabelValues("failed").Inc()
	}

	s.notifyMilestones(userID, course, completedNow, eligibleNow)

	result.Attempt = attempt
	result.Passed = passed
	result.Score = score
	result.PassingScore = test.PassingScore
	return &result, nil
}

func (s *TestingService) notifyMilestones(userID uint, course *model.Course, completedNow, eligibleNow bool) {
	if !completedNow && !eligibleNow {
		return
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return
	}
	if completedNow {
		s.mailer.SendCourseCompletedEmail(user.Email, user.Name, course.Title)
	}
	if eligibleNow {
		s.mailer.SendRefundEligibleEmail(user.Email, user.Name, course.Title)
	}
}

// gradeTest scores a submission against the test's key. Each question is all
// or nothing: the submitted set must equal the correct set exactly, extra or
// missing selections earn zero. The final score is the earned share of total
// points, rounded to the nearest whole percent.
func gradeTest(test *model.Test, answers map[string][]string) (int, model.AttemptAnswers, error) {
	total := 0
	for _, q := range test.Questions {
		total += q.Points
	}
	if total <= 0 {
		return 0, nil, util.ErrTestHasNoPoints
	}

	earned := 0
	details := make(model.AttemptAnswers, len(test.Questions))
	for _, q := range test.Questions {
		correct := make([]string, 0, len(q.Answers))
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct = append(correct, a.ID)
			}
		}
		submitted := dedupe(answers[q.ID])

		isCorrect := sameSet(submitted, correct)
		points := 0
		if isCorrect {
			points = q.Points
			earned += points
		}
		details[q.ID] = model.AttemptAnswerDetail{
			UserAnswers:    submitted,
			CorrectAnswers: correct,
			IsCorrect:      isCorrect,
			EarnedPoints:   points,
		}
	}

	score := int(math.Round(float64(earned) * 100 / float64(total)))
	return score, details, nil
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return append([]string(nil), ids...)
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// nextSectionTx finds the section with the smallest order greater than cur's.
func nextSectionTx(tx *gorm.DB, cur *model.Section) (*model.Section, error) {
	var next model.Section
	err := tx.Where("course_id = ? AND `order` > ?", cur.CourseID, cur.Order).
		Order("`order` asc").First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &next, nil
}

func (s *TestingService) ListAttempts(userID uint, testID string) ([]model.UserTestAttempt, error) {
	if _, err := s.testRepo.FindByID(testID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	return s.attemptRepo.ListByUserAndTest(userID, testID)
}

// GetAttempt returns an attempt for review. Students only see their own;
// callers pass isAdmin for the admin bypass.
func (s *TestingService) GetAttempt(userID uint, attemptID string, isAdmin bool) (*model.UserTestAttempt, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if !isAdmin && attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

func (s *TestingService) ListAttemptsByTest(testID string, page, limit int) ([]map[string]interface{}, int64, error) {
	return s.attemptRepo.ListByTest(testID, page, limit)
}

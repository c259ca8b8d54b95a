package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"
	"chainacademy_backend/pkg/logger"
	"chainacademy_backend/pkg/mailer"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionStartLockTTL = 10 * time.Second

type ProgressService struct {
	db             *gorm.DB
	rdb            *redis.Client
	enrollmentRepo *repository.EnrollmentRepository
	courseRepo     *repository.CourseRepository
	sessionRepo    *repository.SessionRepository
	userRepo       *repository.UserRepository
	mailer         *mailer.Mailer
}

func NewProgressService(
	db *gorm.DB,
	rdb *redis.Client,
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	sessionRepo *repository.SessionRepository,
	userRepo *repository.UserRepository,
	m *mailer.Mailer,
) *ProgressService {
	return &ProgressService{
		db:             db,
		rdb:            rdb,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		sessionRepo:    sessionRepo,
		userRepo:       userRepo,
		mailer:         m,
	}
}

// recomputeEnrollmentTx refreshes the enrollment's derived columns from the
// stored progress and attempt rows. Progress is completed sections over total
// sections; testAverage is the mean of best scores across attempted tests,
// tests never attempted are left out rather than counted as zero. Refund
// eligibility is set-only: the guarded update flips it at most once, and the
// returned eligibleNow is true only for the flip.
func recomputeEnrollmentTx(tx *gorm.DB, enrollment *model.Enrollment, course *model.Course) (completedNow, eligibleNow bool, err error) {
	var totalSections int64
	if err = tx.Model(&model.Section{}).Where("course_id = ?", course.ID).Count(&totalSections).Error; err != nil {
		return false, false, err
	}
	completedSections, err := repository.CountCompletedTx(tx, enrollment.UserID, course.ID)
	if err != nil {
		return false, false, err
	}

	progress := 0
	if totalSections > 0 {
		progress = int(math.Round(float64(completedSections) * 100 / float64(totalSections)))
	}

	var testIDs []string
	if err = tx.Model(&model.Test{}).
		Joins("JOIN sections ON sections.id = tests.section_id").
		Where("sections.course_id = ? AND sections.deleted_at IS NULL", course.ID).
		Pluck("tests.id", &testIDs).Error; err != nil {
		return false, false, err
	}

	average := 0.0
	if len(testIDs) > 0 {
		best, berr := repository.BestScoresTx(tx, enrollment.UserID, testIDs)
		if berr != nil {
			return false, false, berr
		}
		if len(best) > 0 {
			sum := 0
			for _, score := range best {
				sum += score
			}
			average = float64(sum) / float64(len(best))
		}
	}

	wasCompleted := enrollment.Completed
	enrollment.Progress = progress
	enrollment.CompletionPercentage = progress
	enrollment.TestAverage = average
	// Rounding can report 100 with a section outstanding; completion
	// requires every section, so compare counts.
	if totalSections > 0 && completedSections == totalSections {
		enrollment.Completed = true
	}
	completedNow = enrollment.Completed && !wasCompleted

	if err = tx.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
		Updates(map[string]interface{}{
			"progress":              enrollment.Progress,
			"completion_percentage": enrollment.CompletionPercentage,
			"test_average":          enrollment.TestAverage,
			"completed":             enrollment.Completed,
		}).Error; err != nil {
		return false, false, err
	}

	if !enrollment.RefundEligible && meetsRefundRequirements(course, enrollment) {
		flipped, merr := repository.MarkRefundEligibleTx(tx, enrollment.ID)
		if merr != nil {
			return false, false, merr
		}
		if flipped > 0 {
			enrollment.RefundEligible = true
			eligibleNow = true
		}
	}
	return completedNow, eligibleNow, nil
}

// meetsRefundRequirements is the OR of the course's configured tracks. A
// track with a zero threshold is not configured and cannot qualify anyone.
func meetsRefundRequirements(course *model.Course, e *model.Enrollment) bool {
	if course.RequiredCompletion > 0 && e.CompletionPercentage >= course.RequiredCompletion {
		return true
	}
	if course.RequiredTestAverage > 0 && e.TestAverage >= float64(course.RequiredTestAverage) {
		return true
	}
	if course.DailyLearningMinutes > 0 && course.DurationDays > 0 &&
		e.TotalLearningMinutes >= course.DailyLearningMinutes*course.DurationDays {
		return true
	}
	return false
}

// UpdateProgress recomputes the derived columns on demand.
func (s *ProgressService) UpdateProgress(userID, courseID uint) (*model.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	course, err := s.courseRepo.FindByID(courseID)
	if err != nil {
		return nil, err
	}

	var completedNow, eligibleNow bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var terr error
		completedNow, eligibleNow, terr = recomputeEnrollmentTx(tx, enrollment, course)
		return terr
	})
	if err != nil {
		return nil, err
	}

	s.notify(userID, course, completedNow, eligibleNow)
	return enrollment, nil
}

func (s *ProgressService) notify(userID uint, course *model.Course, completedNow, eligibleNow bool) {
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

type StartSessionInput struct {
	SectionID *uint `json:"sectionId"`
	TopicID   *uint `json:"topicId"`
}

// StartSession opens a learning session. At most one session is open per
// enrollment: a short redis lock serializes concurrent starts, and when an
// open session already exists it is returned as-is instead of erroring, so
// double-clicks and reconnects are harmless.
func (s *ProgressService) StartSession(ctx context.Context, userID, courseID uint, input StartSessionInput) (*model.LearningSession, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}

	lockKey := fmt.Sprintf("session:start:%d", enrollment.ID)
	acquired, err := s.rdb.SetNX(ctx, lockKey, 1, sessionStartLockTTL).Result()
	if err != nil {
		// Redis being down should not stop learning; fall through and let
		// the open-session check absorb most races.
		logger.Log.Warn("session start lock unavailable", zap.Error(err))
		acquired = true
	}
	if !acquired {
		return nil, util.ErrSessionStartRacing
	}
	defer s.rdb.Del(ctx, lockKey)

	if open, ferr := s.sessionRepo.FindOpenByEnrollment(enrollment.ID); ferr == nil {
		return open, nil
	} else if !errors.Is(ferr, gorm.ErrRecordNotFound) {
		return nil, ferr
	}

	session := &model.LearningSession{
		EnrollmentID: enrollment.ID,
		UserID:       userID,
		CourseID:     courseID,
		SectionID:    input.SectionID,
		TopicID:      input.TopicID,
		StartTime:    time.Now(),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession closes the enrollment's open session and credits its time.
// Duration is whole elapsed minutes rounded down, so a 59 second session
// credits zero but still counts for the streak.
func (s *ProgressService) EndSession(userID, courseID uint) (*model.LearningSession, *model.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrNotEnrolled
		}
		return nil, nil, err
	}

	session, err := s.sessionRepo.FindOpenByEnrollment(enrollment.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrNoOpenSession
		}
		return nil, nil, err
	}

	now := time.Now()
	minutes := int(now.Sub(session.StartTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	session.EndTime = &now
	session.DurationMinutes = minutes

	course, err := s.courseRepo.FindByID(courseID)
	if err != nil {
		return nil, nil, err
	}

	var eligibleNow bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		applyStreak(enrollment, now)
		enrollment.TotalLearningMinutes += minutes
		if err := tx.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
			Updates(map[string]interface{}{
				"total_learning_minutes": enrollment.TotalLearningMinutes,
				"current_streak":         enrollment.CurrentStreak,
				"longest_streak":         enrollment.LongestStreak,
				"last_learning_date":     enrollment.LastLearningDate,
			}).Error; err != nil {
			return err
		}

		var terr error
		_, eligibleNow, terr = recomputeEnrollmentTx(tx, enrollment, course)
		return terr
	})
	if err != nil {
		return nil, nil, err
	}

	s.notify(userID, course, false, eligibleNow)
	return session, enrollment, nil
}

// applyStreak advances the daily streak using local calendar days: a second
// session on the same day changes nothing, a consecutive day adds one, any
// gap resets to one. LongestStreak only ever grows.
func applyStreak(e *model.Enrollment, now time.Time) {
	today := truncateToDay(now)
	switch {
	case e.LastLearningDate == nil:
		e.CurrentStreak = 1
	case truncateToDay(*e.LastLearningDate).Equal(today):
		// Same day, streak unchanged.
	case truncateToDay(*e.LastLearningDate).AddDate(0, 0, 1).Equal(today):
		e.CurrentStreak++
	default:
		e.CurrentStreak = 1
	}
	if e.CurrentStreak > e.LongestStreak {
		e.LongestStreak = e.CurrentStreak
	}
	e.LastLearningDate = &today
}

func truncateToDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// SweepStaleSessions force-closes sessions left open past maxOpen, crediting
// at most maxOpen of time. Runs from the cron scheduler.
func (s *ProgressService) SweepStaleSessions(maxOpen time.Duration) {
	cutoff := time.Now().Add(-maxOpen)
	sessions, err := s.sessionRepo.ListStaleOpen(cutoff)
	if err != nil {
		logger.Log.Error("stale session sweep failed", zap.Error(err))
		return
	}
	for i := range sessions {
		session := &sessions[i]
		end := session.StartTime.Add(maxOpen)
		session.EndTime = &end
		session.DurationMinutes = int(maxOpen.Minutes())

		enrollment, err := s.enrollmentRepo.FindByID(session.EnrollmentID)
		if err != nil {
			logger.Log.Warn("stale session without enrollment",
				zap.Uint("sessionId", session.ID), zap.Error(err))
			continue
		}
		course, err := s.courseRepo.FindByID(session.CourseID)
		if err != nil {
			continue
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(session).Error; err != nil {
				return err
			}
			applyStreak(enrollment, session.StartTime)
			enrollment.TotalLearningMinutes += session.DurationMinutes
			if err := tx.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
				Updates(map[string]interface{}{
					"total_learning_minutes": enrollment.TotalLearningMinutes,
					"current_streak":         enrollment.CurrentStreak,
					"longest_streak":         enrollment.LongestStreak,
					"last_learning_date":     enrollment.LastLearningDate,
				}).Error; err != nil {
				return err
			}
			_, _, terr := recomputeEnrollmentTx(tx, enrollment, course)
			return terr
		})
		if err != nil {
			logger.Log.Error("closing stale session failed",
				zap.Uint("sessionId", session.ID), zap.Error(err))
		}
	}
	if len(sessions) > 0 {
		logger.Log.Info("closed stale learning sessions", zap.Int("count", len(sessions)))
	}
}

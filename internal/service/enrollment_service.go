package service

import (
	"errors"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"
	"chainacademy_backend/pkg/mailer"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	enrollmentRepo *repository.EnrollmentRepository
	courseRepo     *repository.CourseRepository
	progressRepo   *repository.SectionProgressRepository
	attemptRepo    *repository.AttemptRepository
	userRepo       *repository.UserRepository
	mailer         *mailer.Mailer
}

func NewEnrollmentService(
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	progressRepo *repository.SectionProgressRepository,
	attemptRepo *repository.AttemptRepository,
	userRepo *repository.UserRepository,
	m *mailer.Mailer,
) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		progressRepo:   progressRepo,
		attemptRepo:    attemptRepo,
		userRepo:       userRepo,
		mailer:         m,
	}
}

type EnrollInput struct {
	PaymentTxHash   string  `json:"paymentTxHash"`
	StakedAmountEth float64 `json:"stakedAmountEth" binding:"min=0"`
}

// Enroll creates the enrollment and unlocks the first section. DurationDays
// fixes the course end date at enroll time; the deadline never moves.
func (s *EnrollmentService) Enroll(userID, courseID uint, input EnrollInput) (*model.Enrollment, error) {
	course, err := s.courseRepo.FindByIDWithSections(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.Published {
		return nil, util.ErrCourseNotPublished
	}

	if _, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID); err == nil {
		return nil, util.ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		UserID:          userID,
		CourseID:        courseID,
		PaymentTxHash:   input.PaymentTxHash,
		StakedAmountEth: input.StakedAmountEth,
	}
	if course.DurationDays > 0 {
		end := time.Now().AddDate(0, 0, course.DurationDays)
		enrollment.CourseEndDate = &end
	}

	if err := s.enrollmentRepo.Create(enrollment); err != nil {
		// Unique index on (user_id, course_id) closes the race between
		// the existence check above and this insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}

	if len(course.Sections) > 0 {
		first := course.Sections[0]
		for _, sec := range course.Sections {
			if sec.Order < first.Order {
				first = sec
			}
		}
		if err := s.progressRepo.UpsertUnlocked(userID, first.ID, courseID); err != nil {
			return nil, err
		}
	}

	if user, uerr := s.userRepo.FindByID(userID); uerr == nil {
		s.mailer.SendEnrollmentEmail(user.Email, user.Name, course.Title, input.StakedAmountEth)
	}

	enrollment.Course = course
	return enrollment, nil
}

func (s *EnrollmentService) ListByUser(userID uint) ([]model.Enrollment, error) {
	return s.enrollmentRepo.ListByUser(userID)
}

func (s *EnrollmentService) GetEnrollment(userID, courseID uint) (*model.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	return enrollment, nil
}

// SectionAccess is a section joined with the learner's derived access state.
type SectionAccess struct {
	Section    model.Section `json:"section"`
	Accessible bool          `json:"accessible"`
	Completed  bool          `json:"completed"`
}

// SectionAccessList derives per-section access at read time. A section is
// accessible when it is the first, has its own unlocked or completed row,
// or the previous section grants it: a test-gated predecessor grants by a
// passing attempt on its test, an ungated one by its unlocked row. Completed
// implies accessible regardless of position, so reordering sections never
// revokes finished work.
func (s *EnrollmentService) SectionAccessList(userID, courseID uint) ([]SectionAccess, error) {
	if _, err := s.GetEnrollment(userID, courseID); err != nil {
		return nil, err
	}

	sections, err := s.courseRepo.SectionsByCourse(courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]model.UserSectionProgress, len(rows))
	for _, row := range rows {
		byID[row.SectionID] = row
	}

	out := make([]SectionAccess, 0, len(sections))
	for i, sec := range sections {
		row, ok := byID[sec.ID]
		completed := ok && row.Completed
		accessible := i == 0 || (ok && row.Unlocked) || completed
		if !accessible {
			accessible, err = s.prevSectionGrants(userID, sections[i-1], byID)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, SectionAccess{
			Section:    sec,
			Accessible: accessible,
			Completed:  completed,
		})
	}
	return out, nil
}

// prevSectionGrants reports whether finishing the previous section opens the
// next one. The stored completed row is a cache of the same fact; the passing
// attempt is the authority for test-gated sections.
func (s *EnrollmentService) prevSectionGrants(userID uint, prev model.Section, byID map[uint]model.UserSectionProgress) (bool, error) {
	row, ok := byID[prev.ID]
	if ok && row.Completed {
		return true, nil
	}
	if prev.RequireTest && prev.Test != nil {
		return s.attemptRepo.HasPassingAttempt(userID, prev.Test.ID)
	}
	return ok && row.Unlocked, nil
}

// CanAccessSection answers the gate for section content and test start.
func (s *EnrollmentService) CanAccessSection(userID, sectionID uint) (bool, error) {
	section, err := s.courseRepo.FindSectionByID(sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, util.ErrSectionNotFound
		}
		return false, err
	}

	access, err := s.SectionAccessList(userID, section.CourseID)
	if err != nil {
		return false, err
	}
	for _, a := range access {
		if a.Section.ID == sectionID {
			return a.Accessible, nil
		}
	}
	return false, nil
}

// UnlockSectionForUser grants access outside the test-gated chain, for
// support cases where a learner is stuck. The grant is monotonic: an
// already-unlocked or completed row is left untouched.
func (s *EnrollmentService) UnlockSectionForUser(userID, sectionID uint) error {
	section, err := s.courseRepo.FindSectionByID(sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrSectionNotFound
		}
		return err
	}
	if _, err := s.enrollmentRepo.FindByUserAndCourse(userID, section.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		}
		return err
	}
	return s.progressRepo.UpsertUnlocked(userID, section.ID, section.CourseID)
}

// SectionContent gates the section body behind the access check.
func (s *EnrollmentService) SectionContent(userID, sectionID uint) (*model.Section, error) {
	ok, err := s.CanAccessSection(userID, sectionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrSectionLocked
	}
	return s.courseRepo.FindSectionByID(sectionID)
}

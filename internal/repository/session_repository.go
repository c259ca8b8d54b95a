package repository

import (
	"chainacademy_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(s *model.LearningSession) error {
	return r.DB.Create(s).Error
}

func (r *SessionRepository) FindByID(id uint) (*model.LearningSession, error) {
	var s model.LearningSession
	err := r.DB.First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpenByEnrollment returns the enrollment's open session, if any.
func (r *SessionRepository) FindOpenByEnrollment(enrollmentID uint) (*model.LearningSession, error) {
	var s model.LearningSession
	err := r.DB.Where("enrollment_id = ? AND end_time IS NULL", enrollmentID).
		Order("start_time desc").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Update(s *model.LearningSession) error {
	return r.DB.Save(s).Error
}

// ListStaleOpen finds sessions still open past the cutoff, for the sweeper.
func (r *SessionRepository) ListStaleOpen(cutoff time.Time) ([]model.LearningSession, error) {
	var sessions []model.LearningSession
	err := r.DB.Where("end_time IS NULL AND start_time < ?", cutoff).Find(&sessions).Error
	return sessions, err
}

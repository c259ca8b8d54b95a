package repository

import (
	"chainacademy_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).
		Preload("Course").
		Order("created_at desc").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) Update(e *model.Enrollment) error {
	return r.DB.Save(e).Error
}

// MarkRefundEligible only ever flips the flag from false to true. A later
// recompute with worse numbers must not clear it: the staking contract may
// have acted on the earlier signal.
func (r *EnrollmentRepository) MarkRefundEligible(enrollmentID uint) (int64, error) {
	return MarkRefundEligibleTx(r.DB, enrollmentID)
}

// MarkRefundEligibleTx reports how many rows flipped so callers can tell a
// fresh grant from a replay.
func MarkRefundEligibleTx(tx *gorm.DB, enrollmentID uint) (int64, error) {
	res := tx.Model(&model.Enrollment{}).
		Where("id = ? AND refund_eligible = ?", enrollmentID, false).
		Update("refund_eligible", true)
	return res.RowsAffected, res.Error
}

func (r *EnrollmentRepository) SetRefundClaimed(enrollmentID uint, txHash string) error {
	return r.DB.Model(&model.Enrollment{}).
		Where("id = ?", enrollmentID).
		Updates(map[string]interface{}{
			"refund_claimed":       true,
			"refund_claim_tx_hash": txHash,
		}).Error
}

package repository

import (
	"chainacademy_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SectionProgressRepository struct {
	DB *gorm.DB
}

func NewSectionProgressRepository(db *gorm.DB) *SectionProgressRepository {
	return &SectionProgressRepository{DB: db}
}

func (r *SectionProgressRepository) FindByUserAndSection(userID, sectionID uint) (*model.UserSectionProgress, error) {
	var p model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND section_id = ?", userID, sectionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SectionProgressRepository) ListByUserAndCourse(userID, courseID uint) ([]model.UserSectionProgress, error) {
	var rows []model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&rows).Error
	return rows, err
}

func (r *SectionProgressRepository) CountCompleted(userID, courseID uint) (int64, error) {
	return CountCompletedTx(r.DB, userID, courseID)
}

func CountCompletedTx(tx *gorm.DB, userID, courseID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.UserSectionProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}

// UpsertUnlocked creates or updates the (user, section) row with
// unlocked=true. The unique index makes concurrent submits collapse into one
// row, and the assignment never touches completed, so a completed section is
// never regressed.
func (r *SectionProgressRepository) UpsertUnlocked(userID, sectionID, courseID uint) error {
	return UpsertUnlockedTx(r.DB, userID, sectionID, courseID)
}

func UpsertUnlockedTx(tx *gorm.DB, userID, sectionID, courseID uint) error {
	row := model.UserSectionProgress{
		UserID:    userID,
		SectionID: sectionID,
		CourseID:  courseID,
		Unlocked:  true,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "section_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"unlocked": true}),
	}).Create(&row).Error
}

// UpsertCompleted marks the section completed (and unlocked). CompletedAt is
// only set the first time; replays keep the original timestamp.
func UpsertCompletedTx(tx *gorm.DB, userID, sectionID, courseID uint, at time.Time) error {
	row := model.UserSectionProgress{
		UserID:      userID,
		SectionID:   sectionID,
		CourseID:    courseID,
		Unlocked:    true,
		Completed:   true,
		CompletedAt: &at,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "section_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"unlocked":     true,
			"completed":    true,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
		}),
	}).Create(&row).Error
}

package repository

import (
	"chainacademy_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(a *model.UserTestAttempt) error {
	return r.DB.Create(a).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.UserTestAttempt, error) {
	var a model.UserTestAttempt
	err := r.DB.First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListByUserAndTest(userID uint, testID string) ([]model.UserTestAttempt, error) {
	var attempts []model.UserTestAttempt
	err := r.DB.Where("user_id = ? AND test_id = ?", userID, testID).
		Order("completed_at desc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) HasPassingAttempt(userID uint, testID string) (bool, error) {
	return HasPassingAttemptTx(r.DB, userID, testID)
}

func HasPassingAttemptTx(tx *gorm.DB, userID uint, testID string) (bool, error) {
	var count int64
	err := tx.Model(&model.UserTestAttempt{}).
		Where("user_id = ? AND test_id = ? AND passed = ?", userID, testID, true).
		Count(&count).Error
	return count > 0, err
}

// BestScores returns the highest attempt score per test for the given tests.
// Tests the user never attempted are absent from the map.
func (r *AttemptRepository) BestScores(userID uint, testIDs []string) (map[string]int, error) {
	return BestScoresTx(r.DB, userID, testIDs)
}

func BestScoresTx(tx *gorm.DB, userID uint, testIDs []string) (map[string]int, error) {
	best := make(map[string]int)
	if len(testIDs) == 0 {
		return best, nil
	}

	type row struct {
		TestID string
		Best   int
	}
	var rows []row
	err := tx.Model(&model.UserTestAttempt{}).
		Select("test_id, MAX(score) as best").
		Where("user_id = ? AND test_id IN ?", userID, testIDs).
		Group("test_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		best[r.TestID] = r.Best
	}
	return best, nil
}

// ListByTest is the admin view, one row per submission with the learner's
// name and email joined in.
func (r *AttemptRepository) ListByTest(testID string, page, limit int) ([]map[string]interface{}, int64, error) {
	query := r.DB.Table("user_test_attempts a").
		Select("a.id, a.user_id, a.score, a.passed, a.completed_at, u.name as user_name, u.email as user_email").
		Joins("JOIN users u ON a.user_id = u.id").
		Where("a.test_id = ? AND a.deleted_at IS NULL", testID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []map[string]interface{}
	offset := (page - 1) * limit
	err := query.Order("a.completed_at desc").Offset(offset).Limit(limit).Scan(&results).Error
	return results, total, err
}

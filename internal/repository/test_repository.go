package repository

import (
	"chainacademy_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

// FindByID loads a test with questions and answers in display order.
func (r *TestRepository) FindByID(id string) (*model.Test, error) {
	var test model.Test
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.`order` asc")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.`order` asc")
		}).
		First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) FindBySectionID(sectionID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, "section_id = ?", sectionID).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []string
		if err := tx.Model(&model.Question{}).Where("test_id = ?", id).
			Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.Answer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Test{}, "id = ?", id).Error
	})
}

// TestIDsByCourse resolves every test belonging to the course's sections.
func (r *TestRepository) TestIDsByCourse(courseID uint) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.Test{}).
		Joins("JOIN sections ON sections.id = tests.section_id").
		Where("sections.course_id = ? AND sections.deleted_at IS NULL", courseID).
		Pluck("tests.id", &ids).Error
	return ids, err
}

func (r *TestRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *TestRepository) FindQuestionByID(id string) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("answers.order asc")
	}).First(&q, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *TestRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *TestRepository) DeleteQuestion(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, "id = ?", id).Error
	})
}

func (r *TestRepository) CreateAnswer(a *model.Answer) error {
	return r.DB.Create(a).Error
}

func (r *TestRepository) FindAnswerByID(id string) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *TestRepository) UpdateAnswer(a *model.Answer) error {
	return r.DB.Save(a).Error
}

func (r *TestRepository) DeleteAnswer(id string) error {
	return r.DB.Delete(&model.Answer{}, "id = ?", id).Error
}

package repository

import (
	"chainacademy_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDWithSections loads the course with its sections in order; tests are
// attached without questions, which list screens do not need.
func (r *CourseRepository) FindByIDWithSections(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.`order` asc")
		}).
		Preload("Sections.Test").
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var sectionIDs []uint
		if err := tx.Model(&model.Section{}).Where("course_id = ?", id).
			Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			if err := tx.Where("section_id IN ?", sectionIDs).Delete(&model.Test{}).Error; err != nil {
				return err
			}
			if err := tx.Where("course_id = ?", id).Delete(&model.Section{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

func (r *CourseRepository) ListPublished(page, limit int) ([]model.Course, int64, error) {
	var total int64
	query := r.DB.Model(&model.Course{}).Where("published = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) ListAll(page, limit int) ([]model.Course, int64, error) {
	var total int64
	if err := r.DB.Model(&model.Course{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	offset := (page - 1) * limit
	err := r.DB.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

// PublishDue flips every course whose scheduled publish time has passed and
// returns how many were published.
func (r *CourseRepository) PublishDue(now time.Time) (int64, error) {
	res := r.DB.Model(&model.Course{}).
		Where("published = ? AND scheduled_publish_at IS NOT NULL AND scheduled_publish_at <= ?", false, now).
		Updates(map[string]interface{}{"published": true, "scheduled_publish_at": nil})
	return res.RowsAffected, res.Error
}

func (r *CourseRepository) CreateSection(section *model.Section) error {
	return r.DB.Create(section).Error
}

func (r *CourseRepository) FindSectionByID(id uint) (*model.Section, error) {
	var section model.Section
	err := r.DB.First(&section, id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *CourseRepository) UpdateSection(section *model.Section) error {
	return r.DB.Save(section).Error
}

func (r *CourseRepository) DeleteSection(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ?", id).Delete(&model.Test{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Section{}, id).Error
	})
}

// SectionsByCourse returns the course's sections ordered by their position,
// each with its test so callers can resolve the unlock gate.
func (r *CourseRepository) SectionsByCourse(courseID uint) ([]model.Section, error) {
	var sections []model.Section
	err := r.DB.Preload("Test").Where("course_id = ?", courseID).
		Order("`order` asc").Find(&sections).Error
	return sections, err
}

func (r *CourseRepository) CountSections(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Section{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

package model

import "time"

// UserSectionProgress tracks the stored unlock state per (user, section).
// Rows are created by enrollment (section 0) and by passing test attempts;
// unlock state is monotonic, a section is never re-locked. For sections
// without a test the stored flag is an index only; accessibility is derived
// at read time.
// swagger:model UserSectionProgress
type UserSectionProgress struct {
	BaseModel
	UserID    uint `gorm:"not null;uniqueIndex:idx_user_section" json:"userId"`
	SectionID uint `gorm:"not null;uniqueIndex:idx_user_section" json:"sectionId"`
	CourseID  uint `gorm:"index;not null" json:"courseId"`

	Unlocked    bool       `gorm:"default:false" json:"unlocked"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (UserSectionProgress) TableName() string {
	return "user_section_progresses"
}

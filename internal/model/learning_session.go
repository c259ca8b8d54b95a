package model

import "time"

// LearningSession is one timed study window. At most one session per
// enrollment may be open (EndTime null) at a time; the start path enforces
// that with a redis lock on top of the idempotent open-session lookup.
// swagger:model LearningSession
type LearningSession struct {
	BaseModel
	EnrollmentID uint  `gorm:"index;not null" json:"enrollmentId"`
	UserID       uint  `gorm:"index;not null" json:"userId"`
	CourseID     uint  `gorm:"index;not null" json:"courseId"`
	SectionID    *uint `json:"sectionId,omitempty"`
	TopicID      *uint `json:"topicId,omitempty"`

	StartTime       time.Time  `gorm:"not null" json:"startTime"`
	EndTime         *time.Time `gorm:"index" json:"endTime"`
	DurationMinutes int        `gorm:"default:0" json:"durationMinutes"`
}

func (LearningSession) TableName() string {
	return "learning_sessions"
}

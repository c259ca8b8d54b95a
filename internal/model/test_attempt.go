package model

import "time"

// AttemptAnswerDetail records how one question was graded, kept for the
// review screen.
type AttemptAnswerDetail struct {
	UserAnswers    []string `json:"userAnswers"`
	CorrectAnswers []string `json:"correctAnswers"`
	IsCorrect      bool     `json:"isCorrect"`
	EarnedPoints   int      `json:"earnedPoints"`
}

// AttemptAnswers maps questionID to its grading detail.
type AttemptAnswers map[string]AttemptAnswerDetail

// UserTestAttempt is one immutable grading pass. Retakes create new rows;
// nothing updates an attempt after creation.
// swagger:model UserTestAttempt
type UserTestAttempt struct {
	UUIDBase
	UserID    uint   `gorm:"index:idx_user_test;not null" json:"userId"`
	TestID    string `gorm:"index:idx_user_test;type:varchar(36);not null" json:"testId"`
	CourseID  uint   `gorm:"index;not null" json:"courseId"`
	SectionID uint   `gorm:"index;not null" json:"sectionId"`

	Score  int  `gorm:"not null" json:"score"` // 0-100
	Passed bool `gorm:"not null" json:"passed"`

	Answers     AttemptAnswers `gorm:"serializer:json" json:"answers"`
	CompletedAt time.Time      `gorm:"not null" json:"completedAt"`
}

func (UserTestAttempt) TableName() string {
	return "user_test_attempts"
}

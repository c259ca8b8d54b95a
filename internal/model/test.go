package model

// Test belongs to exactly one section. PassingScore is a percentage (0-100).
// swagger:model Test
type Test struct {
	UUIDBase
	SectionID    uint   `gorm:"uniqueIndex;not null" json:"sectionId"`
	Title        string `gorm:"size:200" json:"title"`
	PassingScore int    `gorm:"not null;default:70" json:"passingScore"`
	TimeLimit    int    `gorm:"default:0" json:"timeLimit"` // minutes, 0 = unlimited

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// swagger:model Question
type Question struct {
	UUIDBase
	TestID  string `gorm:"index;type:varchar(36);not null" json:"testId"`
	Content string `gorm:"type:text;not null" json:"content"`
	Points  int    `gorm:"not null;default:1" json:"points"`
	Order   int    `gorm:"not null" json:"order"`

	Answers []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Answer is one selectable option. A question may flag zero, one, or several
// answers correct; grading requires the submitted set to match exactly.
// swagger:model Answer
type Answer struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
	Order      int    `gorm:"not null" json:"order"`
}

func (Answer) TableName() string {
	return "answers"
}

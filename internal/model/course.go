package model

import "time"

// Course is the unit of sale: either free, bought outright, or entered via a
// stake deposited into the staking contract.
// swagger:model Course
type Course struct {
	BaseModel
	Title              string     `gorm:"size:200;not null" json:"title"`
	Slug               string     `gorm:"size:200;uniqueIndex" json:"slug"`
	Description        string     `gorm:"type:text" json:"description"`
	CoverURL           string     `gorm:"size:255" json:"coverUrl"`
	Published          bool       `gorm:"default:false;index" json:"published"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt"`

	PriceEth       float64 `gorm:"default:0" json:"priceEth"`
	StakeAmountEth float64 `gorm:"default:0" json:"stakeAmountEth"`

	// Stake-refund requirement thresholds. Zero means the track is not
	// configured for this course.
	RequiredCompletion   int `gorm:"default:0" json:"requiredCompletion"`
	RequiredTestAverage  int `gorm:"default:0" json:"requiredTestAverage"`
	DurationDays         int `gorm:"default:0" json:"durationDays"`
	DailyLearningMinutes int `gorm:"default:0" json:"dailyLearningMinutes"`

	Sections []Section `gorm:"foreignKey:CourseID" json:"sections,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Section is an ordered content grouping within a course, optionally gated by
// a test. Order is zero-based within the course.
// swagger:model Section
type Section struct {
	BaseModel
	CourseID    uint   `gorm:"index;not null" json:"courseId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Order       int    `gorm:"not null;index:idx_course_order" json:"order"`
	Content     string `gorm:"type:longtext" json:"content,omitempty"`
	RequireTest bool   `gorm:"default:false" json:"requireTest"`

	Test *Test `gorm:"foreignKey:SectionID" json:"test,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}

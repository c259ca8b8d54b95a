package model

import "time"

// Enrollment anchors all of a learner's progress state in one course.
// Progress, CompletionPercentage and TestAverage are derived columns,
// recomputed from section progress and attempts, never hand-edited.
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID   uint `gorm:"not null;uniqueIndex:idx_user_course" json:"userId"`
	CourseID uint `gorm:"not null;uniqueIndex:idx_user_course" json:"courseId"`

	PaymentTxHash string `gorm:"size:66" json:"paymentTxHash,omitempty"`

	Progress             int        `gorm:"default:0" json:"progress"` // 0-100
	Completed            bool       `gorm:"default:false" json:"completed"`
	TotalLearningMinutes int        `gorm:"default:0" json:"totalLearningMinutes"`
	CurrentStreak        int        `gorm:"default:0" json:"currentStreak"`
	LongestStreak        int        `gorm:"default:0" json:"longestStreak"`
	LastLearningDate     *time.Time `json:"lastLearningDate"`

	// Stake-to-learn fields. RefundEligible is set-only: once true it stays
	// true, the contract may already have acted on the signal.
	CompletionPercentage int        `gorm:"default:0" json:"completionPercentage"`
	TestAverage          float64    `gorm:"default:0" json:"testAverage"`
	StakedAmountEth      float64    `gorm:"default:0" json:"stakedAmountEth"`
	RefundEligible       bool       `gorm:"default:false" json:"refundEligible"`
	RefundClaimed        bool       `gorm:"default:false" json:"refundClaimed"`
	RefundClaimTxHash    string     `gorm:"size:66" json:"refundClaimTxHash,omitempty"`
	AdminClaimed         bool       `gorm:"default:false" json:"adminClaimed"`
	CourseEndDate        *time.Time `json:"courseEndDate"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

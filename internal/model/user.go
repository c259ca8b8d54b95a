package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name          string    `gorm:"size:100;not null" json:"name"`
	Email         string    `gorm:"size:100;unique;not null" json:"email"`
	Password      string    `gorm:"size:100;not null" json:"-"`
	Role          UserRole  `gorm:"size:20;default:'student'" json:"role"`
	WalletAddress string    `gorm:"size:42;index" json:"walletAddress"` // 0x-prefixed, recorded at wallet connect
	Disabled      bool      `gorm:"default:false" json:"disabled"`
	LastLogin     time.Time `json:"lastLogin"`
	LastSeen      time.Time `json:"lastSeen"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if u.LastLogin.IsZero() {
		u.LastLogin = now
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = now
	}
	return
}

func (User) TableName() string {
	return "users"
}

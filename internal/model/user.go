package model

import (
	"errors"
	"time"
)

// 用户角色
const (
	RoleAdmin        = "admin"        // 管理员
	RoleFarmOwner    = "farmOwner"    // 养殖场主
	RoleLabAssistant = "labAssistant" // 实验室质检员
	RoleReceiver     = "receiver"     // 目的地收货方
)

// User 用户数据模型
type User struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username     string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	FullName     string     `gorm:"type:varchar(100)" json:"full_name"`
	Role         string     `gorm:"type:varchar(16);not null;index" json:"role"`
	LaboratoryID *uint      `gorm:"index" json:"laboratory_id,omitempty"` // 仅 labAssistant 关联实验室
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user ID is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	switch u.Role {
	case RoleAdmin, RoleFarmOwner, RoleLabAssistant, RoleReceiver:
	default:
		return errors.New("unknown user role: " + u.Role)
	}
	return nil
}

// DisplayName 返回用户显示名称,优先使用全名
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

package model

import "time"

// SysUser 系统用户（操作员账号）
type SysUser struct {
	BaseModel

	// 基础信息
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // 哈希密码
	Email    string `gorm:"size:100"`

	// 系统级角色: admin (管理员), operator (操作员)
	Role string `gorm:"size:20;default:'operator'"`

	IsActive    bool `gorm:"default:true"`
	LastLoginAt *time.Time
}

func (SysUser) TableName() string {
	return "sys_users"
}

// ==================== 角色常量 ====================

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

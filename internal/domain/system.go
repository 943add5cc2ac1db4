package domain

import (
	"time"
)

const (
	RoleAdmin       = "admin"
	RoleStorekeeper = "storekeeper"
)

// SysUser is an operator account of the warehouse
type SysUser struct {
	ID        int64     `json:"id,string" form:"id"`
	Username  string    `gorm:"size:50;not null;uniqueIndex" json:"username" form:"username"`
	Password  string    `gorm:"size:120;not null" json:"-" form:"-"`
	Role      string    `gorm:"size:20;not null;default:storekeeper" json:"role" form:"role"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysUser) TableName() string {
	return "sys_user"
}

// SysOprLog is the audit trail of operator actions
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}

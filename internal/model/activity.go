package model

import (
	"errors"
	"time"
)

// 活动类型
const (
	ActivitySeeding         = "SEEDING"          // 投苗
	ActivityHarvest         = "HARVEST"          // 收获
	ActivityBatchRegistered = "BATCH_REGISTERED" // 批次登记入系统
	ActivityLabTest         = "LAB_TEST"         // 实验室检测
	ActivityReadyForExport  = "READY_FOR_EXPORT" // 批次可出口
	ActivityExported        = "EXPORTED"         // 已出口
	ActivityReceived        = "RECEIVED"         // 目的地已接收
	ActivityOther           = "OTHER"            // 其他手动记录
)

// ActivityKinds 全部合法活动类型
var ActivityKinds = []string{
	ActivitySeeding,
	ActivityHarvest,
	ActivityBatchRegistered,
	ActivityLabTest,
	ActivityReadyForExport,
	ActivityExported,
	ActivityReceived,
	ActivityOther,
}

// Activity 批次溯源时间线上的一条不可变事件记录,只追加不修改,
// 仅随批次级联删除;时间线按 (事件日期, 创建时间) 排序展示
type Activity struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BatchCode string    `gorm:"type:varchar(50);not null;index" json:"batch_code"`
	Date      time.Time `gorm:"type:date;not null" json:"date"` // 事件发生日期
	Kind      string    `gorm:"type:varchar(20);not null;index" json:"kind"`
	Location  string    `gorm:"type:varchar(200);not null" json:"location"`
	Actor     string    `gorm:"type:varchar(100);not null" json:"actor"` // 养殖场/工厂/快递/实验室等名称
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}

// Validate 验证活动模型
func (a *Activity) Validate() error {
	if a.ID == "" {
		return errors.New("activity ID is required")
	}
	if a.BatchCode == "" {
		return errors.New("batch code is required")
	}
	if a.Date.IsZero() {
		return errors.New("activity date is required")
	}
	if !IsValidActivityKind(a.Kind) {
		return errors.New("unknown activity kind: " + a.Kind)
	}
	return nil
}

// IsValidActivityKind 判断活动类型是否合法
func IsValidActivityKind(kind string) bool {
	for _, k := range ActivityKinds {
		if k == kind {
			return true
		}
	}
	return false
}

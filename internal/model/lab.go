package model

import (
	"errors"
	"time"
)

// 检测结论
const (
	ConclusionSafe    = "SAFE"    // 安全
	ConclusionProblem = "PROBLEM" // 有问题
)

// Laboratory 实验室参考数据模型
type Laboratory struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CityID *uint  `gorm:"index" json:"city_id,omitempty"`
	City   *City  `json:"city,omitempty"`
}

// TableName 指定表名
func (Laboratory) TableName() string {
	return "laboratories"
}

// Validate 验证实验室模型
func (l *Laboratory) Validate() error {
	if l.Name == "" {
		return errors.New("laboratory name is required")
	}
	return nil
}

// LabTest 实验室检测记录,与批次严格 1:1,创建后不可替换。
// SafetyThreshold 在提交时由商品配置解析得出并固化在记录上
type LabTest struct {
	ID              string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BatchCode       string      `gorm:"type:varchar(50);not null;uniqueIndex" json:"batch_code"`
	Reading         float64     `gorm:"not null" json:"reading"` // Cs-137 检测值(Bq/kg)
	SafetyThreshold *float64    `json:"safety_threshold,omitempty"`
	Conclusion      string      `gorm:"type:varchar(20);not null" json:"conclusion"`
	TestDate        time.Time   `gorm:"type:date;not null;index" json:"test_date"`
	QCUserID        string      `gorm:"type:varchar(64);not null;index" json:"qc_user_id"`
	QCUser          *User       `gorm:"foreignKey:QCUserID" json:"qc_user,omitempty"`
	LaboratoryID    *uint       `gorm:"index" json:"laboratory_id,omitempty"`
	Laboratory      *Laboratory `json:"laboratory,omitempty"`
	CreatedAt       time.Time   `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (LabTest) TableName() string {
	return "lab_tests"
}

// Validate 验证检测记录模型
func (t *LabTest) Validate() error {
	if t.ID == "" {
		return errors.New("lab test ID is required")
	}
	if t.BatchCode == "" {
		return errors.New("batch code is required")
	}
	if t.Reading < 0 {
		return errors.New("reading must not be negative")
	}
	switch t.Conclusion {
	case ConclusionSafe, ConclusionProblem:
	default:
		return errors.New("unknown conclusion: " + t.Conclusion)
	}
	if t.TestDate.IsZero() {
		return errors.New("test date is required")
	}
	if t.QCUserID == "" {
		return errors.New("qc user is required")
	}
	return nil
}

// LabName 返回检测实验室名称,未关联实验室时回退为通用名称
func (t *LabTest) LabName() string {
	if t.Laboratory != nil && t.Laboratory.Name != "" {
		return t.Laboratory.Name
	}
	return "Laboratory"
}

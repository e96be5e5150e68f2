package model

import (
	"errors"
	"time"
)

// 批次质量状态
const (
	QualityPending = "PENDING" // 尚未有实验室检测结果
	QualitySafe    = "SAFE"    // 检测结论安全
	QualityProblem = "PROBLEM" // 检测结论有问题
)

// 批次出运状态(派生值,不落库)
const (
	ShipmentNotYetReviewed = "NOT_YET_REVIEWED" // 风险评分缺失,未经审查
	ShipmentEligible       = "ELIGIBLE"         // 风险评分 < 70,可出运
	ShipmentHeld           = "HELD"             // 风险评分 >= 70,扣留
	ShipmentShipped        = "SHIPPED"          // 已出运
)

// ShipmentRiskLimit 出运风险阈值,评分达到该值的批次被扣留
const ShipmentRiskLimit = 70

// HarvestBatch 收获批次数据模型
// 主键是人类可读的批次编码,创建时生成一次,之后不再变更;
// RiskScore 为 nil 表示尚未审查(quality_status = PENDING,无检测记录)
type HarvestBatch struct {
	Code          string     `gorm:"primaryKey;type:varchar(50)" json:"code"`
	FarmID        uint       `gorm:"not null;index" json:"farm_id"`
	Farm          *Farm      `json:"farm,omitempty"`
	CommodityID   uint       `gorm:"not null;index" json:"commodity_id"`
	Commodity     *Commodity `json:"commodity,omitempty"`
	PlantingDate  *time.Time `gorm:"type:date" json:"planting_date,omitempty"`
	HarvestDate   time.Time  `gorm:"type:date;not null;index" json:"harvest_date"`
	VolumeKG      float64    `gorm:"not null" json:"volume_kg"`
	Destination   string     `gorm:"type:varchar(100);not null" json:"destination"` // 目的国家/买方
	QualityStatus string     `gorm:"type:varchar(20);not null;default:PENDING;index" json:"quality_status"`
	RiskScore     *int       `json:"risk_score,omitempty"`
	IsShipped     bool       `gorm:"not null;default:false" json:"is_shipped"` // 单向 false -> true
	CreatedAt     time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (HarvestBatch) TableName() string {
	return "harvest_batches"
}

// Validate 验证批次模型
func (b *HarvestBatch) Validate() error {
	if b.Code == "" {
		return errors.New("batch code is required")
	}
	if b.FarmID == 0 {
		return errors.New("farm is required")
	}
	if b.CommodityID == 0 {
		return errors.New("commodity is required")
	}
	if b.HarvestDate.IsZero() {
		return errors.New("harvest date is required")
	}
	if b.VolumeKG <= 0 {
		return errors.New("volume must be positive")
	}
	if b.Destination == "" {
		return errors.New("destination is required")
	}
	switch b.QualityStatus {
	case QualityPending, QualitySafe, QualityProblem:
	default:
		return errors.New("unknown quality status: " + b.QualityStatus)
	}
	if b.RiskScore != nil && (*b.RiskScore < 0 || *b.RiskScore > 100) {
		return errors.New("batch risk score must be in [0, 100]")
	}
	return nil
}

// ShipmentStatus 由批次当前状态派生出运状态,无副作用。
// 判定顺序有意义:已出运永远优先,即便之后评分变为扣留级别
func (b *HarvestBatch) ShipmentStatus() string {
	if b.IsShipped {
		return ShipmentShipped
	}
	if b.RiskScore == nil {
		return ShipmentNotYetReviewed
	}
	if *b.RiskScore < ShipmentRiskLimit {
		return ShipmentEligible
	}
	return ShipmentHeld
}

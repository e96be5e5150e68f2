package model

import "errors"

// DefaultSafetyThreshold Cs-137 全局默认安全阈值(Bq/kg),
// 商品未单独配置阈值时使用
const DefaultSafetyThreshold = 500.0

// Commodity 商品参考数据模型,不可变
type Commodity struct {
	ID                     uint     `gorm:"primaryKey" json:"id"`
	Code                   string   `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"` // 如 "UDANG", "BANDENG"
	Name                   string   `gorm:"type:varchar(100);not null" json:"name"`
	DefaultSafetyThreshold *float64 `json:"default_safety_threshold,omitempty"` // Cs-137 安全阈值(Bq/kg)
}

// TableName 指定表名
func (Commodity) TableName() string {
	return "commodities"
}

// Validate 验证商品模型
func (c *Commodity) Validate() error {
	if c.Code == "" {
		return errors.New("commodity code is required")
	}
	if c.Name == "" {
		return errors.New("commodity name is required")
	}
	return nil
}

// ResolveThreshold 返回该商品适用的安全阈值,未配置时回退到全局默认值
func (c *Commodity) ResolveThreshold() float64 {
	if c.DefaultSafetyThreshold != nil {
		return *c.DefaultSafetyThreshold
	}
	return DefaultSafetyThreshold
}

package model

import (
	"errors"
	"time"
)

// DefaultCityCode 养殖场未配置城市编码时的批次编码前缀
const DefaultCityCode = "XXX"

// City 城市参考数据模型
type City struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Province string `gorm:"type:varchar(100);not null" json:"province"`
	Code     string `gorm:"type:varchar(8)" json:"code"` // 批次编码前缀,如 "IDM"
}

// TableName 指定表名
func (City) TableName() string {
	return "cities"
}

// Validate 验证城市模型
func (c *City) Validate() error {
	if c.Name == "" {
		return errors.New("city name is required")
	}
	if c.Province == "" {
		return errors.New("province is required")
	}
	return nil
}

// Farm 养殖场数据模型
// RiskScore 为滚动风险评分(0-100),由系统重算,不可由用户直接编辑;
// 为 nil 表示尚未计算过
type Farm struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null;index" json:"name"`
	CityID    *uint     `gorm:"index" json:"city_id,omitempty"`
	City      *City     `json:"city,omitempty"`
	OwnerID   *string   `gorm:"type:varchar(64);index" json:"owner_id,omitempty"`
	Owner     *User     `json:"owner,omitempty"`
	Location  string    `gorm:"type:varchar(100);not null" json:"location"`
	RiskScore *int      `gorm:"index" json:"risk_score,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Farm) TableName() string {
	return "farms"
}

// Validate 验证养殖场模型
func (f *Farm) Validate() error {
	if f.Name == "" {
		return errors.New("farm name is required")
	}
	if f.Location == "" {
		return errors.New("farm location is required")
	}
	if f.RiskScore != nil && (*f.RiskScore < 0 || *f.RiskScore > 100) {
		return errors.New("farm risk score must be in [0, 100]")
	}
	return nil
}

// CityCode 返回批次编码使用的城市前缀,未配置时回退到 "XXX"
func (f *Farm) CityCode() string {
	if f.City != nil && f.City.Code != "" {
		return f.City.Code
	}
	return DefaultCityCode
}

// ActorName 解析活动记录的执行者名称:场主全名 -> 用户名 -> 养殖场名称
func (f *Farm) ActorName() string {
	if f.Owner != nil {
		if name := f.Owner.DisplayName(); name != "" {
			return name
		}
	}
	return f.Name
}

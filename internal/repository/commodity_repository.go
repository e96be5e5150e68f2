package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// CommodityRepository 商品仓储接口
type CommodityRepository interface {
	Save(commodity *model.Commodity) error
	FindByID(id uint) (*model.Commodity, error)
	FindByCode(code string) (*model.Commodity, error)
	FindAll() ([]*model.Commodity, error)
}

// commodityRepository 商品仓储实现
type commodityRepository struct {
	db *gorm.DB
}

// NewCommodityRepository 创建商品仓储
func NewCommodityRepository(db *gorm.DB) CommodityRepository {
	return &commodityRepository{db: db}
}

// Save 保存商品
func (r *commodityRepository) Save(commodity *model.Commodity) error {
	return r.db.Save(commodity).Error
}

// FindByID 根据 ID 查找商品
func (r *commodityRepository) FindByID(id uint) (*model.Commodity, error) {
	var commodity model.Commodity
	if err := r.db.Where("id = ?", id).First(&commodity).Error; err != nil {
		return nil, err
	}
	return &commodity, nil
}

// FindByCode 根据编码查找商品
func (r *commodityRepository) FindByCode(code string) (*model.Commodity, error) {
	var commodity model.Commodity
	if err := r.db.Where("code = ?", code).First(&commodity).Error; err != nil {
		return nil, err
	}
	return &commodity, nil
}

// FindAll 查找所有商品
func (r *commodityRepository) FindAll() ([]*model.Commodity, error) {
	var commodities []*model.Commodity
	err := r.db.Order("code").Find(&commodities).Error
	return commodities, err
}

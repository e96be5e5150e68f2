package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// CityRepository 城市仓储接口
type CityRepository interface {
	Save(city *model.City) error
	FindByID(id uint) (*model.City, error)
	FindByName(name string) (*model.City, error)
	FindAll() ([]*model.City, error)
	Delete(id uint) error
}

// cityRepository 城市仓储实现
type cityRepository struct {
	db *gorm.DB
}

// NewCityRepository 创建城市仓储
func NewCityRepository(db *gorm.DB) CityRepository {
	return &cityRepository{db: db}
}

// Save 保存城市
func (r *cityRepository) Save(city *model.City) error {
	return r.db.Save(city).Error
}

// FindByID 根据 ID 查找城市
func (r *cityRepository) FindByID(id uint) (*model.City, error) {
	var city model.City
	if err := r.db.Where("id = ?", id).First(&city).Error; err != nil {
		return nil, err
	}
	return &city, nil
}

// FindByName 根据名称查找城市
func (r *cityRepository) FindByName(name string) (*model.City, error) {
	var city model.City
	if err := r.db.Where("name = ?", name).First(&city).Error; err != nil {
		return nil, err
	}
	return &city, nil
}

// FindAll 查找所有城市
func (r *cityRepository) FindAll() ([]*model.City, error) {
	var cities []*model.City
	err := r.db.Order("name").Find(&cities).Error
	return cities, err
}

// Delete 删除城市
func (r *cityRepository) Delete(id uint) error {
	return r.db.Delete(&model.City{}, id).Error
}

package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// FarmRepository 养殖场仓储接口
type FarmRepository interface {
	Save(farm *model.Farm) error
	FindByID(id uint) (*model.Farm, error)
	FindByName(name string) (*model.Farm, error)
	FindAll() ([]*model.Farm, error)
	FindByOwner(ownerID string) ([]*model.Farm, error)
	Delete(id uint) error
}

// farmRepository 养殖场仓储实现
type farmRepository struct {
	db *gorm.DB
}

// NewFarmRepository 创建养殖场仓储
func NewFarmRepository(db *gorm.DB) FarmRepository {
	return &farmRepository{db: db}
}

// Save 保存养殖场
func (r *farmRepository) Save(farm *model.Farm) error {
	return r.db.Save(farm).Error
}

// FindByID 根据 ID 查找养殖场,预加载城市和场主
func (r *farmRepository) FindByID(id uint) (*model.Farm, error) {
	var farm model.Farm
	if err := r.db.Preload("City").Preload("Owner").Where("id = ?", id).First(&farm).Error; err != nil {
		return nil, err
	}
	return &farm, nil
}

// FindByName 根据名称查找养殖场
func (r *farmRepository) FindByName(name string) (*model.Farm, error) {
	var farm model.Farm
	if err := r.db.Where("name = ?", name).First(&farm).Error; err != nil {
		return nil, err
	}
	return &farm, nil
}

// FindAll 查找所有养殖场
func (r *farmRepository) FindAll() ([]*model.Farm, error) {
	var farms []*model.Farm
	err := r.db.Preload("City").Preload("Owner").Order("name").Find(&farms).Error
	return farms, err
}

// FindByOwner 根据场主查找养殖场
func (r *farmRepository) FindByOwner(ownerID string) ([]*model.Farm, error) {
	var farms []*model.Farm
	err := r.db.Preload("City").Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("name").
		Find(&farms).Error
	return farms, err
}

// Delete 删除养殖场
func (r *farmRepository) Delete(id uint) error {
	return r.db.Delete(&model.Farm{}, id).Error
}

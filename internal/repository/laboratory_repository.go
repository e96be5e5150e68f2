package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// LaboratoryRepository 实验室仓储接口
type LaboratoryRepository interface {
	Save(lab *model.Laboratory) error
	FindByID(id uint) (*model.Laboratory, error)
	FindByName(name string) (*model.Laboratory, error)
	FindAll() ([]*model.Laboratory, error)
	Delete(id uint) error
}

// laboratoryRepository 实验室仓储实现
type laboratoryRepository struct {
	db *gorm.DB
}

// NewLaboratoryRepository 创建实验室仓储
func NewLaboratoryRepository(db *gorm.DB) LaboratoryRepository {
	return &laboratoryRepository{db: db}
}

// Save 保存实验室
func (r *laboratoryRepository) Save(lab *model.Laboratory) error {
	return r.db.Save(lab).Error
}

// FindByID 根据 ID 查找实验室
func (r *laboratoryRepository) FindByID(id uint) (*model.Laboratory, error) {
	var lab model.Laboratory
	if err := r.db.Preload("City").Where("id = ?", id).First(&lab).Error; err != nil {
		return nil, err
	}
	return &lab, nil
}

// FindByName 根据名称查找实验室
func (r *laboratoryRepository) FindByName(name string) (*model.Laboratory, error) {
	var lab model.Laboratory
	if err := r.db.Where("name = ?", name).First(&lab).Error; err != nil {
		return nil, err
	}
	return &lab, nil
}

// FindAll 查找所有实验室
func (r *laboratoryRepository) FindAll() ([]*model.Laboratory, error) {
	var labs []*model.Laboratory
	err := r.db.Preload("City").Order("name").Find(&labs).Error
	return labs, err
}

// Delete 删除实验室
func (r *laboratoryRepository) Delete(id uint) error {
	return r.db.Delete(&model.Laboratory{}, id).Error
}

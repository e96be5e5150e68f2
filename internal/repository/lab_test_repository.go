package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// LabTestRepository 检测记录仓储接口
type LabTestRepository interface {
	Create(test *model.LabTest) error
	FindByBatch(batchCode string) (*model.LabTest, error)
	ExistsForBatch(batchCode string) (bool, error)
	FindByQC(qcUserID string) ([]*model.LabTest, error)
}

// labTestRepository 检测记录仓储实现
type labTestRepository struct {
	db *gorm.DB
}

// NewLabTestRepository 创建检测记录仓储
func NewLabTestRepository(db *gorm.DB) LabTestRepository {
	return &labTestRepository{db: db}
}

// Create 创建检测记录,batch_code 唯一索引保证 1:1
func (r *labTestRepository) Create(test *model.LabTest) error {
	return r.db.Create(test).Error
}

// FindByBatch 查找批次的检测记录
func (r *labTestRepository) FindByBatch(batchCode string) (*model.LabTest, error) {
	var test model.LabTest
	err := r.db.Preload("Laboratory").Preload("QCUser").
		Where("batch_code = ?", batchCode).
		First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// ExistsForBatch 判断批次是否已有检测记录
func (r *labTestRepository) ExistsForBatch(batchCode string) (bool, error) {
	var count int64
	err := r.db.Model(&model.LabTest{}).
		Where("batch_code = ?", batchCode).
		Count(&count).Error
	return count > 0, err
}

// FindByQC 查找某质检员提交的全部检测记录,按检测日期倒序
func (r *labTestRepository) FindByQC(qcUserID string) ([]*model.LabTest, error) {
	var tests []*model.LabTest
	err := r.db.Preload("Laboratory").
		Where("qc_user_id = ?", qcUserID).
		Order("test_date DESC").
		Find(&tests).Error
	return tests, err
}

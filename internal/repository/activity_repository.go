package repository

import (
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// ActivityRepository 活动仓储接口,只追加不修改
type ActivityRepository interface {
	Create(activity *model.Activity) error
	FindByBatch(batchCode string) ([]*model.Activity, error)
	ExistsKind(batchCode string, kind string) (bool, error)
	CountByBatch(batchCode string) (int64, error)
}

// activityRepository 活动仓储实现
type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建活动仓储
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create 追加一条活动
func (r *activityRepository) Create(activity *model.Activity) error {
	return r.db.Create(activity).Error
}

// FindByBatch 按时间线顺序(事件日期, 创建时间)返回批次全部活动
func (r *activityRepository) FindByBatch(batchCode string) ([]*model.Activity, error) {
	var activities []*model.Activity
	err := r.db.Where("batch_code = ?", batchCode).
		Order("date, created_at").
		Find(&activities).Error
	return activities, err
}

// ExistsKind 判断批次是否已有某类型活动
func (r *activityRepository) ExistsKind(batchCode string, kind string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Activity{}).
		Where("batch_code = ? AND kind = ?", batchCode, kind).
		Count(&count).Error
	return count > 0, err
}

// CountByBatch 统计批次活动数量
func (r *activityRepository) CountByBatch(batchCode string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Activity{}).
		Where("batch_code = ?", batchCode).
		Count(&count).Error
	return count, err
}

package repository

import (
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchRepository 收获批次仓储接口
type BatchRepository interface {
	Create(batch *model.HarvestBatch) error
	Save(batch *model.HarvestBatch) error
	FindByCode(code string) (*model.HarvestBatch, error)
	FindAll() ([]*model.HarvestBatch, error)
	FindByOwner(ownerID string) ([]*model.HarvestBatch, error)
	FindPendingTest() ([]*model.HarvestBatch, error)
	FindByFarmSince(farmID uint, since time.Time) ([]*model.HarvestBatch, error)
	MaxCodeWithPrefix(prefix string) (string, error)
	Delete(code string) error
}

// batchRepository 收获批次仓储实现
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建收获批次仓储
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// Create 创建批次,批次编码冲突时返回错误。
// 只写批次本身,不级联写入预加载的关联对象
func (r *batchRepository) Create(batch *model.HarvestBatch) error {
	return r.db.Omit(clause.Associations).Create(batch).Error
}

// Save 保存批次
func (r *batchRepository) Save(batch *model.HarvestBatch) error {
	return r.db.Omit(clause.Associations).Save(batch).Error
}

// FindByCode 根据批次编码查找批次,预加载养殖场和商品
func (r *batchRepository) FindByCode(code string) (*model.HarvestBatch, error) {
	var batch model.HarvestBatch
	err := r.db.Preload("Farm").Preload("Farm.City").Preload("Farm.Owner").Preload("Commodity").
		Where("code = ?", code).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindAll 查找所有批次
func (r *batchRepository) FindAll() ([]*model.HarvestBatch, error) {
	var batches []*model.HarvestBatch
	err := r.db.Preload("Farm").Preload("Commodity").
		Order("created_at DESC").
		Find(&batches).Error
	return batches, err
}

// FindByOwner 查找某场主名下全部批次
func (r *batchRepository) FindByOwner(ownerID string) ([]*model.HarvestBatch, error) {
	var batches []*model.HarvestBatch
	err := r.db.Preload("Farm").Preload("Commodity").
		Joins("JOIN farms ON farms.id = harvest_batches.farm_id").
		Where("farms.owner_id = ?", ownerID).
		Order("harvest_batches.created_at DESC").
		Find(&batches).Error
	return batches, err
}

// FindPendingTest 查找尚无检测记录的批次,按收获日期排序
func (r *batchRepository) FindPendingTest() ([]*model.HarvestBatch, error) {
	var batches []*model.HarvestBatch
	err := r.db.Preload("Farm").Preload("Commodity").
		Where("code NOT IN (?)", r.db.Model(&model.LabTest{}).Select("batch_code")).
		Order("harvest_date").
		Find(&batches).Error
	return batches, err
}

// FindByFarmSince 查找某养殖场收获日期不早于 since 的批次
func (r *batchRepository) FindByFarmSince(farmID uint, since time.Time) ([]*model.HarvestBatch, error) {
	var batches []*model.HarvestBatch
	err := r.db.Where("farm_id = ? AND harvest_date >= ?", farmID, since).
		Find(&batches).Error
	return batches, err
}

// MaxCodeWithPrefix 返回指定前缀下字典序最大的批次编码,不存在时返回空串
func (r *batchRepository) MaxCodeWithPrefix(prefix string) (string, error) {
	var batch model.HarvestBatch
	err := r.db.Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		First(&batch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return batch.Code, nil
}

// Delete 删除批次并级联删除其活动与检测记录
func (r *batchRepository) Delete(code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_code = ?", code).Delete(&model.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("batch_code = ?", code).Delete(&model.LabTest{}).Error; err != nil {
			return err
		}
		return tx.Where("code = ?", code).Delete(&model.HarvestBatch{}).Error
	})
}

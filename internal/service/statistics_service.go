package service

import (
	"fmt"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetBatchStatisticsByQuality() ([]*BatchStatisticsByQuality, error)
	GetBatchStatisticsByFarm() ([]*BatchStatisticsByFarm, error)
	GetBatchStatisticsByTime() ([]*BatchStatisticsByTime, error)
	GetExportStatistics() (*ExportStatistics, error)
	GetOwnerStatistics(ownerID string) (*OwnerStatistics, error)
}

// BatchStatisticsByQuality 按质量状态统计
type BatchStatisticsByQuality struct {
	QualityStatus string
	Count         int64
}

// BatchStatisticsByFarm 按养殖场统计
type BatchStatisticsByFarm struct {
	FarmID   uint
	FarmName string
	Count    int64
}

// BatchStatisticsByTime 按收获日期统计
type BatchStatisticsByTime struct {
	Date  string
	Count int64
}

// ExportStatistics 出口统计
type ExportStatistics struct {
	TotalBatches    int64
	TestedBatches   int64
	ShippedBatches  int64
	HeldBatches     int64
	ProblemBatches  int64
	AverageRisk     float64
	TotalVolumeKG   float64
	ShippedVolumeKG float64
}

// OwnerStatistics 场主维度统计
type OwnerStatistics struct {
	FarmCount      int64
	BatchCount     int64
	PendingBatches int64
	ShippedBatches int64
	TotalVolumeKG  float64
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetBatchStatisticsByQuality 按质量状态统计批次
func (s *statisticsService) GetBatchStatisticsByQuality() ([]*BatchStatisticsByQuality, error) {
	var results []struct {
		QualityStatus string
		Count         int64
	}

	err := s.db.Model(&model.HarvestBatch{}).
		Select("quality_status, COUNT(*) as count").
		Group("quality_status").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get batch statistics by quality: %w", err)
	}

	stats := make([]*BatchStatisticsByQuality, 0, len(results))
	for _, r := range results {
		stats = append(stats, &BatchStatisticsByQuality{
			QualityStatus: r.QualityStatus,
			Count:         r.Count,
		})
	}

	return stats, nil
}

// GetBatchStatisticsByFarm 按养殖场统计批次
func (s *statisticsService) GetBatchStatisticsByFarm() ([]*BatchStatisticsByFarm, error) {
	var results []struct {
		FarmID uint
		Count  int64
	}

	err := s.db.Model(&model.HarvestBatch{}).
		Select("farm_id, COUNT(*) as count").
		Group("farm_id").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get batch statistics by farm: %w", err)
	}

	stats := make([]*BatchStatisticsByFarm, 0, len(results))
	for _, r := range results {
		var farm model.Farm
		name := "Unknown farm"
		if err := s.db.Where("id = ?", r.FarmID).First(&farm).Error; err == nil {
			name = farm.Name
		}
		stats = append(stats, &BatchStatisticsByFarm{
			FarmID:   r.FarmID,
			FarmName: name,
			Count:    r.Count,
		})
	}

	return stats, nil
}

// GetBatchStatisticsByTime 按收获日期统计批次
func (s *statisticsService) GetBatchStatisticsByTime() ([]*BatchStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := s.db.Model(&model.HarvestBatch{}).
		Select("DATE(harvest_date) as date, COUNT(*) as count").
		Group("DATE(harvest_date)").
		Order("date DESC").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get batch statistics by time: %w", err)
	}

	stats := make([]*BatchStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &BatchStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetExportStatistics 出口全局统计
func (s *statisticsService) GetExportStatistics() (*ExportStatistics, error) {
	stats := &ExportStatistics{}

	if err := s.db.Model(&model.HarvestBatch{}).Count(&stats.TotalBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}
	if err := s.db.Model(&model.LabTest{}).Count(&stats.TestedBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count lab tests: %w", err)
	}
	if err := s.db.Model(&model.HarvestBatch{}).
		Where("is_shipped = ?", true).
		Count(&stats.ShippedBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count shipped batches: %w", err)
	}
	if err := s.db.Model(&model.HarvestBatch{}).
		Where("is_shipped = ? AND risk_score >= ?", false, model.ShipmentRiskLimit).
		Count(&stats.HeldBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count held batches: %w", err)
	}
	if err := s.db.Model(&model.HarvestBatch{}).
		Where("quality_status = ?", model.QualityProblem).
		Count(&stats.ProblemBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count problem batches: %w", err)
	}

	var avg struct {
		Avg *float64
	}
	if err := s.db.Model(&model.HarvestBatch{}).
		Select("AVG(risk_score) as avg").
		Where("risk_score IS NOT NULL").
		Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to average risk score: %w", err)
	}
	if avg.Avg != nil {
		stats.AverageRisk = *avg.Avg
	}

	var volumes struct {
		Total   *float64
		Shipped *float64
	}
	if err := s.db.Model(&model.HarvestBatch{}).
		Select("SUM(volume_kg) as total, SUM(CASE WHEN is_shipped THEN volume_kg ELSE 0 END) as shipped").
		Scan(&volumes).Error; err != nil {
		return nil, fmt.Errorf("failed to sum volumes: %w", err)
	}
	if volumes.Total != nil {
		stats.TotalVolumeKG = *volumes.Total
	}
	if volumes.Shipped != nil {
		stats.ShippedVolumeKG = *volumes.Shipped
	}

	return stats, nil
}

// GetOwnerStatistics 场主个人面板统计
func (s *statisticsService) GetOwnerStatistics(ownerID string) (*OwnerStatistics, error) {
	stats := &OwnerStatistics{}

	if err := s.db.Model(&model.Farm{}).
		Where("owner_id = ?", ownerID).
		Count(&stats.FarmCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count farms: %w", err)
	}

	ownerBatches := s.db.Model(&model.HarvestBatch{}).
		Joins("JOIN farms ON farms.id = harvest_batches.farm_id").
		Where("farms.owner_id = ?", ownerID)

	if err := ownerBatches.Session(&gorm.Session{}).Count(&stats.BatchCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}
	if err := ownerBatches.Session(&gorm.Session{}).
		Where("harvest_batches.quality_status = ?", model.QualityPending).
		Count(&stats.PendingBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending batches: %w", err)
	}
	if err := ownerBatches.Session(&gorm.Session{}).
		Where("harvest_batches.is_shipped = ?", true).
		Count(&stats.ShippedBatches).Error; err != nil {
		return nil, fmt.Errorf("failed to count shipped batches: %w", err)
	}

	var volume struct {
		Total *float64
	}
	if err := ownerBatches.Session(&gorm.Session{}).
		Select("SUM(harvest_batches.volume_kg) as total").
		Scan(&volume).Error; err != nil {
		return nil, fmt.Errorf("failed to sum owner volume: %w", err)
	}
	if volume.Total != nil {
		stats.TotalVolumeKG = *volume.Total
	}

	return stats, nil
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// 风险评分常量。阈值分档与养殖场风险加成分档是业务关键常量,
// 不是可调默认值,修改前必须与质检方对齐
const (
	// FarmRiskWindowDays 养殖场风险评分的滚动统计窗口(天)
	FarmRiskWindowDays = 180

	farmRiskLow    = 30 // 无批次,或问题批次占比 <= 0.10
	farmRiskMedium = 60 // 问题批次占比 <= 0.30
	farmRiskHigh   = 85 // 问题批次占比 > 0.30

	batchBaseProblem = 90 // 检测结论有问题
	batchBaseLow     = 30 // reading/threshold <= 0.50
	batchBaseMedium  = 50 // reading/threshold <= 0.80
	batchBaseHigh    = 75 // reading/threshold > 0.80

	farmExtraMedium = 10 // 养殖场风险 41-70
	farmExtraHigh   = 20 // 养殖场风险 > 70
)

// RiskService 风险评分服务接口。
// 两个重算操作均幂等:输入不变时重复调用产生相同评分,
// 且除写入评分外没有额外副作用
type RiskService interface {
	RecalculateFarmRisk(tx *gorm.DB, farm *model.Farm) (int, error)
	RecalculateBatchRisk(tx *gorm.DB, batch *model.HarvestBatch) (*int, error)
}

// riskService 风险评分服务实现
type riskService struct {
	nowFn func() time.Time
}

// NewRiskService 创建风险评分服务
func NewRiskService() RiskService {
	return &riskService{nowFn: time.Now}
}

// NewRiskServiceWithClock 创建使用指定时钟的风险评分服务(用于测试)
func NewRiskServiceWithClock(nowFn func() time.Time) RiskService {
	return &riskService{nowFn: nowFn}
}

// RecalculateFarmRisk 根据最近 180 天内收获批次中问题批次的占比
// 重算养殖场风险评分,并把新评分写回养殖场
func (s *riskService) RecalculateFarmRisk(tx *gorm.DB, farm *model.Farm) (int, error) {
	since := s.nowFn().AddDate(0, 0, -FarmRiskWindowDays)

	batches, err := repository.NewBatchRepository(tx).FindByFarmSince(farm.ID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to load recent batches: %w", err)
	}

	score := farmRiskLow
	if len(batches) > 0 {
		problems := 0
		for _, b := range batches {
			if b.QualityStatus == model.QualityProblem {
				problems++
			}
		}
		ratio := float64(problems) / float64(len(batches))

		switch {
		case ratio <= 0.10:
			score = farmRiskLow
		case ratio <= 0.30:
			score = farmRiskMedium
		default:
			score = farmRiskHigh
		}
	}

	if err := tx.Model(&model.Farm{}).Where("id = ?", farm.ID).
		Update("risk_score", score).Error; err != nil {
		return 0, fmt.Errorf("failed to persist farm risk score: %w", err)
	}
	farm.RiskScore = &score

	return score, nil
}

// RecalculateBatchRisk 重算批次风险评分与质量状态。
// 无检测记录时批次回到 PENDING、评分置空并返回 nil(这是合法的
// 待检状态,不是错误);否则由检测结果得出 base_risk,再按养殖场
// 风险加成,最终评分 = min(100, base + extra),与质量状态一并持久化
func (s *riskService) RecalculateBatchRisk(tx *gorm.DB, batch *model.HarvestBatch) (*int, error) {
	farm := batch.Farm
	if farm == nil {
		loaded, err := repository.NewFarmRepository(tx).FindByID(batch.FarmID)
		if err != nil {
			return nil, fmt.Errorf("failed to load farm: %w", err)
		}
		farm = loaded
		batch.Farm = loaded
	}

	// 前置条件:养殖场风险必须是最新的
	farmRisk := 0
	if farm.RiskScore == nil {
		recalculated, err := s.RecalculateFarmRisk(tx, farm)
		if err != nil {
			return nil, err
		}
		farmRisk = recalculated
	} else {
		farmRisk = *farm.RiskScore
	}

	labTest, err := repository.NewLabTestRepository(tx).FindByBatch(batch.Code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load lab test: %w", err)
		}
		// 尚无检测记录:回到待检状态
		batch.QualityStatus = model.QualityPending
		batch.RiskScore = nil
		if err := tx.Model(&model.HarvestBatch{}).Where("code = ?", batch.Code).
			Updates(map[string]interface{}{"quality_status": model.QualityPending, "risk_score": nil}).Error; err != nil {
			return nil, fmt.Errorf("failed to persist batch status: %w", err)
		}
		return nil, nil
	}

	var baseRisk int
	if labTest.Conclusion == model.ConclusionProblem {
		baseRisk = batchBaseProblem
		batch.QualityStatus = model.QualityProblem
	} else {
		// 阈值为零或未定义时按贴近上限处理(ratio = 1.0),绝不报错
		ratio := 1.0
		if labTest.SafetyThreshold != nil && *labTest.SafetyThreshold > 0 {
			ratio = labTest.Reading / *labTest.SafetyThreshold
		}

		switch {
		case ratio <= 0.50:
			baseRisk = batchBaseLow
		case ratio <= 0.80:
			baseRisk = batchBaseMedium
		default:
			baseRisk = batchBaseHigh
		}
		batch.QualityStatus = model.QualitySafe
	}

	extra := 0
	switch {
	case farmRisk <= 40:
		extra = 0
	case farmRisk <= 70:
		extra = farmExtraMedium
	default:
		extra = farmExtraHigh
	}

	score := baseRisk + extra
	if score > 100 {
		score = 100
	}
	batch.RiskScore = &score

	if err := tx.Model(&model.HarvestBatch{}).Where("code = ?", batch.Code).
		Updates(map[string]interface{}{"quality_status": batch.QualityStatus, "risk_score": score}).Error; err != nil {
		return nil, fmt.Errorf("failed to persist batch risk score: %w", err)
	}

	return &score, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/metrics"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// LabTestService 检测结果服务接口
type LabTestService interface {
	Submit(ctx context.Context, batchCode string, req *SubmitLabTestRequest) (*model.LabTest, error)
	GetByBatch(batchCode string) (*model.LabTest, error)
	HistoryByQC(ctx context.Context) ([]*model.LabTest, error)
	PendingBatches() ([]*model.HarvestBatch, error)
}

// SubmitLabTestRequest 提交检测结果请求
// @Description 提交实验室检测结果的请求参数
type SubmitLabTestRequest struct {
	Reading    *float64 `json:"reading" example:"200" binding:"required"`        // Cs-137 检测值(Bq/kg)
	Conclusion string   `json:"conclusion" example:"SAFE" binding:"required"`    // 检测结论: SAFE / PROBLEM
	TestDate   string   `json:"test_date" example:"2025-03-02" binding:"required"` // 检测日期
}

// labTestService 检测结果服务实现
type labTestService struct {
	db          *gorm.DB
	riskSvc     RiskService
	auditLogSvc AuditLogService
	notifier    ActivityNotifier
}

// NewLabTestService 创建检测结果服务
func NewLabTestService(db *gorm.DB, riskSvc RiskService, auditLogSvc AuditLogService, notifier ActivityNotifier) LabTestService {
	return &labTestService{
		db:          db,
		riskSvc:     riskSvc,
		auditLogSvc: auditLogSvc,
		notifier:    notifier,
	}
}

// Submit 接收一条检测结果并同步执行重算级联:
// 养殖场风险 -> 批次风险 -> LAB_TEST 活动 -> 条件性 READY_FOR_EXPORT 活动,
// 顺序固定(批次风险计算前养殖场风险必须是最新的),整个级联在
// 一个事务内,要么全部生效要么全部回滚。
// 每个批次只接受一条检测记录,重复提交被拒绝
func (s *labTestService) Submit(ctx context.Context, batchCode string, req *SubmitLabTestRequest) (*model.LabTest, error) {
	if req.Reading == nil || *req.Reading < 0 {
		return nil, NewValidationError("reading", "must be a non-negative number")
	}
	if req.Conclusion != model.ConclusionSafe && req.Conclusion != model.ConclusionProblem {
		return nil, NewValidationError("conclusion", "must be SAFE or PROBLEM")
	}
	testDate, err := parseDate("test_date", req.TestDate)
	if err != nil {
		return nil, err
	}

	batch, err := repository.NewBatchRepository(s.db).FindByCode(batchCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %s: %w", batchCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	// 安全阈值在提交时解析并固化:商品配置优先,否则全局默认值
	threshold := model.DefaultSafetyThreshold
	if batch.Commodity != nil {
		threshold = batch.Commodity.ResolveThreshold()
	}

	qc := auth.UserFromContext(ctx)
	qcID := ""
	qcName := "QC"
	if qc != nil {
		qcID = qc.ID
		qcName = qc.DisplayName()
	}

	// 实验室取自质检员档案
	var lab *model.Laboratory
	if qcID != "" {
		if qcUser, err := repository.NewUserRepository(s.db).FindByID(qcID); err == nil && qcUser.LaboratoryID != nil {
			lab, _ = repository.NewLaboratoryRepository(s.db).FindByID(*qcUser.LaboratoryID)
		}
	}

	test := &model.LabTest{
		ID:              uuid.New().String(),
		BatchCode:       batch.Code,
		Reading:         *req.Reading,
		SafetyThreshold: &threshold,
		Conclusion:      req.Conclusion,
		TestDate:        testDate,
		QCUserID:        qcID,
	}
	if lab != nil {
		test.LaboratoryID = &lab.ID
	}
	if test.QCUserID == "" {
		test.QCUserID = "unknown"
	}
	if err := test.Validate(); err != nil {
		return nil, NewValidationError("lab_test", err.Error())
	}

	labName := "Laboratory"
	if lab != nil && lab.Name != "" {
		labName = lab.Name
	}
	var created []*model.Activity

	err = s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := repository.NewLabTestRepository(tx).ExistsForBatch(batch.Code)
		if err != nil {
			return fmt.Errorf("failed to check existing lab test: %w", err)
		}
		if exists {
			return fmt.Errorf("batch %s: %w", batch.Code, ErrBatchAlreadyTested)
		}

		if err := repository.NewLabTestRepository(tx).Create(test); err != nil {
			return fmt.Errorf("failed to create lab test: %w", err)
		}

		// 级联重算:先养殖场,后批次
		if _, err := s.riskSvc.RecalculateFarmRisk(tx, batch.Farm); err != nil {
			return err
		}
		if _, err := s.riskSvc.RecalculateBatchRisk(tx, batch); err != nil {
			return err
		}

		activityRepo := repository.NewActivityRepository(tx)

		labActivity := &model.Activity{
			ID:        uuid.New().String(),
			BatchCode: batch.Code,
			Date:      testDate,
			Kind:      model.ActivityLabTest,
			Location:  labName,
			Actor:     qcName,
			Note:      fmt.Sprintf("Cs-137 test: %g Bq/kg (limit %g Bq/kg)", test.Reading, threshold),
		}
		if err := activityRepo.Create(labActivity); err != nil {
			return fmt.Errorf("failed to create lab test activity: %w", err)
		}
		created = append(created, labActivity)

		// 评分通过且尚无 READY_FOR_EXPORT 活动时自动追加一条,
		// 幂等性靠存在性检查保证
		if batch.RiskScore != nil && *batch.RiskScore < model.ShipmentRiskLimit {
			ready, err := activityRepo.ExistsKind(batch.Code, model.ActivityReadyForExport)
			if err != nil {
				return fmt.Errorf("failed to check ready-for-export activity: %w", err)
			}
			if !ready {
				readyActivity := &model.Activity{
					ID:        uuid.New().String(),
					BatchCode: batch.Code,
					Date:      testDate,
					Kind:      model.ActivityReadyForExport,
					Location:  labName,
					Actor:     qcName,
					Note:      "Batch cleared for export (risk score below hold limit)",
				}
				if err := activityRepo.Create(readyActivity); err != nil {
					return fmt.Errorf("failed to create ready-for-export activity: %w", err)
				}
				created = append(created, readyActivity)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLabTest(test.Conclusion)
	metrics.RecordRiskRecalculation("farm")
	metrics.RecordRiskRecalculation("batch")
	if s.auditLogSvc != nil && qcID != "" {
		_ = s.auditLogSvc.RecordAction(ctx, qcID, "test", "batch", batch.Code, map[string]interface{}{
			"reading": test.Reading, "conclusion": test.Conclusion,
		})
	}
	for _, activity := range created {
		if s.notifier != nil {
			s.notifier.PublishActivity(activity)
		}
	}

	return test, nil
}

// GetByBatch 获取批次的检测记录
func (s *labTestService) GetByBatch(batchCode string) (*model.LabTest, error) {
	test, err := repository.NewLabTestRepository(s.db).FindByBatch(batchCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lab test for batch %s: %w", batchCode, ErrNotFound)
		}
		return nil, err
	}
	return test, nil
}

// HistoryByQC 返回当前质检员提交的全部检测记录
func (s *labTestService) HistoryByQC(ctx context.Context) ([]*model.LabTest, error) {
	user := auth.UserFromContext(ctx)
	if user == nil {
		return nil, ErrPermissionDenied
	}
	return repository.NewLabTestRepository(s.db).FindByQC(user.ID)
}

// PendingBatches 返回尚无检测记录的批次,供质检面板使用
func (s *labTestService) PendingBatches() ([]*model.HarvestBatch, error) {
	return repository.NewBatchRepository(s.db).FindPendingTest()
}

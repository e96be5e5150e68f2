package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// labTestFixture 检测级联测试的公共环境
type labTestFixture struct {
	db       *gorm.DB
	batchSvc service.BatchService
	labSvc   service.LabTestService
	farm     *model.Farm
	batch    *model.HarvestBatch
	qcCtx    context.Context
}

// setupLabTestFixture 创建内存数据库、参考数据与一个待检批次
func setupLabTestFixture(t *testing.T, threshold *float64) *labTestFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.City{}, &model.User{}, &model.Laboratory{}, &model.Commodity{},
		&model.Farm{}, &model.HarvestBatch{}, &model.Activity{}, &model.LabTest{},
	)
	require.NoError(t, err)

	lab := &model.Laboratory{Name: "Balai Uji Jakarta"}
	require.NoError(t, db.Create(lab).Error)

	qc := &model.User{ID: "qc-1", Username: "ani", FullName: "Bu Ani", Role: model.RoleLabAssistant, LaboratoryID: &lab.ID}
	require.NoError(t, db.Create(qc).Error)

	owner := &model.User{ID: "owner-1", Username: "budi", FullName: "Pak Budi", Role: model.RoleFarmOwner}
	require.NoError(t, db.Create(owner).Error)

	ownerID := owner.ID
	farm := &model.Farm{Name: "Tambak Indah", OwnerID: &ownerID, Location: "Desa Karangsong"}
	require.NoError(t, db.Create(farm).Error)

	commodity := &model.Commodity{Code: "UDANG", Name: "Udang Vaname", DefaultSafetyThreshold: threshold}
	require.NoError(t, db.Create(commodity).Error)

	batchSvc := service.NewBatchService(db, service.NewBatchCodeGenerator(), nil, nil)
	batch, err := batchSvc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID:      farm.ID,
		CommodityID: commodity.ID,
		HarvestDate: "2025-03-01",
		VolumeKG:    1000,
		Destination: "Japan",
	})
	require.NoError(t, err)

	return &labTestFixture{
		db:       db,
		batchSvc: batchSvc,
		labSvc:   service.NewLabTestService(db, service.NewRiskService(), nil, nil),
		farm:     farm,
		batch:    batch,
		qcCtx: auth.WithUser(context.Background(), &auth.UserInfo{
			ID: "qc-1", Username: "ani", FullName: "Bu Ani", Role: model.RoleLabAssistant,
		}),
	}
}

// floatPtr 浮点指针辅助
func floatPtr(v float64) *float64 {
	return &v
}

// TestSubmitLabTest_SafeCascade 测试安全结论的完整级联
func TestSubmitLabTest_SafeCascade(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	test, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	// 阈值未配置时固化全局默认值
	require.NotNil(t, test.SafetyThreshold)
	assert.Equal(t, 500.0, *test.SafetyThreshold)
	assert.Equal(t, "qc-1", test.QCUserID)
	require.NotNil(t, test.LaboratoryID)

	// 批次:ratio 0.4 -> 评分 30,状态 SAFE,可出运
	batch, err := f.batchSvc.Get(f.batch.Code)
	require.NoError(t, err)
	assert.Equal(t, model.QualitySafe, batch.QualityStatus)
	require.NotNil(t, batch.RiskScore)
	assert.Equal(t, 30, *batch.RiskScore)
	assert.Equal(t, model.ShipmentEligible, batch.ShipmentStatus())

	// 养殖场评分同步重算
	var farm model.Farm
	require.NoError(t, f.db.First(&farm, f.farm.ID).Error)
	require.NotNil(t, farm.RiskScore)
	assert.Equal(t, 30, *farm.RiskScore)

	// 时间线追加 LAB_TEST 与 READY_FOR_EXPORT
	timeline, err := f.batchSvc.Timeline(f.batch.Code)
	require.NoError(t, err)
	kinds := make([]string, 0, len(timeline))
	for _, a := range timeline {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, model.ActivityLabTest)
	assert.Contains(t, kinds, model.ActivityReadyForExport)

	// 检测活动带实验室与质检员信息
	for _, a := range timeline {
		if a.Kind == model.ActivityLabTest {
			assert.Equal(t, "Balai Uji Jakarta", a.Location)
			assert.Equal(t, "Bu Ani", a.Actor)
			assert.Contains(t, a.Note, "Cs-137")
		}
	}
}

// TestSubmitLabTest_ProblemHoldsBatch 测试问题结论扣留批次且不追加可出口活动
func TestSubmitLabTest_ProblemHoldsBatch(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	_, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(900),
		Conclusion: model.ConclusionProblem,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	batch, err := f.batchSvc.Get(f.batch.Code)
	require.NoError(t, err)
	assert.Equal(t, model.QualityProblem, batch.QualityStatus)
	require.NotNil(t, batch.RiskScore)
	assert.Equal(t, 90, *batch.RiskScore)
	assert.Equal(t, model.ShipmentHeld, batch.ShipmentStatus())

	timeline, err := f.batchSvc.Timeline(f.batch.Code)
	require.NoError(t, err)
	for _, a := range timeline {
		assert.NotEqual(t, model.ActivityReadyForExport, a.Kind)
	}
}

// TestSubmitLabTest_CommodityThreshold 测试商品阈值优先于全局默认值
func TestSubmitLabTest_CommodityThreshold(t *testing.T) {
	f := setupLabTestFixture(t, floatPtr(100))

	test, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(60),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	require.NotNil(t, test.SafetyThreshold)
	assert.Equal(t, 100.0, *test.SafetyThreshold)

	// ratio 0.6 落入中档
	batch, err := f.batchSvc.Get(f.batch.Code)
	require.NoError(t, err)
	require.NotNil(t, batch.RiskScore)
	assert.Equal(t, 50, *batch.RiskScore)
}

// TestSubmitLabTest_Duplicate 测试重复提交被拒绝且不产生部分变更
func TestSubmitLabTest_Duplicate(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	_, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	_, err = f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(900),
		Conclusion: model.ConclusionProblem,
		TestDate:   "2025-03-03",
	})
	assert.ErrorIs(t, err, service.ErrBatchAlreadyTested)

	// 批次仍保持第一次检测的结果
	batch, err := f.batchSvc.Get(f.batch.Code)
	require.NoError(t, err)
	assert.Equal(t, model.QualitySafe, batch.QualityStatus)

	var count int64
	require.NoError(t, f.db.Model(&model.LabTest{}).Where("batch_code = ?", f.batch.Code).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// TestSubmitLabTest_ReadyForExportIdempotent 测试已有可出口活动时不重复追加
func TestSubmitLabTest_ReadyForExportIdempotent(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	existing := &model.Activity{
		ID:        uuid.New().String(),
		BatchCode: f.batch.Code,
		Date:      f.batch.HarvestDate,
		Kind:      model.ActivityReadyForExport,
		Location:  "Balai Uji Jakarta",
		Actor:     "Bu Ani",
	}
	require.NoError(t, f.db.Create(existing).Error)

	_, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&model.Activity{}).
		Where("batch_code = ? AND kind = ?", f.batch.Code, model.ActivityReadyForExport).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// TestSubmitLabTest_Validation 测试提交请求的字段校验
func TestSubmitLabTest_Validation(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	cases := []struct {
		name string
		req  *service.SubmitLabTestRequest
	}{
		{"missing reading", &service.SubmitLabTestRequest{Conclusion: model.ConclusionSafe, TestDate: "2025-03-02"}},
		{"negative reading", &service.SubmitLabTestRequest{Reading: floatPtr(-1), Conclusion: model.ConclusionSafe, TestDate: "2025-03-02"}},
		{"unknown conclusion", &service.SubmitLabTestRequest{Reading: floatPtr(200), Conclusion: "MAYBE", TestDate: "2025-03-02"}},
		{"bad test date", &service.SubmitLabTestRequest{Reading: floatPtr(200), Conclusion: model.ConclusionSafe, TestDate: "02-03-2025"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, tc.req)
			assert.True(t, service.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

// TestSubmitLabTest_BatchNotFound 测试未知批次编码
func TestSubmitLabTest_BatchNotFound(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	_, err := f.labSvc.Submit(f.qcCtx, "UNKNOWN-001", &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestPendingBatches 测试待检批次列表随检测提交收敛
func TestPendingBatches(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	pending, err := f.labSvc.PendingBatches()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.batch.Code, pending[0].Code)

	_, err = f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	pending, err = f.labSvc.PendingBatches()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// TestHistoryByQC 测试质检员检测历史
func TestHistoryByQC(t *testing.T) {
	f := setupLabTestFixture(t, nil)

	_, err := f.labSvc.Submit(f.qcCtx, f.batch.Code, &service.SubmitLabTestRequest{
		Reading:    floatPtr(200),
		Conclusion: model.ConclusionSafe,
		TestDate:   "2025-03-02",
	})
	require.NoError(t, err)

	history, err := f.labSvc.HistoryByQC(f.qcCtx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.batch.Code, history[0].BatchCode)

	// 未认证请求被拒绝
	_, err = f.labSvc.HistoryByQC(context.Background())
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

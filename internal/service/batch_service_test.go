package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForBatchService 创建内存数据库并播种基础参考数据
func setupTestDBForBatchService(t *testing.T) (*gorm.DB, *model.Farm, *model.Commodity) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.City{}, &model.User{}, &model.Laboratory{}, &model.Commodity{},
		&model.Farm{}, &model.HarvestBatch{}, &model.Activity{}, &model.LabTest{},
	)
	require.NoError(t, err)

	city := &model.City{Name: "Indramayu", Province: "Jawa Barat", Code: "IDM"}
	require.NoError(t, db.Create(city).Error)

	owner := &model.User{ID: "owner-1", Username: "budi", FullName: "Pak Budi", Role: model.RoleFarmOwner}
	require.NoError(t, db.Create(owner).Error)

	ownerID := owner.ID
	farm := &model.Farm{Name: "Tambak Indah", CityID: &city.ID, OwnerID: &ownerID, Location: "Desa Karangsong"}
	require.NoError(t, db.Create(farm).Error)

	commodity := &model.Commodity{Code: "UDANG", Name: "Udang Vaname"}
	require.NoError(t, db.Create(commodity).Error)

	return db, farm, commodity
}

// newBatchServiceForTest 创建不带审计与广播的批次服务
func newBatchServiceForTest(db *gorm.DB) service.BatchService {
	return service.NewBatchService(db, service.NewBatchCodeGenerator(), nil, nil)
}

// TestCreateBatch_GeneratesCodeAndSeedsTimeline 测试创建批次生成编码并播种时间线
func TestCreateBatch_GeneratesCodeAndSeedsTimeline(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID:       farm.ID,
		CommodityID:  commodity.ID,
		PlantingDate: "2025-01-10",
		HarvestDate:  "2025-03-01",
		VolumeKG:     1200,
		Destination:  "Japan",
	})

	require.NoError(t, err)
	assert.Equal(t, "IDM-F0001-20250301-001", batch.Code)
	assert.Equal(t, model.QualityPending, batch.QualityStatus)
	assert.Nil(t, batch.RiskScore)

	timeline, err := svc.Timeline(batch.Code)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, model.ActivitySeeding, timeline[0].Kind)
	assert.Equal(t, model.ActivityHarvest, timeline[1].Kind)
	assert.Equal(t, model.ActivityBatchRegistered, timeline[2].Kind)

	// 种子活动的地点与执行者来自养殖场
	for _, activity := range timeline {
		assert.Equal(t, "Desa Karangsong", activity.Location)
		assert.Equal(t, "Pak Budi", activity.Actor)
	}
}

// TestCreateBatch_SequenceIncrements 测试同前缀下序号顺延
func TestCreateBatch_SequenceIncrements(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	req := &service.CreateBatchRequest{
		FarmID:      farm.ID,
		CommodityID: commodity.ID,
		HarvestDate: "2025-03-01",
		VolumeKG:    800,
		Destination: "Korea",
	}

	first, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "IDM-F0001-20250301-001", first.Code)
	assert.Equal(t, "IDM-F0001-20250301-002", second.Code)
}

// TestCreateBatch_WithoutPlantingDate 测试无投苗日期时不播种 SEEDING 活动
func TestCreateBatch_WithoutPlantingDate(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID:      farm.ID,
		CommodityID: commodity.ID,
		HarvestDate: "2025-03-01",
		VolumeKG:    500,
		Destination: "Japan",
	})
	require.NoError(t, err)

	timeline, err := svc.Timeline(batch.Code)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, model.ActivityHarvest, timeline[0].Kind)
	assert.Equal(t, model.ActivityBatchRegistered, timeline[1].Kind)
}

// TestCreateBatch_ExplicitCodeSkipsGeneration 测试显式编码原样使用
func TestCreateBatch_ExplicitCodeSkipsGeneration(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID:      farm.ID,
		CommodityID: commodity.ID,
		Code:        "LEGACY-001",
		HarvestDate: "2025-03-01",
		VolumeKG:    500,
		Destination: "Japan",
	})
	require.NoError(t, err)
	assert.Equal(t, "LEGACY-001", batch.Code)
}

// TestCreateBatch_Validation 测试创建请求的字段校验
func TestCreateBatch_Validation(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	cases := []struct {
		name string
		req  *service.CreateBatchRequest
	}{
		{"missing harvest date", &service.CreateBatchRequest{FarmID: farm.ID, CommodityID: commodity.ID, VolumeKG: 100, Destination: "Japan"}},
		{"bad harvest date format", &service.CreateBatchRequest{FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "01/03/2025", VolumeKG: 100, Destination: "Japan"}},
		{"non-positive volume", &service.CreateBatchRequest{FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 0, Destination: "Japan"}},
		{"missing destination", &service.CreateBatchRequest{FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			assert.True(t, service.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

// TestCreateBatch_UnknownReferences 测试引用不存在的养殖场或商品
func TestCreateBatch_UnknownReferences(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	_, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: 9999, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: 9999, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// createShippableBatch 创建批次并把风险评分压到可出运档位
func createShippableBatch(t *testing.T, db *gorm.DB, svc service.BatchService, farm *model.Farm, commodity *model.Commodity, risk int) *model.HarvestBatch {
	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID:      farm.ID,
		CommodityID: commodity.ID,
		HarvestDate: "2025-03-01",
		VolumeKG:    1000,
		Destination: "Japan",
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.HarvestBatch{}).Where("code = ?", batch.Code).
		Updates(map[string]interface{}{"quality_status": model.QualitySafe, "risk_score": risk}).Error)
	return batch
}

// TestMarkShipped 测试可出运批次的出运流程
func TestMarkShipped(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch := createShippableBatch(t, db, svc, farm, commodity, 30)

	activity, err := svc.MarkShipped(context.Background(), batch.Code)

	require.NoError(t, err)
	assert.Equal(t, model.ActivityExported, activity.Kind)
	assert.Equal(t, "Desa Karangsong", activity.Location)

	status, err := svc.ShipmentStatus(batch.Code)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentShipped, status)

	// 已出运批次不可二次出运
	_, err = svc.MarkShipped(context.Background(), batch.Code)
	assert.ErrorIs(t, err, service.ErrNotEligible)
}

// TestMarkShipped_Rejections 测试扣留与未审查批次不可出运
func TestMarkShipped_Rejections(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	// 评分达到扣留线
	held := createShippableBatch(t, db, svc, farm, commodity, 70)
	_, err := svc.MarkShipped(context.Background(), held.Code)
	assert.ErrorIs(t, err, service.ErrNotEligible)

	// 尚未审查(无评分)
	pending, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-02", VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)
	_, err = svc.MarkShipped(context.Background(), pending.Code)
	assert.ErrorIs(t, err, service.ErrNotEligible)
}

// TestMarkReceived 测试接收流程与重复接收拒绝
func TestMarkReceived(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch := createShippableBatch(t, db, svc, farm, commodity, 30)
	_, err := svc.MarkShipped(context.Background(), batch.Code)
	require.NoError(t, err)

	activity, err := svc.MarkReceived(context.Background(), batch.Code)

	require.NoError(t, err)
	assert.Equal(t, model.ActivityReceived, activity.Kind)
	// 接收活动的地点是批次目的地
	assert.Equal(t, "Japan", activity.Location)

	_, err = svc.MarkReceived(context.Background(), batch.Code)
	assert.ErrorIs(t, err, service.ErrAlreadyReceived)
}

// TestAddManualActivity 测试手动活动一律记为 OTHER,执行者回退到当前用户
func TestAddManualActivity(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)

	ctx := auth.WithUser(context.Background(), &auth.UserInfo{ID: "owner-1", Username: "budi", FullName: "Pak Budi", Role: model.RoleFarmOwner})

	activity, err := svc.AddManualActivity(ctx, batch.Code, &service.ManualActivityRequest{
		Date:     "2025-03-05",
		Location: "Cold storage",
		Note:     "Moved to cold storage",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ActivityOther, activity.Kind)
	assert.Equal(t, "Pak Budi", activity.Actor)

	// 无法确定执行者时拒绝
	_, err = svc.AddManualActivity(context.Background(), batch.Code, &service.ManualActivityRequest{
		Date: "2025-03-05", Location: "Cold storage",
	})
	assert.True(t, service.IsValidation(err))
}

// TestTimelineOrdering 测试时间线按 (事件日期, 创建时间) 排序
func TestTimelineOrdering(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID,
		PlantingDate: "2025-01-10", HarvestDate: "2025-03-01",
		VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)

	// 事件日期早于收获的活动排在收获之前,即便后写入
	_, err = svc.AddManualActivity(context.Background(), batch.Code, &service.ManualActivityRequest{
		Date: "2025-02-01", Location: "Pond 3", Actor: "Pak Budi", Note: "Water quality check",
	})
	require.NoError(t, err)

	timeline, err := svc.Timeline(batch.Code)
	require.NoError(t, err)
	require.Len(t, timeline, 4)
	assert.Equal(t, model.ActivitySeeding, timeline[0].Kind)
	assert.Equal(t, model.ActivityOther, timeline[1].Kind)
	assert.Equal(t, model.ActivityHarvest, timeline[2].Kind)
}

// TestUpdateBatch 测试批次可变字段更新
func TestUpdateBatch(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), batch.Code, &service.UpdateBatchRequest{
		VolumeKG:    250,
		Destination: "Korea",
	})

	require.NoError(t, err)
	assert.Equal(t, batch.Code, updated.Code)
	assert.Equal(t, farm.ID, updated.FarmID)
	assert.Equal(t, 250.0, updated.VolumeKG)
	assert.Equal(t, "Korea", updated.Destination)
}

// TestDeleteBatch 测试删除批次级联清理活动
func TestDeleteBatch(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)
	batch, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), batch.Code))

	_, err = svc.Get(batch.Code)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&model.Activity{}).Where("batch_code = ?", batch.Code).Count(&count).Error)
	assert.Zero(t, count)
}

// TestGetBatch_NotFound 测试未知批次编码
func TestGetBatch_NotFound(t *testing.T) {
	db, _, _ := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	_, err := svc.Get("UNKNOWN-001")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, errors.Is(err, service.ErrNotEligible))
}

// TestListByOwner 测试场主视角只看到自己名下的批次
func TestListByOwner(t *testing.T) {
	db, farm, commodity := setupTestDBForBatchService(t)
	svc := newBatchServiceForTest(db)

	// 另一位场主的养殖场与批次
	other := &model.User{ID: "owner-2", Username: "siti", Role: model.RoleFarmOwner}
	require.NoError(t, db.Create(other).Error)
	otherID := other.ID
	otherFarm := &model.Farm{Name: "Tambak Lain", OwnerID: &otherID, Location: "Desa Lain"}
	require.NoError(t, db.Create(otherFarm).Error)

	mine, err := svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: farm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Japan",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), &service.CreateBatchRequest{
		FarmID: otherFarm.ID, CommodityID: commodity.ID, HarvestDate: "2025-03-01", VolumeKG: 100, Destination: "Korea",
	})
	require.NoError(t, err)

	batches, err := svc.ListByOwner("owner-1")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, mine.Code, batches[0].Code)
}

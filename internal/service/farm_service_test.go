package service_test

import (
	"context"
	"testing"

	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForFarmService 创建内存数据库用于养殖场服务测试
func setupTestDBForFarmService(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.City{}, &model.User{}, &model.Commodity{},
		&model.Farm{}, &model.HarvestBatch{}, &model.LabTest{},
	)
	require.NoError(t, err)

	return db
}

// ownerContext 构建带场主身份的 context
func ownerContext(id, fullName string) context.Context {
	return auth.WithUser(context.Background(), &auth.UserInfo{
		ID: id, Username: id, FullName: fullName, Role: model.RoleFarmOwner,
	})
}

// TestCreateFarm_OwnerFromContext 测试创建养殖场时场主取自当前用户
func TestCreateFarm_OwnerFromContext(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)
	require.NoError(t, db.Create(&model.User{ID: "owner-1", Username: "budi", Role: model.RoleFarmOwner}).Error)

	farm, err := svc.CreateFarm(ownerContext("owner-1", "Pak Budi"), &service.FarmRequest{
		Name:     "Tambak Makmur",
		Location: "Desa Pabean Udik",
	})

	require.NoError(t, err)
	require.NotNil(t, farm.OwnerID)
	assert.Equal(t, "owner-1", *farm.OwnerID)
	// 新建养殖场尚未计算过风险评分
	assert.Nil(t, farm.RiskScore)
}

// TestCreateFarm_Validation 测试养殖场字段校验与城市引用检查
func TestCreateFarm_Validation(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)

	_, err := svc.CreateFarm(context.Background(), &service.FarmRequest{Location: "Desa"})
	assert.True(t, service.IsValidation(err))

	_, err = svc.CreateFarm(context.Background(), &service.FarmRequest{Name: "Tambak"})
	assert.True(t, service.IsValidation(err))

	missing := uint(999)
	_, err = svc.CreateFarm(context.Background(), &service.FarmRequest{
		Name: "Tambak", Location: "Desa", CityID: &missing,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestUpdateFarm 测试养殖场信息更新不影响风险评分
func TestUpdateFarm(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)

	farm, err := svc.CreateFarm(context.Background(), &service.FarmRequest{Name: "Tambak Lama", Location: "Desa Lama"})
	require.NoError(t, err)
	score, err := svc.RecalculateRisk(context.Background(), farm.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, score)

	updated, err := svc.UpdateFarm(context.Background(), farm.ID, &service.FarmRequest{
		Name: "Tambak Baru", Location: "Desa Baru",
	})

	require.NoError(t, err)
	assert.Equal(t, "Tambak Baru", updated.Name)
	require.NotNil(t, updated.RiskScore)
	assert.Equal(t, 30, *updated.RiskScore)
}

// TestListFarms_OwnerScope 测试场主只看到自己名下的养殖场
func TestListFarms_OwnerScope(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)

	_, err := svc.CreateFarm(ownerContext("owner-1", "Pak Budi"), &service.FarmRequest{Name: "Tambak Budi", Location: "Desa A"})
	require.NoError(t, err)
	_, err = svc.CreateFarm(ownerContext("owner-2", "Bu Siti"), &service.FarmRequest{Name: "Tambak Siti", Location: "Desa B"})
	require.NoError(t, err)

	mine, err := svc.ListFarms(ownerContext("owner-1", "Pak Budi"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Tambak Budi", mine[0].Name)

	// 管理员看到全部
	adminCtx := auth.WithUser(context.Background(), &auth.UserInfo{ID: "admin-1", Username: "admin", Role: model.RoleAdmin})
	all, err := svc.ListFarms(adminCtx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestDeleteFarm 测试删除养殖场
func TestDeleteFarm(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)

	farm, err := svc.CreateFarm(context.Background(), &service.FarmRequest{Name: "Tambak Hapus", Location: "Desa"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFarm(context.Background(), farm.ID))

	_, err = svc.GetFarm(farm.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteFarm(context.Background(), farm.ID), service.ErrNotFound)
}

// TestCreateCity 测试城市参考数据管理
func TestCreateCity(t *testing.T) {
	db := setupTestDBForFarmService(t)
	svc := service.NewFarmService(db, service.NewRiskService(), nil)

	city, err := svc.CreateCity(context.Background(), &service.CityRequest{
		Name: "Indramayu", Province: "Jawa Barat", Code: "IDM",
	})
	require.NoError(t, err)
	assert.NotZero(t, city.ID)

	_, err = svc.CreateCity(context.Background(), &service.CityRequest{Name: "Kota Tanpa Provinsi"})
	assert.True(t, service.IsValidation(err))

	cities, err := svc.ListCities()
	require.NoError(t, err)
	assert.Len(t, cities, 1)
}

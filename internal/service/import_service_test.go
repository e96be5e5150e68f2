package service_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForImport 创建内存数据库用于导入测试
func setupTestDBForImport(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.City{}, &model.User{}, &model.Laboratory{}, &model.Commodity{},
		&model.Farm{}, &model.HarvestBatch{}, &model.Activity{}, &model.LabTest{},
	)
	require.NoError(t, err)

	return db
}

// writeImportCSV 在数据目录写入一个 CSV 文件
func writeImportCSV(t *testing.T, dir, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeFullImportDataset 写入一套完整的历史数据
func writeFullImportDataset(t *testing.T, dir string) {
	writeImportCSV(t, dir, "cities.csv",
		"name,province,code\nIndramayu,Jawa Barat,IDM\n")
	writeImportCSV(t, dir, "laboratories.csv",
		"name,city_name\nBalai Uji Jakarta,Indramayu\n")
	writeImportCSV(t, dir, "users.csv",
		"id,username,email,full_name,role,laboratory_name\n"+
			"owner-1,budi,budi@example.com,Pak Budi,farmOwner,\n"+
			"qc-1,ani,ani@example.com,Bu Ani,labAssistant,Balai Uji Jakarta\n")
	writeImportCSV(t, dir, "commodities.csv",
		"code,name,default_safety_threshold\nUDANG,Udang Vaname,500\n")
	writeImportCSV(t, dir, "farms.csv",
		"name,city_name,owner_username,location\nTambak Indah,Indramayu,budi,Desa Karangsong\n")
	writeImportCSV(t, dir, "batches.csv",
		"code,farm_name,commodity_code,planting_date,harvest_date,volume_kg,destination,quality_status,is_shipped\n"+
			"IDM-F0001-20250301-001,Tambak Indah,UDANG,2025-01-10,2025-03-01,1200,Japan,,false\n")
	writeImportCSV(t, dir, "activities.csv",
		"batch_code,date,kind,location,actor,note\n"+
			"IDM-F0001-20250301-001,2025-03-01,HARVEST,Desa Karangsong,Pak Budi,Main harvest\n")
	writeImportCSV(t, dir, "lab_tests.csv",
		"batch_code,qc_username,reading,safety_threshold,conclusion,test_date\n"+
			"IDM-F0001-20250301-001,ani,200,500,SAFE,2025-03-02\n")
}

// TestImportAll_FullDataset 测试完整数据集导入与收尾重算
func TestImportAll_FullDataset(t *testing.T) {
	db := setupTestDBForImport(t)
	dir := t.TempDir()
	writeFullImportDataset(t, dir)

	svc := service.NewImportService(db, service.NewRiskService(), nil)
	summary, err := svc.ImportAll(dir)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cities)
	assert.Equal(t, 1, summary.Laboratories)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t, 1, summary.Commodities)
	assert.Equal(t, 1, summary.Farms)
	assert.Equal(t, 1, summary.Batches)
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 1, summary.LabTests)

	// 导入模式不播种活动:只有 CSV 自带的一条
	var activityCount int64
	require.NoError(t, db.Model(&model.Activity{}).
		Where("batch_code = ?", "IDM-F0001-20250301-001").Count(&activityCount).Error)
	assert.Equal(t, int64(1), activityCount)

	// 收尾重算:检测 200/500 -> 评分 30,状态 SAFE
	var batch model.HarvestBatch
	require.NoError(t, db.Where("code = ?", "IDM-F0001-20250301-001").First(&batch).Error)
	assert.Equal(t, model.QualitySafe, batch.QualityStatus)
	require.NotNil(t, batch.RiskScore)
	assert.Equal(t, 30, *batch.RiskScore)

	var farm model.Farm
	require.NoError(t, db.Where("name = ?", "Tambak Indah").First(&farm).Error)
	require.NotNil(t, farm.RiskScore)

	// 质检员的实验室关联带入检测记录
	var test model.LabTest
	require.NoError(t, db.Where("batch_code = ?", "IDM-F0001-20250301-001").First(&test).Error)
	assert.Equal(t, "qc-1", test.QCUserID)
	require.NotNil(t, test.LaboratoryID)
}

// TestImportAll_MissingFilesSkipped 测试缺失的文件跳过不报错
func TestImportAll_MissingFilesSkipped(t *testing.T) {
	db := setupTestDBForImport(t)
	dir := t.TempDir()
	writeImportCSV(t, dir, "cities.csv", "name,province,code\nSurabaya,Jawa Timur,SBY\n")

	svc := service.NewImportService(db, service.NewRiskService(), nil)
	summary, err := svc.ImportAll(dir)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cities)
	assert.Zero(t, summary.Batches)
	assert.Zero(t, summary.Users)
}

// TestImportAll_Idempotent 测试重复导入同一数据集不产生重复记录
func TestImportAll_Idempotent(t *testing.T) {
	db := setupTestDBForImport(t)
	dir := t.TempDir()
	writeFullImportDataset(t, dir)

	svc := service.NewImportService(db, service.NewRiskService(), nil)
	_, err := svc.ImportAll(dir)
	require.NoError(t, err)

	second, err := svc.ImportAll(dir)
	require.NoError(t, err)

	// 完全相同的活动行只写一次
	assert.Zero(t, second.Activities)

	expected := []struct {
		name  string
		model interface{}
		count int64
	}{
		{"cities", &model.City{}, 1},
		{"users", &model.User{}, 2},
		{"farms", &model.Farm{}, 1},
		{"batches", &model.HarvestBatch{}, 1},
		{"activities", &model.Activity{}, 1},
		{"lab tests", &model.LabTest{}, 1},
	}
	for _, e := range expected {
		var count int64
		require.NoError(t, db.Model(e.model).Count(&count).Error)
		assert.Equal(t, e.count, count, e.name)
	}
}

// TestImportAll_RollbackOnError 测试任一行出错时整体回滚
func TestImportAll_RollbackOnError(t *testing.T) {
	db := setupTestDBForImport(t)
	dir := t.TempDir()
	writeImportCSV(t, dir, "cities.csv", "name,province,code\nIndramayu,Jawa Barat,IDM\n")
	// 引用不存在的养殖场
	writeImportCSV(t, dir, "batches.csv",
		"code,farm_name,commodity_code,planting_date,harvest_date,volume_kg,destination,quality_status,is_shipped\n"+
			"BAD-001,Ghost Farm,UDANG,,2025-03-01,100,Japan,,false\n")

	svc := service.NewImportService(db, service.NewRiskService(), nil)
	_, err := svc.ImportAll(dir)
	require.Error(t, err)

	var cityCount int64
	require.NoError(t, db.Model(&model.City{}).Count(&cityCount).Error)
	assert.Zero(t, cityCount)
}

package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForBatchCode 创建内存数据库用于批次编码测试
func setupTestDBForBatchCode(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.City{}, &model.Farm{}, &model.HarvestBatch{}))
	return db
}

// TestBatchCodePrefix 测试编码前缀格式
func TestBatchCodePrefix(t *testing.T) {
	g := service.NewBatchCodeGenerator()
	farm := &model.Farm{
		ID:   12,
		Name: "Tambak Indah",
		City: &model.City{Name: "Indramayu", Province: "Jawa Barat", Code: "IDM"},
	}

	prefix := g.Prefix(farm, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "IDM-F0012-20250301-", prefix)
}

// TestBatchCodePrefix_CityFallback 测试无城市编码时回退到 XXX
func TestBatchCodePrefix_CityFallback(t *testing.T) {
	g := service.NewBatchCodeGenerator()
	farm := &model.Farm{ID: 7, Name: "Tambak Tanpa Kota"}

	prefix := g.Prefix(farm, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "XXX-F0007-20250301-", prefix)
}

// TestBatchCodePrefix_ZeroHarvestDate 测试收获日期未知时取当前日期
func TestBatchCodePrefix_ZeroHarvestDate(t *testing.T) {
	g := service.NewBatchCodeGenerator()
	farm := &model.Farm{ID: 7, Name: "Tambak Tanpa Tanggal"}

	prefix := g.Prefix(farm, time.Time{})
	expected := fmt.Sprintf("XXX-F0007-%s-", time.Now().Format("20060102"))
	assert.Equal(t, expected, prefix)
}

// TestBatchCodeNext 测试序号分配
func TestBatchCodeNext(t *testing.T) {
	db := setupTestDBForBatchCode(t)
	g := service.NewBatchCodeGenerator()
	prefix := "IDM-F0012-20250301-"

	// 前缀下无批次时从 001 开始
	code, err := g.Next(db, prefix)
	require.NoError(t, err)
	assert.Equal(t, "IDM-F0012-20250301-001", code)

	// 已有编码时顺延
	batch := &model.HarvestBatch{
		Code: "IDM-F0012-20250301-001", FarmID: 12, CommodityID: 1,
		HarvestDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		VolumeKG:    100, Destination: "Japan", QualityStatus: model.QualityPending,
	}
	require.NoError(t, db.Create(batch).Error)

	code, err = g.Next(db, prefix)
	require.NoError(t, err)
	assert.Equal(t, "IDM-F0012-20250301-002", code)
}

// TestBatchCodeNext_OtherPrefixIgnored 测试不同前缀下的序号互不影响
func TestBatchCodeNext_OtherPrefixIgnored(t *testing.T) {
	db := setupTestDBForBatchCode(t)
	g := service.NewBatchCodeGenerator()

	batch := &model.HarvestBatch{
		Code: "SBY-F0003-20250301-009", FarmID: 3, CommodityID: 1,
		HarvestDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		VolumeKG:    100, Destination: "Japan", QualityStatus: model.QualityPending,
	}
	require.NoError(t, db.Create(batch).Error)

	code, err := g.Next(db, "IDM-F0012-20250301-")
	require.NoError(t, err)
	assert.Equal(t, "IDM-F0012-20250301-001", code)
}

// TestBatchCodeNext_MalformedSuffix 测试畸形序号按 0 处理
func TestBatchCodeNext_MalformedSuffix(t *testing.T) {
	db := setupTestDBForBatchCode(t)
	g := service.NewBatchCodeGenerator()
	prefix := "IDM-F0012-20250301-"

	batch := &model.HarvestBatch{
		Code: prefix + "LEGACY", FarmID: 12, CommodityID: 1,
		HarvestDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		VolumeKG:    100, Destination: "Japan", QualityStatus: model.QualityPending,
	}
	require.NoError(t, db.Create(batch).Error)

	code, err := g.Next(db, prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix+"001", code)
}

// TestBatchCodeAcquire 测试前缀锁的获取与释放
func TestBatchCodeAcquire(t *testing.T) {
	g := service.NewBatchCodeGenerator()

	unlock := g.Acquire("IDM-F0012-20250301-")
	unlock()

	// 释放后可再次获取,不会死锁
	unlock = g.Acquire("IDM-F0012-20250301-")
	unlock()

	// 不同前缀互不阻塞
	done := make(chan struct{})
	outer := g.Acquire("AAA-F0001-20250301-")
	go func() {
		inner := g.Acquire("BBB-F0002-20250301-")
		inner()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different prefix should not block")
	}
	outer()
}

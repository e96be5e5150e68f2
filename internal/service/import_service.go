package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ImportService CSV 历史数据导入服务接口。
// 导入模式下不触发自动播种活动和检测级联,历史活动按原样写入,
// 全部数据落库后统一重算一次所有养殖场与批次的风险评分
type ImportService interface {
	ImportAll(dataDir string) (*ImportSummary, error)
}

// ImportSummary 导入结果汇总
type ImportSummary struct {
	Cities       int
	Laboratories int
	Users        int
	Commodities  int
	Farms        int
	Batches      int
	Activities   int
	LabTests     int
}

// importService CSV 导入服务实现
type importService struct {
	db      *gorm.DB
	riskSvc RiskService
	log     *logrus.Logger
}

// NewImportService 创建导入服务
func NewImportService(db *gorm.DB, riskSvc RiskService, log *logrus.Logger) ImportService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &importService{db: db, riskSvc: riskSvc, log: log}
}

// ImportAll 导入 dataDir 下的全部 CSV 文件,整个导入在一个事务内,
// 任一行出错时全部回滚。缺失的文件跳过不报错
func (s *importService) ImportAll(dataDir string) (*ImportSummary, error) {
	summary := &ImportSummary{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loaders := []struct {
			file string
			fn   func(tx *gorm.DB, rows []map[string]string) error
		}{
			{"cities.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadCities(tx, rows, summary) }},
			{"laboratories.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadLaboratories(tx, rows, summary) }},
			{"users.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadUsers(tx, rows, summary) }},
			{"commodities.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadCommodities(tx, rows, summary) }},
			{"farms.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadFarms(tx, rows, summary) }},
			{"batches.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadBatches(tx, rows, summary) }},
			{"activities.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadActivities(tx, rows, summary) }},
			{"lab_tests.csv", func(tx *gorm.DB, rows []map[string]string) error { return s.loadLabTests(tx, rows, summary) }},
		}

		for _, loader := range loaders {
			path := filepath.Join(dataDir, loader.file)
			rows, err := readCSVRecords(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					s.log.WithField("file", path).Warn("import file not found, skipping")
					continue
				}
				return fmt.Errorf("failed to read %s: %w", loader.file, err)
			}
			s.log.WithFields(logrus.Fields{"file": loader.file, "rows": len(rows)}).Info("importing")
			if err := loader.fn(tx, rows); err != nil {
				return fmt.Errorf("failed to import %s: %w", loader.file, err)
			}
		}

		return s.recalculateAll(tx)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// loadCities 按名称 upsert 城市
func (s *importService) loadCities(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewCityRepository(tx)
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			return fmt.Errorf("city row missing name")
		}
		city, err := repo.FindByName(name)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			city = &model.City{Name: name}
		}
		city.Province = strings.TrimSpace(row["province"])
		city.Code = strings.TrimSpace(row["code"])
		if err := repo.Save(city); err != nil {
			return err
		}
		summary.Cities++
	}
	return nil
}

// loadLaboratories 按名称 upsert 实验室,城市按名称解析
func (s *importService) loadLaboratories(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewLaboratoryRepository(tx)
	cityRepo := repository.NewCityRepository(tx)
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			return fmt.Errorf("laboratory row missing name")
		}
		lab, err := repo.FindByName(name)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			lab = &model.Laboratory{Name: name}
		}
		if cityName := strings.TrimSpace(row["city_name"]); cityName != "" {
			city, err := cityRepo.FindByName(cityName)
			if err != nil {
				return fmt.Errorf("laboratory %s: city %s not found", name, cityName)
			}
			lab.CityID = &city.ID
			lab.City = nil
		}
		if err := repo.Save(lab); err != nil {
			return err
		}
		summary.Laboratories++
	}
	return nil
}

// loadUsers 按用户名 upsert 用户,实验室按名称解析
func (s *importService) loadUsers(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewUserRepository(tx)
	labRepo := repository.NewLaboratoryRepository(tx)
	for _, row := range rows {
		username := strings.TrimSpace(row["username"])
		if username == "" {
			return fmt.Errorf("user row missing username")
		}
		user, err := repo.FindByUsername(username)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			id := strings.TrimSpace(row["id"])
			if id == "" {
				id = uuid.New().String()
			}
			user = &model.User{ID: id, Username: username}
		}
		user.Email = strings.TrimSpace(row["email"])
		user.FullName = strings.TrimSpace(row["full_name"])
		user.Role = strings.TrimSpace(row["role"])
		if labName := strings.TrimSpace(row["laboratory_name"]); labName != "" {
			lab, err := labRepo.FindByName(labName)
			if err != nil {
				return fmt.Errorf("user %s: laboratory %s not found", username, labName)
			}
			user.LaboratoryID = &lab.ID
		}
		if err := user.Validate(); err != nil {
			return fmt.Errorf("user %s: %w", username, err)
		}
		if err := repo.Save(user); err != nil {
			return err
		}
		summary.Users++
	}
	return nil
}

// loadCommodities 按编码 upsert 商品
func (s *importService) loadCommodities(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewCommodityRepository(tx)
	for _, row := range rows {
		code := strings.TrimSpace(row["code"])
		if code == "" {
			return fmt.Errorf("commodity row missing code")
		}
		commodity, err := repo.FindByCode(code)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			commodity = &model.Commodity{Code: code}
		}
		commodity.Name = strings.TrimSpace(row["name"])
		threshold, err := parseCSVFloat(row["default_safety_threshold"])
		if err != nil {
			return fmt.Errorf("commodity %s: %w", code, err)
		}
		commodity.DefaultSafetyThreshold = threshold
		if err := repo.Save(commodity); err != nil {
			return err
		}
		summary.Commodities++
	}
	return nil
}

// loadFarms 按名称 upsert 养殖场,城市与场主按名称解析。
// 风险评分留空,统一重算阶段填充
func (s *importService) loadFarms(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewFarmRepository(tx)
	cityRepo := repository.NewCityRepository(tx)
	userRepo := repository.NewUserRepository(tx)
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			return fmt.Errorf("farm row missing name")
		}
		farm, err := repo.FindByName(name)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			farm = &model.Farm{Name: name}
		}
		farm.Location = strings.TrimSpace(row["location"])
		if cityName := strings.TrimSpace(row["city_name"]); cityName != "" {
			city, err := cityRepo.FindByName(cityName)
			if err != nil {
				return fmt.Errorf("farm %s: city %s not found", name, cityName)
			}
			farm.CityID = &city.ID
			farm.City = nil
		}
		if ownerName := strings.TrimSpace(row["owner_username"]); ownerName != "" {
			owner, err := userRepo.FindByUsername(ownerName)
			if err != nil {
				return fmt.Errorf("farm %s: owner %s not found", name, ownerName)
			}
			ownerID := owner.ID
			farm.OwnerID = &ownerID
			farm.Owner = nil
		}
		if err := repo.Save(farm); err != nil {
			return err
		}
		summary.Farms++
	}
	return nil
}

// loadBatches 按批次编码 upsert 批次。不生成编码、不播种活动:
// 历史编码与活动由 CSV 自带
func (s *importService) loadBatches(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewBatchRepository(tx)
	farmRepo := repository.NewFarmRepository(tx)
	commodityRepo := repository.NewCommodityRepository(tx)
	for _, row := range rows {
		code := strings.TrimSpace(row["code"])
		if code == "" {
			return fmt.Errorf("batch row missing code")
		}
		farm, err := farmRepo.FindByName(strings.TrimSpace(row["farm_name"]))
		if err != nil {
			return fmt.Errorf("batch %s: farm %s not found", code, row["farm_name"])
		}
		commodity, err := commodityRepo.FindByCode(strings.TrimSpace(row["commodity_code"]))
		if err != nil {
			return fmt.Errorf("batch %s: commodity %s not found", code, row["commodity_code"])
		}

		batch, err := repo.FindByCode(code)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			batch = &model.HarvestBatch{Code: code}
		}
		batch.FarmID = farm.ID
		batch.Farm = nil
		batch.CommodityID = commodity.ID
		batch.Commodity = nil

		if batch.PlantingDate, err = parseCSVDate(row["planting_date"]); err != nil {
			return fmt.Errorf("batch %s: %w", code, err)
		}
		harvest, err := parseCSVDate(row["harvest_date"])
		if err != nil || harvest == nil {
			return fmt.Errorf("batch %s: invalid harvest_date %q", code, row["harvest_date"])
		}
		batch.HarvestDate = *harvest

		volume, err := parseCSVFloat(row["volume_kg"])
		if err != nil || volume == nil {
			return fmt.Errorf("batch %s: invalid volume_kg %q", code, row["volume_kg"])
		}
		batch.VolumeKG = *volume
		batch.Destination = strings.TrimSpace(row["destination"])
		batch.QualityStatus = strings.TrimSpace(row["quality_status"])
		if batch.QualityStatus == "" {
			batch.QualityStatus = model.QualityPending
		}
		batch.IsShipped = parseCSVBool(row["is_shipped"])

		if err := batch.Validate(); err != nil {
			return fmt.Errorf("batch %s: %w", code, err)
		}
		if err := repo.Save(batch); err != nil {
			return err
		}
		summary.Batches++
	}
	return nil
}

// loadActivities 按原样写入历史活动,完全相同的行只写一次
func (s *importService) loadActivities(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	repo := repository.NewActivityRepository(tx)
	batchRepo := repository.NewBatchRepository(tx)
	for _, row := range rows {
		batchCode := strings.TrimSpace(row["batch_code"])
		if _, err := batchRepo.FindByCode(batchCode); err != nil {
			return fmt.Errorf("activity: batch %s not found", batchCode)
		}
		date, err := parseCSVDate(row["date"])
		if err != nil || date == nil {
			return fmt.Errorf("activity for %s: invalid date %q", batchCode, row["date"])
		}
		kind := strings.TrimSpace(row["kind"])
		if !model.IsValidActivityKind(kind) {
			return fmt.Errorf("activity for %s: unknown kind %q", batchCode, kind)
		}

		activity := &model.Activity{
			ID:        uuid.New().String(),
			BatchCode: batchCode,
			Date:      *date,
			Kind:      kind,
			Location:  strings.TrimSpace(row["location"]),
			Actor:     strings.TrimSpace(row["actor"]),
			Note:      strings.TrimSpace(row["note"]),
		}

		var count int64
		err = tx.Model(&model.Activity{}).
			Where("batch_code = ? AND date = ? AND kind = ? AND actor = ? AND note = ?",
				activity.BatchCode, activity.Date, activity.Kind, activity.Actor, activity.Note).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := repo.Create(activity); err != nil {
			return err
		}
		summary.Activities++
	}
	return nil
}

// loadLabTests 按批次 upsert 检测记录,不触发重算级联
func (s *importService) loadLabTests(tx *gorm.DB, rows []map[string]string, summary *ImportSummary) error {
	userRepo := repository.NewUserRepository(tx)
	batchRepo := repository.NewBatchRepository(tx)
	for _, row := range rows {
		batchCode := strings.TrimSpace(row["batch_code"])
		if _, err := batchRepo.FindByCode(batchCode); err != nil {
			return fmt.Errorf("lab test: batch %s not found", batchCode)
		}

		var test model.LabTest
		err := tx.Where("batch_code = ?", batchCode).First(&test).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			test = model.LabTest{ID: uuid.New().String(), BatchCode: batchCode}
		}

		qc, err := userRepo.FindByUsername(strings.TrimSpace(row["qc_username"]))
		if err != nil {
			return fmt.Errorf("lab test for %s: qc user %s not found", batchCode, row["qc_username"])
		}
		test.QCUserID = qc.ID
		test.LaboratoryID = qc.LaboratoryID

		reading, err := parseCSVFloat(row["reading"])
		if err != nil || reading == nil {
			return fmt.Errorf("lab test for %s: invalid reading %q", batchCode, row["reading"])
		}
		test.Reading = *reading
		if test.SafetyThreshold, err = parseCSVFloat(row["safety_threshold"]); err != nil {
			return fmt.Errorf("lab test for %s: %w", batchCode, err)
		}
		test.Conclusion = strings.TrimSpace(row["conclusion"])
		testDate, err := parseCSVDate(row["test_date"])
		if err != nil || testDate == nil {
			return fmt.Errorf("lab test for %s: invalid test_date %q", batchCode, row["test_date"])
		}
		test.TestDate = *testDate

		if err := test.Validate(); err != nil {
			return fmt.Errorf("lab test for %s: %w", batchCode, err)
		}
		if err := tx.Save(&test).Error; err != nil {
			return err
		}
		summary.LabTests++
	}
	return nil
}

// recalculateAll 导入完成后统一重算:先所有养殖场,后所有批次
func (s *importService) recalculateAll(tx *gorm.DB) error {
	var farms []*model.Farm
	if err := tx.Find(&farms).Error; err != nil {
		return fmt.Errorf("failed to load farms for recalculation: %w", err)
	}
	for _, farm := range farms {
		if _, err := s.riskSvc.RecalculateFarmRisk(tx, farm); err != nil {
			return err
		}
	}

	var batches []*model.HarvestBatch
	if err := tx.Find(&batches).Error; err != nil {
		return fmt.Errorf("failed to load batches for recalculation: %w", err)
	}
	for _, batch := range batches {
		if _, err := s.riskSvc.RecalculateBatchRisk(tx, batch); err != nil {
			return err
		}
	}
	return nil
}

// readCSVRecords 读取 CSV 文件并以表头为键返回每一行
func readCSVRecords(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[strings.TrimSpace(key)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCSVFloat 解析可为空的浮点字段
func parseCSVFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", value)
	}
	return &f, nil
}

// parseCSVDate 解析可为空的日期字段(YYYY-MM-DD)
func parseCSVDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", value)
	}
	return &t, nil
}

// parseCSVBool 解析布尔字段
func parseCSVBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

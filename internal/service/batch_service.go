package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/metrics"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// dateLayout 请求中日期字段的格式
const dateLayout = "2006-01-02"

// maxCodeRetries 批次编码唯一约束冲突时的插入重试次数
const maxCodeRetries = 3

// ActivityNotifier 活动广播接口,由 WebSocket hub 实现
type ActivityNotifier interface {
	PublishActivity(activity *model.Activity)
}

// BatchService 收获批次服务接口
type BatchService interface {
	Create(ctx context.Context, req *CreateBatchRequest) (*model.HarvestBatch, error)
	Get(code string) (*model.HarvestBatch, error)
	List() ([]*model.HarvestBatch, error)
	ListByOwner(ownerID string) ([]*model.HarvestBatch, error)
	Timeline(code string) ([]*model.Activity, error)
	ShipmentStatus(code string) (string, error)
	MarkShipped(ctx context.Context, code string) (*model.Activity, error)
	MarkReceived(ctx context.Context, code string) (*model.Activity, error)
	AddManualActivity(ctx context.Context, code string, req *ManualActivityRequest) (*model.Activity, error)
	Update(ctx context.Context, code string, req *UpdateBatchRequest) (*model.HarvestBatch, error)
	Delete(ctx context.Context, code string) error
}

// CreateBatchRequest 创建批次请求
// @Description 创建收获批次的请求参数
type CreateBatchRequest struct {
	FarmID       uint    `json:"farm_id" example:"12" binding:"required"`        // 养殖场 ID
	CommodityID  uint    `json:"commodity_id" example:"1" binding:"required"`    // 商品 ID
	Code         string  `json:"code" example:""`                                // 批次编码,留空时自动生成
	PlantingDate string  `json:"planting_date" example:"2025-01-10"`             // 投苗日期(可选)
	HarvestDate  string  `json:"harvest_date" example:"2025-03-01" binding:"required"` // 收获日期
	VolumeKG     float64 `json:"volume_kg" example:"1200" binding:"required"`    // 重量(kg)
	Destination  string  `json:"destination" example:"Japan" binding:"required"` // 目的国家/买方
}

// UpdateBatchRequest 更新批次请求,养殖场与编码不可变更
// @Description 更新收获批次的请求参数
type UpdateBatchRequest struct {
	PlantingDate string  `json:"planting_date"` // 投苗日期
	HarvestDate  string  `json:"harvest_date"`  // 收获日期
	VolumeKG     float64 `json:"volume_kg"`     // 重量(kg)
	Destination  string  `json:"destination"`   // 目的国家/买方
}

// ManualActivityRequest 手动追加活动请求,类型一律记为 OTHER
// @Description 手动追加溯源活动的请求参数
type ManualActivityRequest struct {
	Date     string `json:"date" example:"2025-03-05" binding:"required"` // 事件日期
	Location string `json:"location" example:"Cold storage" binding:"required"` // 地点
	Actor    string `json:"actor" example:"PT Dingin Jaya"` // 执行者,留空时取当前用户
	Note     string `json:"note" example:"Moved to cold storage"` // 备注
}

// batchService 收获批次服务实现
type batchService struct {
	db          *gorm.DB
	codes       *BatchCodeGenerator
	auditLogSvc AuditLogService
	notifier    ActivityNotifier
	nowFn       func() time.Time
}

// NewBatchService 创建收获批次服务
func NewBatchService(db *gorm.DB, codes *BatchCodeGenerator, auditLogSvc AuditLogService, notifier ActivityNotifier) BatchService {
	return &batchService{
		db:          db,
		codes:       codes,
		auditLogSvc: auditLogSvc,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// NewBatchServiceWithClock 创建使用指定时钟的批次服务(用于测试)
func NewBatchServiceWithClock(db *gorm.DB, codes *BatchCodeGenerator, auditLogSvc AuditLogService, notifier ActivityNotifier, nowFn func() time.Time) BatchService {
	return &batchService{
		db:          db,
		codes:       codes,
		auditLogSvc: auditLogSvc,
		notifier:    notifier,
		nowFn:       nowFn,
	}
}

// Create 创建批次:分配批次编码并播种时间线种子活动。
// 编码生成与插入在前缀锁内执行,唯一约束冲突时重试,
// 防止并发创建产生重复序号
func (s *batchService) Create(ctx context.Context, req *CreateBatchRequest) (*model.HarvestBatch, error) {
	harvestDate, err := parseDate("harvest_date", req.HarvestDate)
	if err != nil {
		return nil, err
	}
	plantingDate, err := parseOptionalDate("planting_date", req.PlantingDate)
	if err != nil {
		return nil, err
	}
	if req.VolumeKG <= 0 {
		return nil, NewValidationError("volume_kg", "must be positive")
	}
	if req.Destination == "" {
		return nil, NewValidationError("destination", "is required")
	}

	farm, err := repository.NewFarmRepository(s.db).FindByID(req.FarmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("farm %d: %w", req.FarmID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load farm: %w", err)
	}
	if _, err := repository.NewCommodityRepository(s.db).FindByID(req.CommodityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("commodity %d: %w", req.CommodityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load commodity: %w", err)
	}

	batch := &model.HarvestBatch{
		Code:          req.Code,
		FarmID:        farm.ID,
		CommodityID:   req.CommodityID,
		PlantingDate:  plantingDate,
		HarvestDate:   harvestDate,
		VolumeKG:      req.VolumeKG,
		Destination:   req.Destination,
		QualityStatus: model.QualityPending,
	}

	generated := req.Code == ""
	if generated {
		prefix := s.codes.Prefix(farm, harvestDate)
		unlock := s.codes.Acquire(prefix)
		defer unlock()
	}

	var seeded []*model.Activity
	for attempt := 0; ; attempt++ {
		seeded = nil
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if generated {
				code, err := s.codes.Next(tx, s.codes.Prefix(farm, harvestDate))
				if err != nil {
					return err
				}
				batch.Code = code
			}
			if err := batch.Validate(); err != nil {
				return NewValidationError("batch", err.Error())
			}
			if err := repository.NewBatchRepository(tx).Create(batch); err != nil {
				return fmt.Errorf("failed to create batch: %w", err)
			}

			activities, err := s.ensureSeedActivities(tx, batch, farm)
			if err != nil {
				return err
			}
			seeded = activities
			return nil
		})
		if err == nil {
			break
		}
		if !generated || !isDuplicateCode(err) || attempt >= maxCodeRetries-1 {
			return nil, err
		}
	}

	batch.Farm = farm
	metrics.RecordBatchCreated()
	s.recordAudit(ctx, "create", "batch", batch.Code, map[string]interface{}{
		"farm_id": farm.ID, "volume_kg": batch.VolumeKG, "destination": batch.Destination,
	})
	s.publishAll(seeded)

	return batch, nil
}

// ensureSeedActivities 为新批次播种默认时间线活动。
// 幂等:批次已有任何活动时不再播种,保证种子活动只产生一次
func (s *batchService) ensureSeedActivities(tx *gorm.DB, batch *model.HarvestBatch, farm *model.Farm) ([]*model.Activity, error) {
	activityRepo := repository.NewActivityRepository(tx)

	count, err := activityRepo.CountByBatch(batch.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	actor := farm.ActorName()
	var created []*model.Activity

	appendActivity := func(date time.Time, kind, note string) error {
		activity := &model.Activity{
			ID:        uuid.New().String(),
			BatchCode: batch.Code,
			Date:      date,
			Kind:      kind,
			Location:  farm.Location,
			Actor:     actor,
			Note:      note,
		}
		if err := activityRepo.Create(activity); err != nil {
			return fmt.Errorf("failed to create %s activity: %w", kind, err)
		}
		created = append(created, activity)
		return nil
	}

	if batch.PlantingDate != nil {
		if err := appendActivity(*batch.PlantingDate, model.ActivitySeeding, "Initial stocking for the grow-out cycle"); err != nil {
			return nil, err
		}
	}
	if err := appendActivity(batch.HarvestDate, model.ActivityHarvest, "Main harvest"); err != nil {
		return nil, err
	}
	if err := appendActivity(s.nowFn(), model.ActivityBatchRegistered, "Batch registered by farm owner"); err != nil {
		return nil, err
	}

	return created, nil
}

// Get 获取批次详情
func (s *batchService) Get(code string) (*model.HarvestBatch, error) {
	batch, err := repository.NewBatchRepository(s.db).FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %s: %w", code, ErrNotFound)
		}
		return nil, err
	}
	return batch, nil
}

// List 获取所有批次
func (s *batchService) List() ([]*model.HarvestBatch, error) {
	return repository.NewBatchRepository(s.db).FindAll()
}

// ListByOwner 获取某场主名下全部批次
func (s *batchService) ListByOwner(ownerID string) ([]*model.HarvestBatch, error) {
	return repository.NewBatchRepository(s.db).FindByOwner(ownerID)
}

// Timeline 按时间线顺序返回批次全部活动
func (s *batchService) Timeline(code string) ([]*model.Activity, error) {
	if _, err := s.Get(code); err != nil {
		return nil, err
	}
	return repository.NewActivityRepository(s.db).FindByBatch(code)
}

// ShipmentStatus 返回批次当前出运状态
func (s *batchService) ShipmentStatus(code string) (string, error) {
	batch, err := s.Get(code)
	if err != nil {
		return "", err
	}
	return batch.ShipmentStatus(), nil
}

// MarkShipped 标记批次出运。仅当出运状态为 ELIGIBLE 时允许,
// 置 is_shipped 并追加 EXPORTED 活动;is_shipped 一旦为 true,
// 状态变为 SHIPPED,二次出运自然被拒绝
func (s *batchService) MarkShipped(ctx context.Context, code string) (*model.Activity, error) {
	batch, err := s.Get(code)
	if err != nil {
		return nil, err
	}
	if batch.ShipmentStatus() != model.ShipmentEligible {
		return nil, fmt.Errorf("batch %s status %s: %w", code, batch.ShipmentStatus(), ErrNotEligible)
	}

	activity := &model.Activity{
		ID:        uuid.New().String(),
		BatchCode: batch.Code,
		Date:      s.nowFn(),
		Kind:      model.ActivityExported,
		Location:  batch.Farm.Location,
		Actor:     batch.Farm.ActorName(),
		Note:      "Batch shipped for export",
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.HarvestBatch{}).Where("code = ?", batch.Code).
			Update("is_shipped", true).Error; err != nil {
			return fmt.Errorf("failed to mark batch shipped: %w", err)
		}
		return repository.NewActivityRepository(tx).Create(activity)
	})
	if err != nil {
		return nil, err
	}
	batch.IsShipped = true

	metrics.RecordShipmentEvent("shipped")
	s.recordAudit(ctx, "ship", "batch", batch.Code, nil)
	s.publish(activity)

	return activity, nil
}

// MarkReceived 标记批次已被目的地接收,每个批次最多一条
// RECEIVED 活动,重复接收被拒绝
func (s *batchService) MarkReceived(ctx context.Context, code string) (*model.Activity, error) {
	batch, err := s.Get(code)
	if err != nil {
		return nil, err
	}

	exists, err := repository.NewActivityRepository(s.db).ExistsKind(batch.Code, model.ActivityReceived)
	if err != nil {
		return nil, fmt.Errorf("failed to check received activity: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("batch %s: %w", code, ErrAlreadyReceived)
	}

	activity := &model.Activity{
		ID:        uuid.New().String(),
		BatchCode: batch.Code,
		Date:      s.nowFn(),
		Kind:      model.ActivityReceived,
		Location:  batch.Destination,
		Actor:     batch.Farm.ActorName(),
		Note:      "Batch received at destination",
	}
	if err := repository.NewActivityRepository(s.db).Create(activity); err != nil {
		return nil, fmt.Errorf("failed to create received activity: %w", err)
	}

	metrics.RecordShipmentEvent("received")
	s.recordAudit(ctx, "receive", "batch", batch.Code, nil)
	s.publish(activity)

	return activity, nil
}

// AddManualActivity 手动追加一条活动。无论调用方声明什么类型,
// 一律记为 OTHER
func (s *batchService) AddManualActivity(ctx context.Context, code string, req *ManualActivityRequest) (*model.Activity, error) {
	batch, err := s.Get(code)
	if err != nil {
		return nil, err
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if req.Location == "" {
		return nil, NewValidationError("location", "is required")
	}

	actor := req.Actor
	if actor == "" {
		if user := auth.UserFromContext(ctx); user != nil {
			actor = user.DisplayName()
		}
	}
	if actor == "" {
		return nil, NewValidationError("actor", "is required")
	}

	activity := &model.Activity{
		ID:        uuid.New().String(),
		BatchCode: batch.Code,
		Date:      date,
		Kind:      model.ActivityOther,
		Location:  req.Location,
		Actor:     actor,
		Note:      req.Note,
	}
	if err := repository.NewActivityRepository(s.db).Create(activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	s.recordAudit(ctx, "add_activity", "batch", batch.Code, map[string]interface{}{"activity_id": activity.ID})
	s.publish(activity)

	return activity, nil
}

// Update 更新批次的可变字段,养殖场与编码创建后不可变更
func (s *batchService) Update(ctx context.Context, code string, req *UpdateBatchRequest) (*model.HarvestBatch, error) {
	batch, err := s.Get(code)
	if err != nil {
		return nil, err
	}

	if req.PlantingDate != "" {
		plantingDate, err := parseOptionalDate("planting_date", req.PlantingDate)
		if err != nil {
			return nil, err
		}
		batch.PlantingDate = plantingDate
	}
	if req.HarvestDate != "" {
		harvestDate, err := parseDate("harvest_date", req.HarvestDate)
		if err != nil {
			return nil, err
		}
		batch.HarvestDate = harvestDate
	}
	if req.VolumeKG > 0 {
		batch.VolumeKG = req.VolumeKG
	}
	if req.Destination != "" {
		batch.Destination = req.Destination
	}

	if err := batch.Validate(); err != nil {
		return nil, NewValidationError("batch", err.Error())
	}
	if err := repository.NewBatchRepository(s.db).Save(batch); err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}

	s.recordAudit(ctx, "update", "batch", batch.Code, nil)
	return batch, nil
}

// Delete 删除批次及其全部活动与检测记录
func (s *batchService) Delete(ctx context.Context, code string) error {
	if _, err := s.Get(code); err != nil {
		return err
	}
	if err := repository.NewBatchRepository(s.db).Delete(code); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	s.recordAudit(ctx, "delete", "batch", code, nil)
	return nil
}

// recordAudit 记录审计日志,未认证请求不记录
func (s *batchService) recordAudit(ctx context.Context, action, resourceType, resourceID string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	user := auth.UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, user.ID, action, resourceType, resourceID, details)
}

// publish 广播单条活动
func (s *batchService) publish(activity *model.Activity) {
	if s.notifier != nil && activity != nil {
		s.notifier.PublishActivity(activity)
	}
}

// publishAll 广播多条活动
func (s *batchService) publishAll(activities []*model.Activity) {
	for _, activity := range activities {
		s.publish(activity)
	}
}

// parseDate 解析必填日期字段
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, NewValidationError(field, "is required")
	}
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be in YYYY-MM-DD format")
	}
	return date, nil
}

// parseOptionalDate 解析可选日期字段,空值返回 nil
func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, NewValidationError(field, "must be in YYYY-MM-DD format")
	}
	return &date, nil
}

// isDuplicateCode 判断错误是否为批次编码唯一约束冲突
func isDuplicateCode(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

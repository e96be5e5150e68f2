package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/pandora-hackathon/jejak-air/internal/utils"
)

// BatchController 收获批次控制器
type BatchController struct {
	batchService service.BatchService
}

// NewBatchController 创建收获批次控制器
func NewBatchController(batchService service.BatchService) *BatchController {
	return &BatchController{
		batchService: batchService,
	}
}

// validateCode 验证批次编码并返回错误响应（如果无效）
func (c *BatchController) validateCode(ctx *gin.Context, code string) bool {
	if err := utils.ValidateBatchCode(code); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid batch code", err.Error())
		return false
	}
	return true
}

// Create 创建批次
// @Summary      创建收获批次
// @Description  登记新的收获批次,编码留空时自动生成,并播种时间线种子活动
// @Tags         批次管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateBatchRequest true "批次信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /batches [post]
// @Security     BearerAuth
func (c *BatchController) Create(ctx *gin.Context) {
	var req service.CreateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	batch, err := c.batchService.Create(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err, "create batch")
		return
	}

	Created(ctx, batch)
}

// List 批次列表
// @Summary      批次列表
// @Description  管理员与质检员看全部批次,场主只看自己名下的批次
// @Tags         批次管理
// @Produce      json
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /batches [get]
// @Security     BearerAuth
func (c *BatchController) List(ctx *gin.Context) {
	user := auth.UserFromContext(ctx.Request.Context())

	var batches []*model.HarvestBatch
	var err error
	if user != nil && user.Role == model.RoleFarmOwner {
		batches, err = c.batchService.ListByOwner(user.ID)
	} else {
		batches, err = c.batchService.List()
	}
	if err != nil {
		HandleServiceError(ctx, err, "list batches")
		return
	}

	Success(ctx, batches)
}

// Get 获取批次详情
// @Summary      获取批次详情
// @Description  根据批次编码获取批次详情
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code} [get]
// @Security     BearerAuth
func (c *BatchController) Get(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	batch, err := c.batchService.Get(code)
	if err != nil {
		HandleServiceError(ctx, err, "get batch")
		return
	}

	Success(ctx, batch)
}

// Update 更新批次
// @Summary      更新批次
// @Description  更新批次的可变字段,养殖场与编码不可变更
// @Tags         批次管理
// @Accept       json
// @Produce      json
// @Param        code path string true "批次编码"
// @Param        request body service.UpdateBatchRequest true "批次信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code} [put]
// @Security     BearerAuth
func (c *BatchController) Update(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	var req service.UpdateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	batch, err := c.batchService.Update(ctx.Request.Context(), code, &req)
	if err != nil {
		HandleServiceError(ctx, err, "update batch")
		return
	}

	Success(ctx, batch)
}

// Delete 删除批次
// @Summary      删除批次
// @Description  删除批次及其全部活动与检测记录
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code} [delete]
// @Security     BearerAuth
func (c *BatchController) Delete(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	if err := c.batchService.Delete(ctx.Request.Context(), code); err != nil {
		HandleServiceError(ctx, err, "delete batch")
		return
	}

	Success(ctx, nil)
}

// Timeline 批次时间线
// @Summary      批次时间线
// @Description  按事件日期与创建时间顺序返回批次全部溯源活动
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code}/timeline [get]
// @Security     BearerAuth
func (c *BatchController) Timeline(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	activities, err := c.batchService.Timeline(code)
	if err != nil {
		HandleServiceError(ctx, err, "get timeline")
		return
	}

	Success(ctx, activities)
}

// ShipmentStatus 批次出运状态
// @Summary      批次出运状态
// @Description  返回批次当前出运状态: NOT_YET_REVIEWED / ELIGIBLE / HELD / SHIPPED
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code}/shipment-status [get]
// @Security     BearerAuth
func (c *BatchController) ShipmentStatus(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	status, err := c.batchService.ShipmentStatus(code)
	if err != nil {
		HandleServiceError(ctx, err, "get shipment status")
		return
	}

	Success(ctx, gin.H{"code": code, "shipment_status": status})
}

// Ship 标记批次出运
// @Summary      标记批次出运
// @Description  仅当批次出运状态为 ELIGIBLE 时允许,追加 EXPORTED 活动
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /batches/{code}/ship [post]
// @Security     BearerAuth
func (c *BatchController) Ship(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	activity, err := c.batchService.MarkShipped(ctx.Request.Context(), code)
	if err != nil {
		HandleServiceError(ctx, err, "ship batch")
		return
	}

	Success(ctx, activity)
}

// Receive 标记批次已接收
// @Summary      标记批次已接收
// @Description  目的地确认收货,追加 RECEIVED 活动,重复接收被拒绝
// @Tags         批次管理
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /batches/{code}/receive [post]
// @Security     BearerAuth
func (c *BatchController) Receive(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	activity, err := c.batchService.MarkReceived(ctx.Request.Context(), code)
	if err != nil {
		HandleServiceError(ctx, err, "receive batch")
		return
	}

	Success(ctx, activity)
}

// AddActivity 手动追加活动
// @Summary      手动追加活动
// @Description  向批次时间线追加一条 OTHER 类型的活动
// @Tags         批次管理
// @Accept       json
// @Produce      json
// @Param        code path string true "批次编码"
// @Param        request body service.ManualActivityRequest true "活动信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code}/activities [post]
// @Security     BearerAuth
func (c *BatchController) AddActivity(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	var req service.ManualActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	activity, err := c.batchService.AddManualActivity(ctx.Request.Context(), code, &req)
	if err != nil {
		HandleServiceError(ctx, err, "add activity")
		return
	}

	Created(ctx, activity)
}

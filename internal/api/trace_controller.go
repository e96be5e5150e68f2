package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/pandora-hackathon/jejak-air/internal/utils"
)

// TraceController 公开溯源查询控制器,不需要认证
type TraceController struct {
	batchService   service.BatchService
	labTestService service.LabTestService
}

// NewTraceController 创建溯源查询控制器
func NewTraceController(batchService service.BatchService, labTestService service.LabTestService) *TraceController {
	return &TraceController{
		batchService:   batchService,
		labTestService: labTestService,
	}
}

// TraceResult 溯源查询结果
// @Description 批次溯源结果,包含批次、时间线与检测记录
type TraceResult struct {
	Batch          *model.HarvestBatch `json:"batch"`              // 批次详情
	ShipmentStatus string              `json:"shipment_status"`    // 出运状态
	Timeline       []*model.Activity   `json:"timeline"`           // 溯源时间线
	LabTest        *model.LabTest      `json:"lab_test,omitempty"` // 检测记录(如有)
}

// Trace 批次溯源查询
// @Summary      批次溯源查询
// @Description  根据批次编码公开查询批次详情、出运状态、溯源时间线与检测记录
// @Tags         溯源查询
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /trace/{code} [get]
func (c *TraceController) Trace(ctx *gin.Context) {
	code := ctx.Param("code")
	if err := utils.ValidateBatchCode(code); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid batch code", err.Error())
		return
	}

	batch, err := c.batchService.Get(code)
	if err != nil {
		HandleServiceError(ctx, err, "trace batch")
		return
	}

	timeline, err := c.batchService.Timeline(code)
	if err != nil {
		HandleServiceError(ctx, err, "trace batch")
		return
	}

	result := &TraceResult{
		Batch:          batch,
		ShipmentStatus: batch.ShipmentStatus(),
		Timeline:       timeline,
	}

	// 检测记录可能尚不存在
	if test, err := c.labTestService.GetByBatch(code); err == nil {
		result.LabTest = test
	}

	Success(ctx, result)
}

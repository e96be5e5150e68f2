package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/pandora-hackathon/jejak-air/internal/utils"
)

// LabController 实验室与检测结果控制器
type LabController struct {
	labTestService service.LabTestService
	labService     service.LabService
}

// NewLabController 创建实验室控制器
func NewLabController(labTestService service.LabTestService, labService service.LabService) *LabController {
	return &LabController{
		labTestService: labTestService,
		labService:     labService,
	}
}

// SubmitTest 提交检测结果
// @Summary      提交检测结果
// @Description  为批次提交 Cs-137 检测结果,并同步执行风险重算级联,
// @Description  每个批次只接受一条检测记录
// @Tags         质量检测
// @Accept       json
// @Produce      json
// @Param        code path string true "批次编码"
// @Param        request body service.SubmitLabTestRequest true "检测结果"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /batches/{code}/lab-test [post]
// @Security     BearerAuth
func (c *LabController) SubmitTest(ctx *gin.Context) {
	code := ctx.Param("code")
	if err := utils.ValidateBatchCode(code); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid batch code", err.Error())
		return
	}

	var req service.SubmitLabTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	test, err := c.labTestService.Submit(ctx.Request.Context(), code, &req)
	if err != nil {
		HandleServiceError(ctx, err, "submit lab test")
		return
	}

	Created(ctx, test)
}

// GetTest 获取批次检测记录
// @Summary      获取批次检测记录
// @Tags         质量检测
// @Produce      json
// @Param        code path string true "批次编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{code}/lab-test [get]
// @Security     BearerAuth
func (c *LabController) GetTest(ctx *gin.Context) {
	code := ctx.Param("code")
	if err := utils.ValidateBatchCode(code); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid batch code", err.Error())
		return
	}

	test, err := c.labTestService.GetByBatch(code)
	if err != nil {
		HandleServiceError(ctx, err, "get lab test")
		return
	}

	Success(ctx, test)
}

// PendingBatches 待检批次
// @Summary      待检批次
// @Description  返回尚无检测记录的批次,按收获日期排序,供质检面板使用
// @Tags         质量检测
// @Produce      json
// @Success      200  {object}  Response
// @Router       /lab-tests/pending [get]
// @Security     BearerAuth
func (c *LabController) PendingBatches(ctx *gin.Context) {
	batches, err := c.labTestService.PendingBatches()
	if err != nil {
		HandleServiceError(ctx, err, "list pending batches")
		return
	}

	Success(ctx, batches)
}

// History 质检员检测历史
// @Summary      质检员检测历史
// @Description  返回当前质检员提交的全部检测记录
// @Tags         质量检测
// @Produce      json
// @Success      200  {object}  Response
// @Router       /lab-tests/history [get]
// @Security     BearerAuth
func (c *LabController) History(ctx *gin.Context) {
	tests, err := c.labTestService.HistoryByQC(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err, "get lab test history")
		return
	}

	Success(ctx, tests)
}

// CreateLaboratory 创建实验室
// @Summary      创建实验室
// @Tags         参考数据
// @Accept       json
// @Produce      json
// @Param        request body service.LaboratoryRequest true "实验室信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /laboratories [post]
// @Security     BearerAuth
func (c *LabController) CreateLaboratory(ctx *gin.Context) {
	var req service.LaboratoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	lab, err := c.labService.CreateLaboratory(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err, "create laboratory")
		return
	}

	Created(ctx, lab)
}

// ListLaboratories 实验室列表
// @Summary      实验室列表
// @Tags         参考数据
// @Produce      json
// @Success      200  {object}  Response
// @Router       /laboratories [get]
// @Security     BearerAuth
func (c *LabController) ListLaboratories(ctx *gin.Context) {
	labs, err := c.labService.ListLaboratories()
	if err != nil {
		HandleServiceError(ctx, err, "list laboratories")
		return
	}

	Success(ctx, labs)
}

// DeleteLaboratory 删除实验室
// @Summary      删除实验室
// @Tags         参考数据
// @Produce      json
// @Param        id path int true "实验室 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /laboratories/{id} [delete]
// @Security     BearerAuth
func (c *LabController) DeleteLaboratory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.labService.DeleteLaboratory(ctx.Request.Context(), id); err != nil {
		HandleServiceError(ctx, err, "delete laboratory")
		return
	}

	Success(ctx, nil)
}

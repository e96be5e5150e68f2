package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/service"
)

// FarmController 养殖场控制器
type FarmController struct {
	farmService service.FarmService
}

// NewFarmController 创建养殖场控制器
func NewFarmController(farmService service.FarmService) *FarmController {
	return &FarmController{
		farmService: farmService,
	}
}

// parseID 解析路径中的数字 ID
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "invalid "+name, err.Error())
		return 0, false
	}
	return uint(id), true
}

// Create 创建养殖场
// @Summary      创建养殖场
// @Description  登记新的养殖场,场主为当前用户
// @Tags         养殖场管理
// @Accept       json
// @Produce      json
// @Param        request body service.FarmRequest true "养殖场信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /farms [post]
// @Security     BearerAuth
func (c *FarmController) Create(ctx *gin.Context) {
	var req service.FarmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	farm, err := c.farmService.CreateFarm(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err, "create farm")
		return
	}

	Created(ctx, farm)
}

// List 养殖场列表
// @Summary      养殖场列表
// @Description  管理员看全部养殖场,场主只看自己名下的
// @Tags         养殖场管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /farms [get]
// @Security     BearerAuth
func (c *FarmController) List(ctx *gin.Context) {
	farms, err := c.farmService.ListFarms(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err, "list farms")
		return
	}

	Success(ctx, farms)
}

// Get 获取养殖场详情
// @Summary      获取养殖场详情
// @Tags         养殖场管理
// @Produce      json
// @Param        id path int true "养殖场 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /farms/{id} [get]
// @Security     BearerAuth
func (c *FarmController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	farm, err := c.farmService.GetFarm(id)
	if err != nil {
		HandleServiceError(ctx, err, "get farm")
		return
	}

	Success(ctx, farm)
}

// Update 更新养殖场
// @Summary      更新养殖场
// @Description  更新养殖场基本信息,风险评分由系统维护不可修改
// @Tags         养殖场管理
// @Accept       json
// @Produce      json
// @Param        id path int true "养殖场 ID"
// @Param        request body service.FarmRequest true "养殖场信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /farms/{id} [put]
// @Security     BearerAuth
func (c *FarmController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req service.FarmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	farm, err := c.farmService.UpdateFarm(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err, "update farm")
		return
	}

	Success(ctx, farm)
}

// Delete 删除养殖场
// @Summary      删除养殖场
// @Tags         养殖场管理
// @Produce      json
// @Param        id path int true "养殖场 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /farms/{id} [delete]
// @Security     BearerAuth
func (c *FarmController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.farmService.DeleteFarm(ctx.Request.Context(), id); err != nil {
		HandleServiceError(ctx, err, "delete farm")
		return
	}

	Success(ctx, nil)
}

// RecalculateRisk 重算养殖场风险
// @Summary      重算养殖场风险
// @Description  基于最近 180 天批次的问题比例重算养殖场风险评分
// @Tags         养殖场管理
// @Produce      json
// @Param        id path int true "养殖场 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /farms/{id}/recalculate-risk [post]
// @Security     BearerAuth
func (c *FarmController) RecalculateRisk(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	score, err := c.farmService.RecalculateRisk(ctx.Request.Context(), id)
	if err != nil {
		HandleServiceError(ctx, err, "recalculate farm risk")
		return
	}

	Success(ctx, gin.H{"farm_id": id, "risk_score": score})
}

// CreateCity 创建城市
// @Summary      创建城市
// @Description  登记城市参考数据,编码用于批次编码前缀
// @Tags         参考数据
// @Accept       json
// @Produce      json
// @Param        request body service.CityRequest true "城市信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /cities [post]
// @Security     BearerAuth
func (c *FarmController) CreateCity(ctx *gin.Context) {
	var req service.CityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	city, err := c.farmService.CreateCity(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err, "create city")
		return
	}

	Created(ctx, city)
}

// ListCities 城市列表
// @Summary      城市列表
// @Tags         参考数据
// @Produce      json
// @Success      200  {object}  Response
// @Router       /cities [get]
// @Security     BearerAuth
func (c *FarmController) ListCities(ctx *gin.Context) {
	cities, err := c.farmService.ListCities()
	if err != nil {
		HandleServiceError(ctx, err, "list cities")
		return
	}

	Success(ctx, cities)
}

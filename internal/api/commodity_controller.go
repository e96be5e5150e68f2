package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/service"
)

// CommodityController 商品控制器
type CommodityController struct {
	commodityService service.CommodityService
}

// NewCommodityController 创建商品控制器
func NewCommodityController(commodityService service.CommodityService) *CommodityController {
	return &CommodityController{
		commodityService: commodityService,
	}
}

// Create 创建商品
// @Summary      创建商品
// @Description  登记商品参考数据,可配置 Cs-137 安全阈值
// @Tags         参考数据
// @Accept       json
// @Produce      json
// @Param        request body service.CommodityRequest true "商品信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /commodities [post]
// @Security     BearerAuth
func (c *CommodityController) Create(ctx *gin.Context) {
	var req service.CommodityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	commodity, err := c.commodityService.CreateCommodity(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err, "create commodity")
		return
	}

	Created(ctx, commodity)
}

// List 商品列表
// @Summary      商品列表
// @Tags         参考数据
// @Produce      json
// @Success      200  {object}  Response
// @Router       /commodities [get]
// @Security     BearerAuth
func (c *CommodityController) List(ctx *gin.Context) {
	commodities, err := c.commodityService.ListCommodities()
	if err != nil {
		HandleServiceError(ctx, err, "list commodities")
		return
	}

	Success(ctx, commodities)
}

// Get 获取商品详情
// @Summary      获取商品详情
// @Tags         参考数据
// @Produce      json
// @Param        id path int true "商品 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /commodities/{id} [get]
// @Security     BearerAuth
func (c *CommodityController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	commodity, err := c.commodityService.GetCommodity(id)
	if err != nil {
		HandleServiceError(ctx, err, "get commodity")
		return
	}

	Success(ctx, commodity)
}

// Update 更新商品
// @Summary      更新商品
// @Description  阈值变更只影响之后提交的检测记录
// @Tags         参考数据
// @Accept       json
// @Produce      json
// @Param        id path int true "商品 ID"
// @Param        request body service.CommodityRequest true "商品信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /commodities/{id} [put]
// @Security     BearerAuth
func (c *CommodityController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req service.CommodityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	commodity, err := c.commodityService.UpdateCommodity(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err, "update commodity")
		return
	}

	Success(ctx, commodity)
}

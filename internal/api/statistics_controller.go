package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/service"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{
		statisticsService: statisticsService,
	}
}

// ByQuality 按质量状态统计
// @Summary      按质量状态统计批次
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/batches/by-quality [get]
// @Security     BearerAuth
func (c *StatisticsController) ByQuality(ctx *gin.Context) {
	stats, err := c.statisticsService.GetBatchStatisticsByQuality()
	if err != nil {
		HandleServiceError(ctx, err, "get quality statistics")
		return
	}

	Success(ctx, stats)
}

// ByFarm 按养殖场统计
// @Summary      按养殖场统计批次
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/batches/by-farm [get]
// @Security     BearerAuth
func (c *StatisticsController) ByFarm(ctx *gin.Context) {
	stats, err := c.statisticsService.GetBatchStatisticsByFarm()
	if err != nil {
		HandleServiceError(ctx, err, "get farm statistics")
		return
	}

	Success(ctx, stats)
}

// ByTime 按收获日期统计
// @Summary      按收获日期统计批次
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/batches/by-time [get]
// @Security     BearerAuth
func (c *StatisticsController) ByTime(ctx *gin.Context) {
	stats, err := c.statisticsService.GetBatchStatisticsByTime()
	if err != nil {
		HandleServiceError(ctx, err, "get time statistics")
		return
	}

	Success(ctx, stats)
}

// Export 出口统计
// @Summary      出口全局统计
// @Description  批次总数、已检数、已运数、滞留数、问题数、平均风险与重量汇总
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/export [get]
// @Security     BearerAuth
func (c *StatisticsController) Export(ctx *gin.Context) {
	stats, err := c.statisticsService.GetExportStatistics()
	if err != nil {
		HandleServiceError(ctx, err, "get export statistics")
		return
	}

	Success(ctx, stats)
}

// Owner 场主面板统计
// @Summary      场主面板统计
// @Description  当前场主的养殖场数、批次数、待检数、已运数与总重量
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  ErrorResponse
// @Router       /statistics/owner [get]
// @Security     BearerAuth
func (c *StatisticsController) Owner(ctx *gin.Context) {
	user := auth.UserFromContext(ctx.Request.Context())
	if user == nil || user.ID == "" {
		Error(ctx, http.StatusUnauthorized, "authentication required", "")
		return
	}

	stats, err := c.statisticsService.GetOwnerStatistics(user.ID)
	if err != nil {
		HandleServiceError(ctx, err, "get owner statistics")
		return
	}

	Success(ctx, stats)
}

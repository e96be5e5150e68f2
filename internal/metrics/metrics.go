package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 批次创建数
	batchesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_created_total",
			Help: "Total number of harvest batches created",
		},
	)

	// 检测记录数,按结论分
	labTestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_tests_total",
			Help: "Total number of lab tests recorded",
		},
		[]string{"conclusion"}, // SAFE, PROBLEM
	)

	// 出运/接收操作数
	shipmentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipment_events_total",
			Help: "Total number of shipment lifecycle events",
		},
		[]string{"event"}, // shipped, received
	)

	// 风险重算次数
	riskRecalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_recalculations_total",
			Help: "Total number of risk score recalculations",
		},
		[]string{"entity"}, // farm, batch
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 批次质量状态分布
	batchesByQualityStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batches_by_quality_status",
			Help: "Number of harvest batches by quality status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(batchesCreatedTotal)
	prometheus.MustRegister(labTestsTotal)
	prometheus.MustRegister(shipmentEventsTotal)
	prometheus.MustRegister(riskRecalculationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(batchesByQualityStatus)

	// 注册 Go 运行时指标(只注册一次)
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBatchCreated 记录批次创建
func RecordBatchCreated() {
	batchesCreatedTotal.Inc()
}

// RecordLabTest 记录检测结果提交
func RecordLabTest(conclusion string) {
	labTestsTotal.WithLabelValues(conclusion).Inc()
}

// RecordShipmentEvent 记录出运生命周期事件
func RecordShipmentEvent(event string) {
	shipmentEventsTotal.WithLabelValues(event).Inc()
}

// RecordRiskRecalculation 记录风险重算
func RecordRiskRecalculation(entity string) {
	riskRecalculationsTotal.WithLabelValues(entity).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateBatchesByQualityStatus 更新批次质量状态分布指标
func UpdateBatchesByQualityStatus(status string, count float64) {
	batchesByQualityStatus.WithLabelValues(status).Set(count)
}

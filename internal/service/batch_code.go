package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// BatchCodeGenerator 批次编码生成器。
// 编码格式: {CITY}-F{farmID:4位}-{YYYYMMDD}-{seq:3位},
// 同一前缀下的序号分配是读后写,必须按前缀串行化,
// 否则并发创建会产生重复序号
type BatchCodeGenerator struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	nowFn func() time.Time
}

// NewBatchCodeGenerator 创建批次编码生成器
func NewBatchCodeGenerator() *BatchCodeGenerator {
	return &BatchCodeGenerator{
		locks: make(map[string]*sync.Mutex),
		nowFn: time.Now,
	}
}

// Prefix 构建批次编码前缀。日期部分取收获日期,收获日期未知时
// 取当前日期;城市编码未配置时回退到 "XXX"
func (g *BatchCodeGenerator) Prefix(farm *model.Farm, harvestDate time.Time) string {
	date := harvestDate
	if date.IsZero() {
		date = g.nowFn()
	}
	return fmt.Sprintf("%s-F%04d-%s-", farm.CityCode(), farm.ID, date.Format("20060102"))
}

// Acquire 获取前缀级别的锁,返回解锁函数。
// 调用方必须在"查询最大序号 + 插入批次"的完整区间内持有锁
func (g *BatchCodeGenerator) Acquire(prefix string) func() {
	g.mu.Lock()
	lock, ok := g.locks[prefix]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[prefix] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Next 基于已有编码生成该前缀下的下一个编码。
// 解析尾部序号时采取防御策略,畸形序号按 0 处理
func (g *BatchCodeGenerator) Next(tx *gorm.DB, prefix string) (string, error) {
	maxCode, err := repository.NewBatchRepository(tx).MaxCodeWithPrefix(prefix)
	if err != nil {
		return "", fmt.Errorf("failed to query existing batch codes: %w", err)
	}

	seq := 0
	if maxCode != "" {
		suffix := strings.TrimPrefix(maxCode, prefix)
		if parsed, err := strconv.Atoi(suffix); err == nil {
			seq = parsed
		}
	}

	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}

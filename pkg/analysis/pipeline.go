package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quekou/quekou/pkg/errors"
	"github.com/quekou/quekou/pkg/logger"
	"github.com/quekou/quekou/pkg/model"
)

// Pipeline 单次分析运行的完整流水线
// 运行状态全部装在本对象与调用参数里，不依赖任何进程级缓存；
// 相同输入与配置重复运行得到逐字节相同的缺口记录
type Pipeline struct {
	cfg  model.EngineConfig
	stat Statistic
	log  *logger.AnalysisLogger
}

// NewPipeline 创建流水线
// 配置校验在此一次性完成，统计策略也在此选定，
// 计算过程中不再出现按方法名的分支
func NewPipeline(cfg model.EngineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stat, err := NewStatistic(cfg.StatisticMethod)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:  cfg,
		stat: stat,
		log:  logger.NewAnalysisLogger(),
	}, nil
}

// Config 返回流水线持有的配置副本
func (p *Pipeline) Config() model.EngineConfig {
	return p.cfg
}

// Run 执行一次完整的缺口分析
// 流程：归一化 → 在岗聚合（含可加性检查）→ 逐月 基线→缺口→防护 → 合并
func (p *Pipeline) Run(ctx context.Context, orgID uuid.UUID, records []*model.AttendanceRecord, window model.DateRange) (*model.RunResult, error) {
	if !window.Valid() {
		return nil, errors.InvalidTimeRange(window.StartDate, window.EndDate)
	}

	runID := uuid.New()
	started := time.Now()
	p.log.StartRun(runID.String(), len(records), window.StartDate, window.EndDate)

	normalizer := NewNormalizer(p.cfg)
	normalized := normalizer.Normalize(records)

	aggregator := NewAggregator(p.cfg)
	occupancy := aggregator.Aggregate(normalized.Occupancies)
	warnings := aggregator.CheckAdditivity(occupancy.FilterByDates(window.Days()))

	period := NewPeriodAnalyzer(p.cfg, p.stat)
	periodResult, err := period.Run(ctx, occupancy, window)
	if err != nil {
		return nil, err
	}

	result := &model.RunResult{
		Records:    periodResult.Records,
		Summaries:  p.summarize(periodResult.Records),
		Months:     periodResult.Months,
		TotalHours: periodResult.ShortageHours,
		Meta: model.RunMetadata{
			RunID:           runID,
			OrgID:           orgID,
			StatisticMethod: string(p.cfg.StatisticMethod),
			SlotMinutes:     p.cfg.SlotMinutes,
			IQRMultiplier:   p.cfg.IQRMultiplier,
			ReferenceWindow: p.cfg.ReferenceWindow,
			AnalysisWindow:  window,
			GuardState:      string(periodResult.State),
			Flags:           periodResult.Flags,
			Warnings:        append(warnings, periodResult.Warnings...),
			Rejected:        normalized.Rejected,
			RecordCount:     len(records),
			StartedAt:       started,
			Duration:        time.Since(started),
		},
	}

	for _, flag := range periodResult.Flags {
		p.log.AnomalyFlagged(runID.String(), string(flag.Kind), flag.Reference)
	}
	p.log.RunComplete(runID.String(), result.Meta.Duration, result.TotalHours, len(periodResult.Flags))

	return result, nil
}

// summarize 按维度汇总需求/在岗/缺口/富余工时
func (p *Pipeline) summarize(records []model.ShortageRecord) []model.DimensionSummary {
	slotHours := p.cfg.SlotHours()
	byDim := make(map[model.DimensionKey]*model.DimensionSummary)
	var dims []model.DimensionKey

	for _, rec := range records {
		s := byDim[rec.Dimension]
		if s == nil {
			s = &model.DimensionSummary{Dimension: rec.Dimension}
			byDim[rec.Dimension] = s
			dims = append(dims, rec.Dimension)
		}
		s.NeedHours += rec.Need * slotHours
		s.ActualHours += rec.Actual * slotHours
		s.ShortageHours += rec.Shortage * slotHours
		s.ExcessHours += rec.Excess * slotHours
	}

	sort.Slice(dims, func(i, j int) bool {
		return dims[i].String() < dims[j].String()
	})
	summaries := make([]model.DimensionSummary, 0, len(dims))
	for _, dim := range dims {
		summaries = append(summaries, *byDim[dim])
	}
	return summaries
}

// ScenarioResult 单个统计方法场景的运行结果
type ScenarioResult struct {
	Method model.StatisticMethod `json:"method"`
	Result *model.RunResult      `json:"result,omitempty"`
	Err    error                 `json:"-"`
}

// RunScenarios 在同一份输入上并行运行 mean/median/p25 三种场景
// 各场景持有独立流水线，互不修改对方结果
func RunScenarios(ctx context.Context, cfg model.EngineConfig, orgID uuid.UUID, records []*model.AttendanceRecord, window model.DateRange) ([]ScenarioResult, error) {
	methods := model.AllStatisticMethods()
	results := make([]ScenarioResult, len(methods))

	var wg sync.WaitGroup
	for i, method := range methods {
		wg.Add(1)
		go func(i int, method model.StatisticMethod) {
			defer wg.Done()
			scenarioCfg := cfg
			scenarioCfg.StatisticMethod = method
			results[i] = ScenarioResult{Method: method}

			pipeline, err := NewPipeline(scenarioCfg)
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Result, results[i].Err = pipeline.Run(ctx, orgID, records, window)
		}(i, method)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			return results, r.Err
		}
	}
	return results, nil
}

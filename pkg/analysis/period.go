package analysis

import (
	"context"
	"sync"

	"github.com/quekou/quekou/pkg/errors"
	"github.com/quekou/quekou/pkg/model"
)

// PeriodAnalyzer 周期归一化器
// 把跨多月的分析窗口按自然月切分，逐月独立计算基线与缺口后
// 求和合成周期总量。基线只取月内样本或配置的参考窗口，
// 绝不在多月合并样本上重算，周期总量因此保持可加
type PeriodAnalyzer struct {
	cfg  model.EngineConfig
	stat Statistic
}

// NewPeriodAnalyzer 创建周期归一化器
func NewPeriodAnalyzer(cfg model.EngineConfig, stat Statistic) *PeriodAnalyzer {
	return &PeriodAnalyzer{cfg: cfg, stat: stat}
}

// PeriodResult 周期分析结果
// 同时暴露逐月明细与周期汇总，调用方可以审计季节波动
type PeriodResult struct {
	Records       []model.ShortageRecord     `json:"records"`
	Months        []model.MonthSummary       `json:"months"`
	Flags         []model.AnomalyFlag        `json:"flags,omitempty"`
	Warnings      []model.ConsistencyWarning `json:"warnings,omitempty"`
	State         GuardState                 `json:"state"`
	ShortageHours float64                    `json:"shortage_hours"`
	ExcessHours   float64                    `json:"excess_hours"`
}

// monthOutcome 单月计算结果（按序号回收，保证合并顺序确定）
type monthOutcome struct {
	index    int
	records  []model.ShortageRecord
	flags    []model.AnomalyFlag
	warnings []model.ConsistencyWarning
	state    GuardState
	summary  model.MonthSummary
}

// Run 执行周期分析
// 各月计算彼此独立且结果不可变，用工作协程池并行，合并是纯求和
func (p *PeriodAnalyzer) Run(ctx context.Context, occupancy *OccupancyTable, window model.DateRange) (*PeriodResult, error) {
	months := window.SplitByMonth()
	if len(months) == 0 {
		return nil, errors.InvalidTimeRange(window.StartDate, window.EndDate)
	}

	outcomes := make([]monthOutcome, len(months))

	jobChan := make(chan int, len(months))
	var wg sync.WaitGroup
	workers := p.cfg.Workers
	if workers > len(months) {
		workers = len(months)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcomes[idx] = p.runMonth(idx, occupancy, months[idx])
				}
			}
		}()
	}
	for i := range months {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "周期分析被取消")
	}

	return p.merge(outcomes), nil
}

// runMonth 对单个月份子范围独立执行 基线→缺口→防护
func (p *PeriodAnalyzer) runMonth(index int, occupancy *OccupancyTable, month model.DateRange) monthOutcome {
	// 基线样本：配置了参考窗口就用参考窗口内的观测，
	// 否则用本月自身的观测；永远不用整个多月样本池
	refWindow := month
	if p.cfg.ReferenceWindow.StartDate != "" && p.cfg.ReferenceWindow.Valid() {
		refWindow = p.cfg.ReferenceWindow
	}
	reference := occupancy.FilterByDates(refWindow.Days())

	calculator := NewBaselineCalculator(p.cfg, p.stat)
	baseline, baselineFlags := calculator.Compute(reference, refWindow)

	actual := occupancy.FilterByDates(month.Days())
	computer := NewShortageComputer(p.cfg)
	records, warnings := computer.Compute(baseline, actual, month)

	guard := NewAnomalyGuard(p.cfg)
	guarded := guard.Apply(records)

	flags := append(baselineFlags, guarded.Flags...)
	state := guarded.State
	if state == GuardClean && len(baselineFlags) > 0 {
		state = GuardFlagged
	}

	slotHours := p.cfg.SlotHours()
	summary := model.MonthSummary{
		Range:     month,
		Days:      month.DayCount(),
		FlagCount: len(flags),
	}
	for _, rec := range guarded.Records {
		if rec.Dimension.Kind != model.DimensionOverall {
			continue
		}
		summary.ShortageHours += rec.Shortage * slotHours
		summary.ExcessHours += rec.Excess * slotHours
	}

	return monthOutcome{
		index:    index,
		records:  guarded.Records,
		flags:    flags,
		warnings: warnings,
		state:    state,
		summary:  summary,
	}
}

// merge 合并逐月结果：记录顺序拼接，总量纯求和
// 不变式：N 个月的周期总量 == 各月总量之和，随月数线性增长
func (p *PeriodAnalyzer) merge(outcomes []monthOutcome) *PeriodResult {
	result := &PeriodResult{State: GuardClean}

	totalDays := 0
	for _, out := range outcomes {
		result.Records = append(result.Records, out.records...)
		result.Months = append(result.Months, out.summary)
		result.Flags = append(result.Flags, out.flags...)
		result.Warnings = append(result.Warnings, out.warnings...)
		result.ShortageHours += out.summary.ShortageHours
		result.ExcessHours += out.summary.ExcessHours
		totalDays += out.summary.Days

		switch out.state {
		case GuardCapped:
			result.State = GuardCapped
		case GuardFlagged:
			if result.State == GuardClean {
				result.State = GuardFlagged
			}
		}
	}

	// 周期膨胀检查：以首月日均缺口为线性基准
	if len(outcomes) > 1 && outcomes[0].summary.Days > 0 {
		refDaily := outcomes[0].summary.ShortageHours / float64(outcomes[0].summary.Days)
		guard := NewAnomalyGuard(p.cfg)
		if flag := guard.CheckPeriodBlowup(result.ShortageHours, totalDays, refDaily); flag != nil {
			result.Flags = append(result.Flags, *flag)
			if result.State == GuardClean {
				result.State = GuardFlagged
			}
		}
	}

	return result
}

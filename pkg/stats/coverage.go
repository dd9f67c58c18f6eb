// Package stats 基于缺口分析结果生成覆盖率与工作量报告
package stats

import (
	"fmt"
	"sort"

	"github.com/quekou/quekou/pkg/model"
)

// CoverageReport 覆盖率报告
type CoverageReport struct {
	// 整体覆盖情况
	TotalSlots         int     `json:"total_slots"`         // 有需求的槽数
	CoveredSlots       int     `json:"covered_slots"`       // 无缺口的槽数
	OverallCoverage    float64 `json:"overall_coverage"`    // 整体覆盖率 (%)
	DemandSatisfaction float64 `json:"demand_satisfaction"` // 需求满足度 sum(min(actual,need))/sum(need) (%)

	// 按日期统计
	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// 按维度统计（岗位/雇佣类型的覆盖率，键为维度规范串）
	DimensionCoverage map[string]float64 `json:"dimension_coverage"`

	// 按槽序号统计（跨天聚合，定位全时段性薄弱点）
	SlotCoverage map[int]float64 `json:"slot_coverage"`

	// 人手不足时段（同日连续缺口槽合并）
	Understaffed []UnderstaffedPeriod `json:"understaffed,omitempty"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date          string  `json:"date"`
	TotalSlots    int     `json:"total_slots"`
	Covered       int     `json:"covered"`
	CoverageRate  float64 `json:"coverage_rate"`
	NeedHours     float64 `json:"need_hours"`
	ActualHours   float64 `json:"actual_hours"`
	ShortageHours float64 `json:"shortage_hours"`
}

// UnderstaffedPeriod 人手不足时段
type UnderstaffedPeriod struct {
	Date          string  `json:"date"`
	StartSlot     int     `json:"start_slot"`
	EndSlot       int     `json:"end_slot"` // 半开区间
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	PeakShortage  float64 `json:"peak_shortage"`  // 时段内最大单槽缺口（人数）
	ShortageHours float64 `json:"shortage_hours"` // 时段内缺口工时
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	slotMinutes int
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(slotMinutes int) *CoverageAnalyzer {
	if slotMinutes <= 0 {
		slotMinutes = model.DefaultSlotMinutes
	}
	return &CoverageAnalyzer{slotMinutes: slotMinutes}
}

// Analyze 从分析结果生成覆盖率报告
// 整体维度驱动每日/每槽/不足时段统计，岗位与雇佣维度各自独立成行
func (c *CoverageAnalyzer) Analyze(result *model.RunResult) *CoverageReport {
	report := &CoverageReport{
		DailyCoverage:     make(map[string]DayCoverage),
		DimensionCoverage: make(map[string]float64),
		SlotCoverage:      make(map[int]float64),
	}
	if result == nil || len(result.Records) == 0 {
		report.OverallCoverage = 100
		report.DemandSatisfaction = 100
		return report
	}

	slotHours := float64(c.slotMinutes) / 60.0

	dailyStats := make(map[string]*DayCoverage)
	slotNeed := make(map[int]float64)
	slotSatisfied := make(map[int]float64)
	dimNeed := make(map[string]float64)
	dimSatisfied := make(map[string]float64)

	var totalNeed, totalSatisfied float64
	overallByDate := make(map[string][]model.ShortageRecord)

	for _, rec := range result.Records {
		satisfied := rec.Actual
		if satisfied > rec.Need {
			satisfied = rec.Need
		}

		key := rec.Dimension.String()
		dimNeed[key] += rec.Need
		dimSatisfied[key] += satisfied

		if rec.Dimension.Kind != model.DimensionOverall {
			continue
		}

		report.TotalSlots++
		if rec.Shortage == 0 {
			report.CoveredSlots++
		}
		totalNeed += rec.Need
		totalSatisfied += satisfied

		day, exists := dailyStats[rec.Date]
		if !exists {
			day = &DayCoverage{Date: rec.Date}
			dailyStats[rec.Date] = day
		}
		day.TotalSlots++
		if rec.Shortage == 0 {
			day.Covered++
		}
		day.NeedHours += rec.Need * slotHours
		day.ActualHours += rec.Actual * slotHours
		day.ShortageHours += rec.Shortage * slotHours

		slotNeed[rec.SlotIndex] += rec.Need
		slotSatisfied[rec.SlotIndex] += satisfied

		overallByDate[rec.Date] = append(overallByDate[rec.Date], rec)
	}

	if report.TotalSlots > 0 {
		report.OverallCoverage = float64(report.CoveredSlots) / float64(report.TotalSlots) * 100
	} else {
		report.OverallCoverage = 100
	}
	if totalNeed > 0 {
		report.DemandSatisfaction = totalSatisfied / totalNeed * 100
	} else {
		report.DemandSatisfaction = 100
	}

	for date, stats := range dailyStats {
		if stats.TotalSlots > 0 {
			stats.CoverageRate = float64(stats.Covered) / float64(stats.TotalSlots) * 100
		}
		report.DailyCoverage[date] = *stats
	}

	for idx, need := range slotNeed {
		if need > 0 {
			report.SlotCoverage[idx] = slotSatisfied[idx] / need * 100
		}
	}

	for key, need := range dimNeed {
		if need > 0 {
			report.DimensionCoverage[key] = dimSatisfied[key] / need * 100
		}
	}

	report.Understaffed = c.mergeUnderstaffed(overallByDate, slotHours)

	return report
}

// mergeUnderstaffed 把同日相邻的缺口槽合并为连续时段
func (c *CoverageAnalyzer) mergeUnderstaffed(byDate map[string][]model.ShortageRecord, slotHours float64) []UnderstaffedPeriod {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var periods []UnderstaffedPeriod
	for _, date := range dates {
		recs := byDate[date]
		sort.Slice(recs, func(i, j int) bool { return recs[i].SlotIndex < recs[j].SlotIndex })

		var cur *UnderstaffedPeriod
		for _, rec := range recs {
			if rec.Shortage <= 0 {
				if cur != nil {
					periods = append(periods, *cur)
					cur = nil
				}
				continue
			}

			if cur != nil && rec.SlotIndex == cur.EndSlot {
				cur.EndSlot = rec.SlotIndex + 1
				cur.EndTime = c.slotClock(rec.SlotIndex + 1)
				cur.ShortageHours += rec.Shortage * slotHours
				if rec.Shortage > cur.PeakShortage {
					cur.PeakShortage = rec.Shortage
				}
				continue
			}

			if cur != nil {
				periods = append(periods, *cur)
			}
			cur = &UnderstaffedPeriod{
				Date:          date,
				StartSlot:     rec.SlotIndex,
				EndSlot:       rec.SlotIndex + 1,
				StartTime:     c.slotClock(rec.SlotIndex),
				EndTime:       c.slotClock(rec.SlotIndex + 1),
				PeakShortage:  rec.Shortage,
				ShortageHours: rec.Shortage * slotHours,
			}
		}
		if cur != nil {
			periods = append(periods, *cur)
		}
	}

	return periods
}

// slotClock 槽序号转当日时刻
func (c *CoverageAnalyzer) slotClock(index int) string {
	minutes := index * c.slotMinutes
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}

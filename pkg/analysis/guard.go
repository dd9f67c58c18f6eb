package analysis

import (
	"fmt"
	"sort"

	"github.com/quekou/quekou/pkg/logger"
	"github.com/quekou/quekou/pkg/model"
)

// GuardState 异常防护状态机状态
// 每次运行从 CLEAN 出发：出现任何标记进入 FLAGGED，
// 触发硬上限封顶则进入 CAPPED
type GuardState string

const (
	GuardClean   GuardState = "clean"
	GuardFlagged GuardState = "flagged"
	GuardCapped  GuardState = "capped"
)

// AnomalyGuard 异常防护器
// 检测并封顶病态结果：单槽超限、负值、单日缺口工时超硬上限，
// 以及缺口总量随分析周期超线性膨胀
type AnomalyGuard struct {
	cfg model.EngineConfig
}

// NewAnomalyGuard 创建异常防护器
func NewAnomalyGuard(cfg model.EngineConfig) *AnomalyGuard {
	return &AnomalyGuard{cfg: cfg}
}

// GuardResult 防护结果
// 被标记的记录一律保留并在元数据中呈现，绝不静默丢弃
type GuardResult struct {
	Records []model.ShortageRecord `json:"records"`
	Flags   []model.AnomalyFlag    `json:"flags"`
	State   GuardState             `json:"state"`
}

// Apply 对缺口记录执行全部防护检查
// 软违规只标记并告警；硬违规执行确定性封顶，封顶系数记入标记，
// 下游据此区分修正值与原始值
func (g *AnomalyGuard) Apply(records []model.ShortageRecord) *GuardResult {
	result := &GuardResult{
		Records: make([]model.ShortageRecord, len(records)),
		State:   GuardClean,
	}
	copy(result.Records, records)

	g.checkSlotValues(result)
	g.checkDailyTotals(result)

	return result
}

// transition 状态机推进：soft → FLAGGED，hard → CAPPED
// CAPPED 不会退回 FLAGGED
func (g *GuardResult) transition(severity model.AnomalySeverity) {
	if severity == model.SeverityHard {
		g.State = GuardCapped
		return
	}
	if g.State == GuardClean {
		g.State = GuardFlagged
	}
}

// flag 记录一个标记并推进状态机
func (g *GuardResult) flag(f model.AnomalyFlag) {
	g.Flags = append(g.Flags, f)
	g.transition(f.Severity)
}

// checkSlotValues 单槽检查：负值与单槽上限
func (g *AnomalyGuard) checkSlotValues(result *GuardResult) {
	ceiling := g.cfg.NeedCeilingPerSlot

	for i := range result.Records {
		rec := &result.Records[i]
		ref := fmt.Sprintf("%s/slot=%d/%s", rec.Date, rec.SlotIndex, rec.Dimension)

		// 负在岗/负需求意味着上游数据损坏
		if rec.Actual < 0 || rec.Need < 0 {
			orig := rec.Need
			if rec.Actual < 0 {
				orig = rec.Actual
				rec.Actual = 0
			}
			if rec.Need < 0 {
				rec.Need = 0
			}
			rec.Shortage = maxf(rec.Need-rec.Actual, 0)
			rec.Excess = maxf(rec.Actual-rec.Need, 0)
			rec.Flags = append(rec.Flags, string(model.AnomalyNegativeValue))
			result.flag(model.AnomalyFlag{
				Reference:         ref,
				Kind:              model.AnomalyNegativeValue,
				Severity:          model.SeverityHard,
				OriginalValue:     orig,
				CorrectedValue:    0,
				AppliedCorrection: "clamped_to_0",
			})
			logger.Warn().
				Str("reference", ref).
				Float64("original", orig).
				Msg("检测到负在岗/负需求，已钳制为0")
		}

		// 单槽需求/缺口超上限：封顶并记录修正
		if rec.Need > ceiling {
			orig := rec.Need
			rec.Need = ceiling
			rec.Shortage = maxf(rec.Need-rec.Actual, 0)
			rec.Excess = maxf(rec.Actual-rec.Need, 0)
			rec.Flags = append(rec.Flags, string(model.AnomalyNeedCeiling))
			result.flag(model.AnomalyFlag{
				Reference:         ref,
				Kind:              model.AnomalyNeedCeiling,
				Severity:          model.SeverityHard,
				OriginalValue:     orig,
				CorrectedValue:    ceiling,
				AppliedCorrection: fmt.Sprintf("capped_to_%g", ceiling),
			})
			logger.Warn().
				Str("reference", ref).
				Float64("before", orig).
				Float64("after", ceiling).
				Msg("单槽需求超过上限，已封顶")
		}
	}
}

// checkDailyTotals 单日检查：整体缺口工时超过硬上限时
// 将当日全部记录按比例缩放到上限，缩放系数记入标记
func (g *AnomalyGuard) checkDailyTotals(result *GuardResult) {
	slotHours := g.cfg.SlotHours()
	maxDaily := g.cfg.MaxShortageHoursDay

	dailyHours := make(map[string]float64)
	var dates []string
	for _, rec := range result.Records {
		if rec.Dimension.Kind != model.DimensionOverall {
			continue
		}
		if _, ok := dailyHours[rec.Date]; !ok {
			dates = append(dates, rec.Date)
		}
		dailyHours[rec.Date] += rec.Shortage * slotHours
	}
	sort.Strings(dates)

	for _, date := range dates {
		total := dailyHours[date]
		if total <= maxDaily {
			continue
		}
		factor := maxDaily / total
		for i := range result.Records {
			if result.Records[i].Date != date {
				continue
			}
			result.Records[i].Shortage *= factor
			result.Records[i].Flags = append(result.Records[i].Flags,
				string(model.AnomalyDailyHoursExceeded))
		}
		result.flag(model.AnomalyFlag{
			Reference:         "day/" + date,
			Kind:              model.AnomalyDailyHoursExceeded,
			Severity:          model.SeverityHard,
			OriginalValue:     total,
			CorrectedValue:    maxDaily,
			AppliedCorrection: fmt.Sprintf("scaled_by_%.4f", factor),
		})
		logger.Warn().
			Str("date", date).
			Float64("before_hours", total).
			Float64("after_hours", maxDaily).
			Float64("factor", factor).
			Msg("单日缺口工时超过硬上限，已按比例缩放")
	}
}

// CheckPeriodBlowup 周期膨胀检查
// 以短参考窗口推出的日均缺口为基准：分析窗口总缺口超过
// 基准×天数×倍数即告警
func (g *AnomalyGuard) CheckPeriodBlowup(totalHours float64, days int, refDailyHours float64) *model.AnomalyFlag {
	if refDailyHours <= 0 || days <= 0 {
		return nil
	}
	expected := refDailyHours * float64(days)
	if totalHours <= expected*g.cfg.BlowupFactor {
		return nil
	}
	logger.Warn().
		Float64("total_hours", totalHours).
		Float64("linear_expected", expected).
		Float64("factor", totalHours/expected).
		Msg("缺口总量随分析周期超线性膨胀")
	return &model.AnomalyFlag{
		Reference:     fmt.Sprintf("period/days=%d", days),
		Kind:          model.AnomalyPeriodBlowup,
		Severity:      model.SeveritySoft,
		OriginalValue: totalHours,
		Detail: fmt.Sprintf("总缺口 %.1f 小时超出线性期望 %.1f 小时的 %.1f 倍",
			totalHours, expected, totalHours/expected),
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

package analysis

import (
	"fmt"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// NeedBaseline 需求基线：(星期, 槽序号, 维度) → 期望在岗人数
// 仅由历史在岗观测推导，绝不读取任何已算出的缺口/需求估计，
// 这是对"循环放大"缺陷的结构性防护
type NeedBaseline struct {
	values map[model.BaselineKey]float64
	dims   []model.DimensionKey
}

// Value 返回指定分组的基线值
func (b *NeedBaseline) Value(weekday time.Weekday, slotIndex int, dim model.DimensionKey) float64 {
	return b.values[model.BaselineKey{Weekday: weekday, SlotIndex: slotIndex, Dimension: dim}]
}

// Dimensions 返回基线覆盖的全部维度（确定性排序）
func (b *NeedBaseline) Dimensions() []model.DimensionKey {
	return b.dims
}

// BaselineCalculator 需求基线计算器
// 对每个 (星期, 槽序号, 维度) 分组：先按 IQR 剔除离群样本，
// 再应用配置选定的统计方法，最后按单槽上限封顶
type BaselineCalculator struct {
	cfg  model.EngineConfig
	stat Statistic
}

// NewBaselineCalculator 创建需求基线计算器
func NewBaselineCalculator(cfg model.EngineConfig, stat Statistic) *BaselineCalculator {
	return &BaselineCalculator{cfg: cfg, stat: stat}
}

// Compute 从参考窗口内的历史在岗表推导需求基线
// 窗口内没有记录的日期按 0 在岗计入样本，缺勤日同样构成历史观测
func (c *BaselineCalculator) Compute(reference *OccupancyTable, window model.DateRange) (*NeedBaseline, []model.AnomalyFlag) {
	baseline := &NeedBaseline{
		values: make(map[model.BaselineKey]float64),
		dims:   reference.Dimensions(),
	}
	var flags []model.AnomalyFlag

	// 参考窗口日期按星期分桶
	datesByWeekday := make(map[time.Weekday][]string)
	for _, date := range window.Days() {
		d, err := time.Parse(model.DateLayout, date)
		if err != nil {
			continue
		}
		datesByWeekday[d.Weekday()] = append(datesByWeekday[d.Weekday()], date)
	}

	slotsPerDay := c.cfg.SlotsPerDay()
	for _, dim := range baseline.dims {
		for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
			dates := datesByWeekday[weekday]
			if len(dates) == 0 {
				continue
			}
			for slotIndex := 0; slotIndex < slotsPerDay; slotIndex++ {
				samples := make([]float64, 0, len(dates))
				for _, date := range dates {
					samples = append(samples,
						float64(reference.Count(SlotKey{Date: date, Index: slotIndex}, dim)))
				}

				value, groupFlags := c.computeGroup(samples, weekday, slotIndex, dim)
				if value > 0 {
					baseline.values[model.BaselineKey{
						Weekday:   weekday,
						SlotIndex: slotIndex,
						Dimension: dim,
					}] = value
				}
				flags = append(flags, groupFlags...)
			}
		}
	}

	return baseline, flags
}

// computeGroup 计算单个分组的基线值
func (c *BaselineCalculator) computeGroup(samples []float64, weekday time.Weekday, slotIndex int, dim model.DimensionKey) (float64, []model.AnomalyFlag) {
	var flags []model.AnomalyFlag
	ref := fmt.Sprintf("baseline/%s/slot=%d/%s", weekday, slotIndex, dim)

	kept, removed := iqrFilter(samples, c.cfg.IQRMultiplier)
	if removed > 0 && len(kept) == 0 {
		// 全部样本被当作离群值剔除：回退到未过滤统计并标记
		kept = samples
		flags = append(flags, model.AnomalyFlag{
			Reference:         ref,
			Kind:              model.AnomalyEmptyAfterFilter,
			Severity:          model.SeveritySoft,
			Detail:            fmt.Sprintf("IQR过滤剔除了全部 %d 个样本，回退到未过滤统计", removed),
			AppliedCorrection: "fallback_unfiltered",
		})
	}

	value := c.stat.Apply(kept)

	if value < 0 {
		// 统计方法不应产生负值，出现即视为数据损坏
		flags = append(flags, model.AnomalyFlag{
			Reference:         ref,
			Kind:              model.AnomalyNegativeValue,
			Severity:          model.SeverityHard,
			OriginalValue:     value,
			CorrectedValue:    0,
			AppliedCorrection: "clamped_to_0",
		})
		value = 0
	}

	if value > c.cfg.NeedCeilingPerSlot {
		flags = append(flags, model.AnomalyFlag{
			Reference:         ref,
			Kind:              model.AnomalyNeedCeiling,
			Severity:          model.SeverityHard,
			OriginalValue:     value,
			CorrectedValue:    c.cfg.NeedCeilingPerSlot,
			AppliedCorrection: fmt.Sprintf("capped_to_%g", c.cfg.NeedCeilingPerSlot),
		})
		value = c.cfg.NeedCeilingPerSlot
	}

	return value, flags
}

package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// ShortageComputer 缺口/富余计算器
// 每个维度用自身的基线和在岗数独立计算，
// 绝不把整体缺口按人头比例摊到各岗位
type ShortageComputer struct {
	cfg model.EngineConfig
}

// NewShortageComputer 创建缺口/富余计算器
func NewShortageComputer(cfg model.EngineConfig) *ShortageComputer {
	return &ShortageComputer{cfg: cfg}
}

// Compute 对分析窗口内每个槽位、每个维度计算缺口与富余
// 缺口与富余分开保留，调用方可以区分"无数据"和"超配"
func (s *ShortageComputer) Compute(baseline *NeedBaseline, actual *OccupancyTable, window model.DateRange) ([]model.ShortageRecord, []model.ConsistencyWarning) {
	// 维度取基线与实际的并集，仅基线有、仅实际有的维度都要出数
	dimSet := make(map[model.DimensionKey]bool)
	for _, dim := range baseline.Dimensions() {
		dimSet[dim] = true
	}
	for _, dim := range actual.Dimensions() {
		dimSet[dim] = true
	}
	dims := make([]model.DimensionKey, 0, len(dimSet))
	for dim := range dimSet {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool {
		return dims[i].String() < dims[j].String()
	})

	var records []model.ShortageRecord
	slotsPerDay := s.cfg.SlotsPerDay()

	for _, date := range window.Days() {
		d, err := time.Parse(model.DateLayout, date)
		if err != nil {
			continue
		}
		weekday := d.Weekday()

		for slotIndex := 0; slotIndex < slotsPerDay; slotIndex++ {
			if !s.cfg.InBusinessHours(slotIndex) {
				continue
			}
			for _, dim := range dims {
				need := baseline.Value(weekday, slotIndex, dim)
				act := float64(actual.Count(SlotKey{Date: date, Index: slotIndex}, dim))
				if need == 0 && act == 0 {
					continue
				}
				records = append(records, model.ShortageRecord{
					Date:      date,
					SlotIndex: slotIndex,
					Dimension: dim,
					Need:      need,
					Actual:    act,
					Shortage:  math.Max(need-act, 0),
					Excess:    math.Max(act-need, 0),
				})
			}
		}
	}

	return records, s.reconcile(records)
}

// reconcile 跨维度对账诊断
// 各岗位缺口之和与整体缺口可以合理地不相等（某岗位缺人而
// 整体不缺），这里只报告差额供审计，绝不强行拉平
func (s *ShortageComputer) reconcile(records []model.ShortageRecord) []model.ConsistencyWarning {
	type slotTotals struct {
		overall float64
		roleSum float64
		hasRole bool
	}
	totals := make(map[SlotKey]*slotTotals)
	var keys []SlotKey

	for _, rec := range records {
		key := SlotKey{Date: rec.Date, Index: rec.SlotIndex}
		t := totals[key]
		if t == nil {
			t = &slotTotals{}
			totals[key] = t
			keys = append(keys, key)
		}
		switch rec.Dimension.Kind {
		case model.DimensionOverall:
			t.overall = rec.Shortage
		case model.DimensionRole:
			t.roleSum += rec.Shortage
			t.hasRole = true
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Index < keys[j].Index
	})

	var warnings []model.ConsistencyWarning
	for _, key := range keys {
		t := totals[key]
		if !t.hasRole {
			continue
		}
		if diff := math.Abs(t.roleSum - t.overall); diff > s.cfg.ReconcileTolerance {
			warnings = append(warnings, model.ConsistencyWarning{
				Date:      key.Date,
				SlotIndex: key.Index,
				Kind:      "reconciliation",
				Expected:  t.overall,
				Got:       t.roleSum,
				Detail: fmt.Sprintf("岗位缺口合计 %.2f 与整体缺口 %.2f 相差 %.2f（诊断信息，不做修正）",
					t.roleSum, t.overall, diff),
			})
		}
	}
	return warnings
}

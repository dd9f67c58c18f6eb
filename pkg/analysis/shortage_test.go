package analysis

import (
	"testing"

	"github.com/quekou/quekou/pkg/model"
)

// computeWeek 用参考3人、实际指定人数构造一周的缺口记录
func computeWeek(t *testing.T, cfg model.EngineConfig, actualStaff int) ([]model.ShortageRecord, []model.ConsistencyWarning) {
	t.Helper()
	refWindow := model.DateRange{StartDate: "2026-02-01", EndDate: "2026-02-28"}
	window := model.DateRange{StartDate: "2026-03-02", EndDate: "2026-03-08"}

	reference := buildOccupancy(t, cfg, refWindow, 3, 14, 36)
	baseline, _ := newCalculator(t, cfg).Compute(reference, refWindow)

	actual := buildOccupancy(t, cfg, window, actualStaff, 14, 36)
	return NewShortageComputer(cfg).Compute(baseline, actual, window)
}

func TestShortageComputer_ShortageAndExcess(t *testing.T) {
	cfg := model.DefaultEngineConfig()

	// 需求3人、实际2人 → 每槽缺1人
	records, _ := computeWeek(t, cfg, 2)
	if len(records) == 0 {
		t.Fatal("应产生缺口记录")
	}
	for _, rec := range records {
		if rec.Dimension.Kind != model.DimensionOverall {
			continue
		}
		if rec.Need != 3 || rec.Actual != 2 {
			t.Fatalf("槽 %s/%d 需求/实际期望 3/2，实际 %g/%g", rec.Date, rec.SlotIndex, rec.Need, rec.Actual)
		}
		if rec.Shortage != 1 || rec.Excess != 0 {
			t.Fatalf("缺口/富余期望 1/0，实际 %g/%g", rec.Shortage, rec.Excess)
		}
	}

	// 需求3人、实际5人 → 富余2人，缺口与富余分开保留
	records, _ = computeWeek(t, cfg, 5)
	for _, rec := range records {
		if rec.Dimension.Kind != model.DimensionOverall {
			continue
		}
		if rec.Shortage != 0 || rec.Excess != 2 {
			t.Fatalf("超配时缺口/富余期望 0/2，实际 %g/%g", rec.Shortage, rec.Excess)
		}
		if rec.Shortage < 0 {
			t.Fatalf("富余绝不允许折叠成负缺口")
		}
	}
}

// TestShortageComputer_NonNegativity 所有槽位所有维度的四个数值都非负
func TestShortageComputer_NonNegativity(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	for _, staff := range []int{0, 2, 3, 7} {
		records, _ := computeWeek(t, cfg, staff)
		for _, rec := range records {
			if rec.Need < 0 || rec.Actual < 0 || rec.Shortage < 0 || rec.Excess < 0 {
				t.Fatalf("出现负值: %+v", rec)
			}
		}
	}
}

// TestShortageComputer_IndependentDimensions 各维度用自身基线独立计算，
// 不是把整体缺口按人头比例摊分
func TestShortageComputer_IndependentDimensions(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	refWindow := model.DateRange{StartDate: "2026-02-01", EndDate: "2026-02-28"}
	window := model.DateRange{StartDate: "2026-03-02", EndDate: "2026-03-02"}

	// 历史：护士2人 + 护理员1人；当前：护士0人 + 护理员3人
	var refOcc, actOcc []model.SlotOccupancy
	for _, date := range refWindow.Days() {
		refOcc = append(refOcc,
			occupancy(date, 20, "n1", "护士", "full_time"),
			occupancy(date, 20, "n2", "护士", "full_time"),
			occupancy(date, 20, "c1", "护理员", "full_time"))
	}
	actOcc = append(actOcc,
		occupancy("2026-03-02", 20, "c1", "护理员", "full_time"),
		occupancy("2026-03-02", 20, "c2", "护理员", "full_time"),
		occupancy("2026-03-02", 20, "c3", "护理员", "full_time"))

	agg := NewAggregator(cfg)
	baseline, _ := newCalculator(t, cfg).Compute(agg.Aggregate(refOcc), refWindow)
	records, _ := NewShortageComputer(cfg).Compute(baseline, agg.Aggregate(actOcc), window)

	byDim := make(map[string]model.ShortageRecord)
	for _, rec := range records {
		if rec.SlotIndex == 20 {
			byDim[rec.Dimension.String()] = rec
		}
	}

	// 整体：需求3实际3 → 不缺；护士：需求2实际0 → 缺2；护理员：需求1实际3 → 富余2
	if rec := byDim["overall"]; rec.Shortage != 0 {
		t.Errorf("整体缺口期望0，实际 %g", rec.Shortage)
	}
	if rec := byDim["role:护士"]; rec.Shortage != 2 {
		t.Errorf("护士缺口期望2（独立基线），实际 %g", rec.Shortage)
	}
	if rec := byDim["role:护理员"]; rec.Excess != 2 {
		t.Errorf("护理员富余期望2，实际 %g", rec.Excess)
	}
}

// TestShortageComputer_Reconciliation 岗位缺口合计与整体缺口不一致时
// 产生对账诊断，但各维度数值保持独立计算结果
func TestShortageComputer_Reconciliation(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	refWindow := model.DateRange{StartDate: "2026-02-01", EndDate: "2026-02-28"}
	window := model.DateRange{StartDate: "2026-03-02", EndDate: "2026-03-02"}

	var refOcc []model.SlotOccupancy
	for _, date := range refWindow.Days() {
		refOcc = append(refOcc,
			occupancy(date, 20, "n1", "护士", "full_time"),
			occupancy(date, 20, "n2", "护士", "full_time"),
			occupancy(date, 20, "c1", "护理员", "full_time"))
	}
	// 当前只有护理员3人：整体不缺（3=3），但护士维度缺2
	actOcc := []model.SlotOccupancy{
		occupancy("2026-03-02", 20, "c1", "护理员", "full_time"),
		occupancy("2026-03-02", 20, "c2", "护理员", "full_time"),
		occupancy("2026-03-02", 20, "c3", "护理员", "full_time"),
	}

	agg := NewAggregator(cfg)
	baseline, _ := newCalculator(t, cfg).Compute(agg.Aggregate(refOcc), refWindow)
	records, warnings := NewShortageComputer(cfg).Compute(baseline, agg.Aggregate(actOcc), window)

	found := false
	for _, w := range warnings {
		if w.Kind == "reconciliation" && w.SlotIndex == 20 {
			found = true
			if w.Expected != 0 || w.Got != 2 {
				t.Errorf("对账数值错误: expected=%g got=%g", w.Expected, w.Got)
			}
		}
	}
	if !found {
		t.Errorf("岗位缺口与整体缺口不一致时应产生对账诊断")
	}

	// 诊断不得反过来修改记录
	for _, rec := range records {
		if rec.Dimension.String() == "role:护士" && rec.SlotIndex == 20 && rec.Shortage != 2 {
			t.Errorf("对账后护士缺口应保持2，实际 %g", rec.Shortage)
		}
	}
}

// TestShortageComputer_BusinessHours 配置营业时段后时段外不出数
func TestShortageComputer_BusinessHours(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	cfg.BusinessHours = &model.HourWindow{StartHour: 7, EndHour: 18}

	records, _ := computeWeek(t, cfg, 2)
	for _, rec := range records {
		hour := rec.SlotIndex * cfg.SlotMinutes / 60
		if hour < 7 || hour >= 18 {
			t.Fatalf("营业时段外不应产生记录: 槽%d", rec.SlotIndex)
		}
	}
}

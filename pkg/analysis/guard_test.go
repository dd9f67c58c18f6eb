package analysis

import (
	"math"
	"testing"

	"github.com/quekou/quekou/pkg/model"
)

func shortageRecord(date string, index int, need, actual float64) model.ShortageRecord {
	return model.ShortageRecord{
		Date:      date,
		SlotIndex: index,
		Dimension: model.OverallKey(),
		Need:      need,
		Actual:    actual,
		Shortage:  math.Max(need-actual, 0),
		Excess:    math.Max(actual-need, 0),
	}
}

func TestAnomalyGuard_CleanPassthrough(t *testing.T) {
	g := NewAnomalyGuard(model.DefaultEngineConfig())

	result := g.Apply([]model.ShortageRecord{
		shortageRecord("2026-03-02", 20, 3, 2),
		shortageRecord("2026-03-02", 21, 3, 3),
	})

	if result.State != GuardClean {
		t.Errorf("无异常时状态应为 clean，实际 %s", result.State)
	}
	if len(result.Flags) != 0 {
		t.Errorf("无异常时不应有标记，实际 %d", len(result.Flags))
	}
	if result.Records[0].Shortage != 1 {
		t.Errorf("干净记录不得被修改")
	}
}

// TestAnomalyGuard_NeedCeilingCap 需求1000、上限10 → 封顶为10且记录修正动作
func TestAnomalyGuard_NeedCeilingCap(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	cfg.NeedCeilingPerSlot = 10
	g := NewAnomalyGuard(cfg)

	result := g.Apply([]model.ShortageRecord{
		shortageRecord("2026-03-02", 20, 1000, 2),
	})

	if result.State != GuardCapped {
		t.Errorf("硬封顶后状态应为 capped，实际 %s", result.State)
	}
	rec := result.Records[0]
	if rec.Need != 10 {
		t.Errorf("封顶后需求期望10，实际 %g", rec.Need)
	}
	if rec.Shortage != 8 {
		t.Errorf("封顶后缺口期望8，实际 %g", rec.Shortage)
	}

	if len(result.Flags) != 1 {
		t.Fatalf("期望1个标记，实际 %d", len(result.Flags))
	}
	flag := result.Flags[0]
	if flag.Kind != model.AnomalyNeedCeiling {
		t.Errorf("标记类型期望 need_ceiling_exceeded，实际 %s", flag.Kind)
	}
	if flag.AppliedCorrection != "capped_to_10" {
		t.Errorf("修正动作期望 capped_to_10，实际 %s", flag.AppliedCorrection)
	}
	if flag.OriginalValue != 1000 || flag.CorrectedValue != 10 {
		t.Errorf("标记应记录修正前后数值: %g → %g", flag.OriginalValue, flag.CorrectedValue)
	}
}

// TestAnomalyGuard_NegativeValues 负在岗/负需求钳制为0并硬标记
func TestAnomalyGuard_NegativeValues(t *testing.T) {
	g := NewAnomalyGuard(model.DefaultEngineConfig())

	result := g.Apply([]model.ShortageRecord{
		{Date: "2026-03-02", SlotIndex: 20, Dimension: model.OverallKey(), Need: -3, Actual: 2},
		{Date: "2026-03-02", SlotIndex: 21, Dimension: model.OverallKey(), Need: 3, Actual: -1},
	})

	if result.State != GuardCapped {
		t.Errorf("数据损坏应进入 capped 状态，实际 %s", result.State)
	}
	for _, rec := range result.Records {
		if rec.Need < 0 || rec.Actual < 0 || rec.Shortage < 0 || rec.Excess < 0 {
			t.Errorf("钳制后不应残留负值: %+v", rec)
		}
	}
	if len(result.Flags) != 2 {
		t.Errorf("期望2个 negative_value 标记，实际 %d", len(result.Flags))
	}
}

// TestAnomalyGuard_DailyCapScaling 单日缺口工时超硬上限按比例缩放，系数入标记
func TestAnomalyGuard_DailyCapScaling(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	cfg.MaxShortageHoursDay = 10
	g := NewAnomalyGuard(cfg)

	// 40个槽每槽缺1人 × 0.5h = 20小时，超上限10 → 缩放系数0.5
	var records []model.ShortageRecord
	for i := 0; i < 40; i++ {
		records = append(records, shortageRecord("2026-03-02", i, 1, 0))
	}
	result := g.Apply(records)

	if result.State != GuardCapped {
		t.Fatalf("状态应为 capped，实际 %s", result.State)
	}

	total := 0.0
	for _, rec := range result.Records {
		total += rec.Shortage * cfg.SlotHours()
	}
	if math.Abs(total-10) > 1e-9 {
		t.Errorf("缩放后当日缺口工时期望10，实际 %g", total)
	}

	found := false
	for _, flag := range result.Flags {
		if flag.Kind == model.AnomalyDailyHoursExceeded {
			found = true
			if flag.AppliedCorrection != "scaled_by_0.5000" {
				t.Errorf("缩放系数期望 scaled_by_0.5000，实际 %s", flag.AppliedCorrection)
			}
			if flag.OriginalValue != 20 || flag.CorrectedValue != 10 {
				t.Errorf("标记数值错误: %g → %g", flag.OriginalValue, flag.CorrectedValue)
			}
		}
	}
	if !found {
		t.Errorf("应产生 daily_hours_exceeded 标记")
	}
}

func TestAnomalyGuard_PeriodBlowup(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	g := NewAnomalyGuard(cfg)

	// 日均基准11小时、90天，线性期望990小时；实际远超3倍 → 告警
	flag := g.CheckPeriodBlowup(30000, 90, 11)
	if flag == nil {
		t.Fatal("超线性膨胀应产生标记")
	}
	if flag.Kind != model.AnomalyPeriodBlowup {
		t.Errorf("标记类型期望 period_blowup，实际 %s", flag.Kind)
	}
	if flag.Severity != model.SeveritySoft {
		t.Errorf("膨胀检查是软违规，实际 %s", flag.Severity)
	}

	// 线性范围内不告警
	if flag := g.CheckPeriodBlowup(990, 90, 11); flag != nil {
		t.Errorf("线性总量不应告警: %+v", flag)
	}
}

// TestAnomalyGuard_NeverDropsRecords 被标记的记录保留在输出里
func TestAnomalyGuard_NeverDropsRecords(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	cfg.NeedCeilingPerSlot = 10
	g := NewAnomalyGuard(cfg)

	input := []model.ShortageRecord{
		shortageRecord("2026-03-02", 20, 1000, 2),
		shortageRecord("2026-03-02", 21, 3, 2),
	}
	result := g.Apply(input)

	if len(result.Records) != len(input) {
		t.Fatalf("记录数不得变化: 输入%d 输出%d", len(input), len(result.Records))
	}
	if len(result.Records[0].Flags) == 0 {
		t.Errorf("被修正的记录应携带标记")
	}
	// 防护不得回写调用方的切片
	if input[0].Need != 1000 {
		t.Errorf("输入记录被原地修改")
	}
}

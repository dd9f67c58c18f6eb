// Package scenario 提供场景测试
package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quekou/quekou/pkg/analysis"
	"github.com/quekou/quekou/pkg/model"
)

// nightShift 构造一条夜班记录（22:00 至次日 06:00）
func nightShift(orgID uuid.UUID, staffID string, year int, month time.Month, day int) *model.AttendanceRecord {
	return &model.AttendanceRecord{
		ID:        uuid.New(),
		OrgID:     orgID,
		StaffID:   staffID,
		Role:      "护士",
		StartTime: time.Date(year, month, day, 22, 0, 0, 0, time.UTC),
		EndTime:   time.Date(year, month, day+1, 6, 0, 0, 0, time.UTC),
		ShiftCode: "夜",
	}
}

// TestOvernightFiveNightContinuity 连续五个夜班的跨午夜连续性
// 每晚22:00-06:00应产生16个槽位：当日44-47 + 次日0-11，
// 午夜边界处既不断开也不重复计数
func TestOvernightFiveNightContinuity(t *testing.T) {
	orgID := uuid.New()
	cfg := model.DefaultEngineConfig()

	var records []*model.AttendanceRecord
	for day := 2; day <= 6; day++ {
		records = append(records, nightShift(orgID, "N001", 2026, time.March, day))
	}

	normalizer := analysis.NewNormalizer(cfg)
	result := normalizer.Normalize(records)

	if len(result.Rejected) != 0 {
		t.Fatalf("不应有被拒绝的记录，实际 %d 条", len(result.Rejected))
	}

	// 5晚 × 16槽
	if len(result.Occupancies) != 80 {
		t.Errorf("期望80个槽位占用，实际 %d", len(result.Occupancies))
	}

	aggregator := analysis.NewAggregator(cfg)
	table := aggregator.Aggregate(result.Occupancies)

	// 单人值夜，任何槽的在岗数都不应超过1（无午夜重复计数）
	for _, slot := range table.Slots() {
		count := table.Count(slot, model.OverallKey())
		if count > 1 {
			t.Errorf("槽 %s#%d 在岗数为 %d，跨午夜班次被重复计数", slot.Date, slot.Index, count)
		}
	}

	// 午夜边界连续：3月2日槽47与3月3日槽0都有人
	boundary := []struct {
		date  string
		index int
	}{
		{"2026-03-02", 44},
		{"2026-03-02", 47},
		{"2026-03-03", 0},
		{"2026-03-03", 11},
	}
	for _, b := range boundary {
		count := table.Count(analysis.SlotKey{Date: b.date, Index: b.index}, model.OverallKey())
		if count != 1 {
			t.Errorf("槽 %s#%d 期望在岗1人，实际 %d", b.date, b.index, count)
		}
	}

	// 06:00以后无人
	after := table.Count(analysis.SlotKey{Date: "2026-03-03", Index: 12}, model.OverallKey())
	if after != 0 {
		t.Errorf("06:00后不应有人在岗，实际 %d", after)
	}
}

// TestOvernightSplitRowsEquivalence 拆成两行存储的夜班与整行等价
// 考勤系统常把跨午夜班次拆为 22:00-24:00 和 00:00-06:00 两行
func TestOvernightSplitRowsEquivalence(t *testing.T) {
	orgID := uuid.New()
	cfg := model.DefaultEngineConfig()

	whole := []*model.AttendanceRecord{
		nightShift(orgID, "N001", 2026, time.March, 2),
	}

	split := []*model.AttendanceRecord{
		{
			ID:        uuid.New(),
			OrgID:     orgID,
			StaffID:   "N001",
			Role:      "护士",
			StartTime: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			ShiftCode: "夜",
		},
		{
			ID:        uuid.New(),
			OrgID:     orgID,
			StaffID:   "N001",
			Role:      "护士",
			StartTime: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC),
			ShiftCode: "夜",
		},
	}

	normalizer := analysis.NewNormalizer(cfg)
	wholeResult := normalizer.Normalize(whole)
	splitResult := normalizer.Normalize(split)

	if len(wholeResult.Occupancies) != len(splitResult.Occupancies) {
		t.Fatalf("拆分存储应与整行等价：整行 %d 槽，拆分 %d 槽",
			len(wholeResult.Occupancies), len(splitResult.Occupancies))
	}

	aggregator := analysis.NewAggregator(cfg)
	table := aggregator.Aggregate(splitResult.Occupancies)
	for _, slot := range table.Slots() {
		if count := table.Count(slot, model.OverallKey()); count != 1 {
			t.Errorf("拆分行在槽 %s#%d 计数为 %d", slot.Date, slot.Index, count)
		}
	}
}

// TestOvernightPipelineNoPhantomShortage 夜班周的端到端运行不产生虚假缺口
// 参考窗口即分析窗口本身时，基线等于实际在岗，缺口应为零
func TestOvernightPipelineNoPhantomShortage(t *testing.T) {
	orgID := uuid.New()
	cfg := model.DefaultEngineConfig()

	var records []*model.AttendanceRecord
	for day := 2; day <= 6; day++ {
		records = append(records, nightShift(orgID, "N001", 2026, time.March, day))
	}

	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("创建流水线失败: %v", err)
	}

	window := model.DateRange{StartDate: "2026-03-02", EndDate: "2026-03-08"}
	result, err := pipeline.Run(context.Background(), orgID, records, window)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	if result.TotalHours != 0 {
		t.Errorf("基线来自窗口自身时缺口应为0小时，实际 %.2f", result.TotalHours)
	}
	if result.Meta.GuardState != "clean" {
		t.Errorf("期望防护状态clean，实际 %s", result.Meta.GuardState)
	}
}

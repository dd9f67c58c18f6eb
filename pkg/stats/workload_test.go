package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quekou/quekou/pkg/model"
)

func record(staffID, role string, start, end time.Time) *model.AttendanceRecord {
	return &model.AttendanceRecord{
		ID:        uuid.New(),
		OrgID:     uuid.New(),
		StaffID:   staffID,
		Role:      role,
		StartTime: start,
		EndTime:   end,
	}
}

func TestWorkloadAnalyzer_Analyze(t *testing.T) {
	// A: 周一周二各8小时白班；B: 周六一个8小时夜班
	records := []*model.AttendanceRecord{
		record("A", "护士",
			time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)),
		record("A", "护士",
			time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)),
		record("B", "护工",
			time.Date(2026, 3, 7, 22, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC)),
	}

	report := NewWorkloadAnalyzer().Analyze(records)

	if report.StaffCount != 2 {
		t.Fatalf("期望2名员工，实际 %d", report.StaffCount)
	}
	if !almostEqual(report.AvgHoursPerStaff, 12) {
		t.Errorf("人均工时期望12，实际 %.2f", report.AvgHoursPerStaff)
	}
	if !almostEqual(report.MaxHours, 16) || !almostEqual(report.MinHours, 8) {
		t.Errorf("工时极值期望16/8，实际 %.2f/%.2f", report.MaxHours, report.MinHours)
	}
	// {8,16}的基尼系数 = 1/6
	if !almostEqual(report.WorkloadGini, 1.0/6) {
		t.Errorf("工时基尼系数期望0.167，实际 %.3f", report.WorkloadGini)
	}

	if len(report.StaffStats) != 2 {
		t.Fatalf("期望2条员工统计，实际 %d", len(report.StaffStats))
	}
	a, b := report.StaffStats[0], report.StaffStats[1]
	if a.StaffID != "A" || b.StaffID != "B" {
		t.Fatalf("员工统计应按ID排序: %s, %s", a.StaffID, b.StaffID)
	}
	if !almostEqual(a.Deviation, 100.0/3) {
		t.Errorf("A的偏差期望+33.33%%，实际 %.2f", a.Deviation)
	}
	if b.NightRecords != 1 {
		t.Errorf("B应有1个夜班记录，实际 %d", b.NightRecords)
	}
	if b.WeekendRecords != 1 {
		t.Errorf("B应有1个周末记录，实际 %d", b.WeekendRecords)
	}
}

func TestWorkloadAnalyzer_SkipsInvalidRecords(t *testing.T) {
	records := []*model.AttendanceRecord{
		nil,
		// 结束早于开始，应被跳过
		record("A", "护士",
			time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
	}

	report := NewWorkloadAnalyzer().Analyze(records)

	if report.StaffCount != 0 {
		t.Errorf("非法记录不应计入统计，实际员工数 %d", report.StaffCount)
	}
}

func TestWorkloadAnalyzer_Empty(t *testing.T) {
	report := NewWorkloadAnalyzer().Analyze(nil)

	if report.StaffCount != 0 || report.WorkloadGini != 0 {
		t.Errorf("空输入应返回零值报告")
	}
}

func TestGiniUniform(t *testing.T) {
	// 完全均衡分布的基尼系数为0
	if g := gini([]float64{8, 8, 8, 8}); !almostEqual(g, 0) {
		t.Errorf("均衡分布基尼系数期望0，实际 %.3f", g)
	}
}

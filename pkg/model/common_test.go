package model

import (
	"testing"
)

func TestDateRange_Days(t *testing.T) {
	dr := DateRange{StartDate: "2026-02-26", EndDate: "2026-03-02"}
	days := dr.Days()

	want := []string{"2026-02-26", "2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}
	if len(days) != len(want) {
		t.Fatalf("天数期望 %d，实际 %d", len(want), len(days))
	}
	for i, d := range want {
		if days[i] != d {
			t.Errorf("第%d天期望 %s，实际 %s", i, d, days[i])
		}
	}
	if dr.DayCount() != 5 {
		t.Errorf("DayCount 期望5，实际 %d", dr.DayCount())
	}
}

func TestDateRange_Valid(t *testing.T) {
	cases := []struct {
		dr   DateRange
		want bool
	}{
		{DateRange{StartDate: "2026-03-01", EndDate: "2026-03-31"}, true},
		{DateRange{StartDate: "2026-03-01", EndDate: "2026-03-01"}, true},
		{DateRange{StartDate: "2026-03-31", EndDate: "2026-03-01"}, false},
		{DateRange{StartDate: "not-a-date", EndDate: "2026-03-01"}, false},
		{DateRange{}, false},
	}
	for _, tc := range cases {
		if got := tc.dr.Valid(); got != tc.want {
			t.Errorf("Valid(%+v) 期望 %v，实际 %v", tc.dr, tc.want, got)
		}
	}
}

func TestDateRange_SplitByMonth(t *testing.T) {
	// 跨三个月、两端非整月
	dr := DateRange{StartDate: "2026-03-20", EndDate: "2026-05-10"}
	ranges := dr.SplitByMonth()

	want := []DateRange{
		{StartDate: "2026-03-20", EndDate: "2026-03-31"},
		{StartDate: "2026-04-01", EndDate: "2026-04-30"},
		{StartDate: "2026-05-01", EndDate: "2026-05-10"},
	}
	if len(ranges) != len(want) {
		t.Fatalf("子范围数期望 %d，实际 %d", len(want), len(ranges))
	}
	for i, w := range want {
		if ranges[i] != w {
			t.Errorf("子范围%d期望 %+v，实际 %+v", i, w, ranges[i])
		}
	}

	// 单月窗口
	oneMonth := DateRange{StartDate: "2026-03-01", EndDate: "2026-03-31"}
	if got := oneMonth.SplitByMonth(); len(got) != 1 || got[0] != oneMonth {
		t.Errorf("整月窗口切分错误: %+v", got)
	}

	// 切分覆盖完整窗口且无重叠
	total := 0
	for _, r := range ranges {
		total += r.DayCount()
	}
	if total != dr.DayCount() {
		t.Errorf("子范围天数合计 %d 不等于窗口天数 %d", total, dr.DayCount())
	}
}

func TestDimensionKey_String(t *testing.T) {
	cases := []struct {
		key  DimensionKey
		want string
	}{
		{OverallKey(), "overall"},
		{RoleKey("护士"), "role:护士"},
		{EmploymentKey("full_time"), "employment:full_time"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("String() 期望 %s，实际 %s", tc.want, got)
		}
	}
}

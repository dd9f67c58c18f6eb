package stats

import (
	"math"
	"sort"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// WorkloadReport 工作量均衡报告
// 缺口数字只说明"缺多少人"，工时分布说明"缺口压到了谁身上"
type WorkloadReport struct {
	StaffCount       int     `json:"staff_count"`
	AvgHoursPerStaff float64 `json:"avg_hours_per_staff"`
	MaxHours         float64 `json:"max_hours"`
	MinHours         float64 `json:"min_hours"`
	HoursStdDev      float64 `json:"hours_std_dev"`
	WorkloadGini     float64 `json:"workload_gini"`    // 0=完全均衡
	NightShiftGini   float64 `json:"night_shift_gini"` // 夜班分配均衡度

	StaffStats []StaffWorkload `json:"staff_stats"`
}

// StaffWorkload 单人工作量统计
type StaffWorkload struct {
	StaffID       string  `json:"staff_id"`
	Role          string  `json:"role,omitempty"`
	TotalHours    float64 `json:"total_hours"`
	RecordCount   int     `json:"record_count"`
	NightRecords  int     `json:"night_records"`
	WeekendRecords int    `json:"weekend_records"`
	Deviation     float64 `json:"deviation"` // 与人均工时的偏差百分比
}

// WorkloadAnalyzer 工作量分析器
type WorkloadAnalyzer struct {
	nightStartHour int
	nightEndHour   int
}

// NewWorkloadAnalyzer 创建工作量分析器
func NewWorkloadAnalyzer() *WorkloadAnalyzer {
	return &WorkloadAnalyzer{
		nightStartHour: 22,
		nightEndHour:   6,
	}
}

// Analyze 统计出勤记录的人均工时与分布均衡度
func (a *WorkloadAnalyzer) Analyze(records []*model.AttendanceRecord) *WorkloadReport {
	report := &WorkloadReport{}
	if len(records) == 0 {
		return report
	}

	byStaff := make(map[string]*StaffWorkload)
	for _, rec := range records {
		if rec == nil || !rec.EndTime.After(rec.StartTime) {
			continue
		}

		sw, exists := byStaff[rec.StaffID]
		if !exists {
			sw = &StaffWorkload{StaffID: rec.StaffID, Role: rec.Role}
			byStaff[rec.StaffID] = sw
		}

		sw.TotalHours += rec.EndTime.Sub(rec.StartTime).Hours()
		sw.RecordCount++
		if a.isNight(rec.StartTime) {
			sw.NightRecords++
		}
		if isWeekend(rec.StartTime) {
			sw.WeekendRecords++
		}
	}
	if len(byStaff) == 0 {
		return report
	}

	hours := make([]float64, 0, len(byStaff))
	nights := make([]float64, 0, len(byStaff))
	for _, sw := range byStaff {
		hours = append(hours, sw.TotalHours)
		nights = append(nights, float64(sw.NightRecords))
	}

	report.StaffCount = len(byStaff)
	report.AvgHoursPerStaff = mean(hours)
	report.MaxHours, report.MinHours = minMax(hours)
	report.HoursStdDev = math.Sqrt(variance(hours, report.AvgHoursPerStaff))
	report.WorkloadGini = gini(hours)
	report.NightShiftGini = gini(nights)

	for _, sw := range byStaff {
		if report.AvgHoursPerStaff > 0 {
			sw.Deviation = (sw.TotalHours - report.AvgHoursPerStaff) / report.AvgHoursPerStaff * 100
		}
		report.StaffStats = append(report.StaffStats, *sw)
	}
	sort.Slice(report.StaffStats, func(i, j int) bool {
		return report.StaffStats[i].StaffID < report.StaffStats[j].StaffID
	})

	return report
}

// isNight 班次起始落在夜间时段（跨零点区间 [22, 6)）
func (a *WorkloadAnalyzer) isNight(t time.Time) bool {
	h := t.Hour()
	return h >= a.nightStartHour || h < a.nightEndHour
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}

// gini 基尼系数，输入全零时返回0
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var cumWeighted, total float64
	for i, v := range sorted {
		cumWeighted += float64(i+1) * v
		total += v
	}
	if total == 0 {
		return 0
	}

	return (2*cumWeighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

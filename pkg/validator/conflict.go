// Package validator 提供出勤记录的质量检查
// 检查结果是软性提示，不阻断分析；由调用方决定是否剔除可疑记录
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// IssueType 记录问题类型
type IssueType string

const (
	IssueOverlap      IssueType = "overlap"       // 同一员工时间重叠（重复计入风险）
	IssueDuplicate    IssueType = "duplicate"     // 完全重复记录
	IssueLongDuration IssueType = "long_duration" // 单条时长超出合理范围
	IssueInverted     IssueType = "inverted"      // 结束不晚于开始
)

// Issue 记录问题
type Issue struct {
	Type     IssueType `json:"type"`
	Severity string    `json:"severity"` // error/warning
	StaffID  string    `json:"staff_id"`
	Date     string    `json:"date"`
	Message  string    `json:"message"`
	Records  []string  `json:"records,omitempty"` // 相关记录ID
}

// Detector 出勤记录检查器
type Detector struct {
	config *DetectorConfig
}

// DetectorConfig 检查器配置
type DetectorConfig struct {
	MaxRecordHours float64 // 单条记录最大时长（小时）
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MaxRecordHours: 16,
	}
}

// NewDetector 创建出勤记录检查器
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &Detector{config: config}
}

// DetectAll 检查整批出勤记录
func (d *Detector) DetectAll(records []*model.AttendanceRecord) []Issue {
	var issues []Issue

	byStaff := make(map[string][]*model.AttendanceRecord)
	for _, rec := range records {
		if rec == nil {
			continue
		}

		if !rec.EndTime.After(rec.StartTime) {
			issues = append(issues, Issue{
				Type:     IssueInverted,
				Severity: "error",
				StaffID:  rec.StaffID,
				Date:     rec.StartTime.Format(model.DateLayout),
				Message:  "结束时间不晚于开始时间",
				Records:  []string{rec.ID.String()},
			})
			continue
		}

		if hours := rec.EndTime.Sub(rec.StartTime).Hours(); hours > d.config.MaxRecordHours {
			issues = append(issues, Issue{
				Type:     IssueLongDuration,
				Severity: "warning",
				StaffID:  rec.StaffID,
				Date:     rec.StartTime.Format(model.DateLayout),
				Message:  fmt.Sprintf("单条时长%.1f小时，超过%.0f小时上限", hours, d.config.MaxRecordHours),
				Records:  []string{rec.ID.String()},
			})
		}

		byStaff[rec.StaffID] = append(byStaff[rec.StaffID], rec)
	}

	for _, staffRecords := range byStaff {
		issues = append(issues, d.detectOverlaps(staffRecords)...)
	}

	return issues
}

// detectOverlaps 检查同一员工记录间的时间重叠与完全重复
// 跨零点拆分行（前段结束==后段开始）不算重叠
func (d *Detector) detectOverlaps(records []*model.AttendanceRecord) []Issue {
	if len(records) < 2 {
		return nil
	}

	sorted := make([]*model.AttendanceRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		}
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var issues []Issue
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]

		if cur.StartTime.Equal(prev.StartTime) && cur.EndTime.Equal(prev.EndTime) {
			issues = append(issues, Issue{
				Type:     IssueDuplicate,
				Severity: "warning",
				StaffID:  cur.StaffID,
				Date:     cur.StartTime.Format(model.DateLayout),
				Message: fmt.Sprintf("重复记录: %s ~ %s",
					cur.StartTime.Format(time.RFC3339), cur.EndTime.Format(time.RFC3339)),
				Records: []string{prev.ID.String(), cur.ID.String()},
			})
			continue
		}

		if cur.StartTime.Before(prev.EndTime) {
			issues = append(issues, Issue{
				Type:     IssueOverlap,
				Severity: "error",
				StaffID:  cur.StaffID,
				Date:     cur.StartTime.Format(model.DateLayout),
				Message: fmt.Sprintf("记录重叠: [%s ~ %s] 与 [%s ~ %s]",
					prev.StartTime.Format(time.RFC3339), prev.EndTime.Format(time.RFC3339),
					cur.StartTime.Format(time.RFC3339), cur.EndTime.Format(time.RFC3339)),
				Records: []string{prev.ID.String(), cur.ID.String()},
			})
		}
	}

	return issues
}

// HasErrors 检查问题列表中是否含error级别问题
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

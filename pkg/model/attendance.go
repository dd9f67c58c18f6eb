// Package model 定义人力缺口分析引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord 原始出勤记录
// 由外部导入层（排班系统/考勤表解析）产生，引擎只读不改
type AttendanceRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrgID          uuid.UUID `json:"org_id" db:"org_id"`
	StaffID        string    `json:"staff_id" db:"staff_id"`
	Role           string    `json:"role" db:"role"`                       // 护士/护理员/厨师...
	EmploymentType string    `json:"employment_type" db:"employment_type"` // full_time/part_time/temp
	StartTime      time.Time `json:"start_time" db:"start_time"`
	EndTime        time.Time `json:"end_time" db:"end_time"`
	ShiftCode      string    `json:"shift_code" db:"shift_code"` // 早/中/晚/夜/休...
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// 请假/休息类班次代码，不产生在岗占用
var leaveShiftCodes = map[string]bool{
	"休":       true,
	"假":       true,
	"年休":      true,
	"off":     true,
	"leave":   true,
	"holiday": true,
}

// IsLeave 检查是否为请假/休息记录
func (r *AttendanceRecord) IsLeave() bool {
	return leaveShiftCodes[r.ShiftCode]
}

// IsOvernight 检查班次是否跨越午夜
func (r *AttendanceRecord) IsOvernight() bool {
	if !r.EndTime.After(r.StartTime) {
		return false
	}
	sy, sm, sd := r.StartTime.Date()
	ey, em, ed := r.EndTime.Date()
	return sy != ey || sm != em || sd != ed
}

// WorkingHours 返回班次时长（小时）
func (r *AttendanceRecord) WorkingHours() float64 {
	if !r.EndTime.After(r.StartTime) {
		return 0
	}
	return r.EndTime.Sub(r.StartTime).Hours()
}

// StartDate 返回班次开始日期（YYYY-MM-DD）
func (r *AttendanceRecord) StartDate() string {
	return r.StartTime.Format(DateLayout)
}

// RejectedRecord 被拒绝的出勤记录（隔离区）
// 无效记录不会静默丢弃，逐条记入本次运行的隔离报告
type RejectedRecord struct {
	Record *AttendanceRecord `json:"record"`
	Reason string            `json:"reason"`
	Field  string            `json:"field,omitempty"`
}

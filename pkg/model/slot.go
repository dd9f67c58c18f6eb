// Package model 定义人力缺口分析引擎的核心数据模型
package model

import (
	"fmt"
	"time"
)

// DimensionKind 统计维度种类
type DimensionKind string

const (
	DimensionOverall    DimensionKind = "overall"    // 整体
	DimensionRole       DimensionKind = "role"       // 按岗位
	DimensionEmployment DimensionKind = "employment" // 按雇佣类型
)

// DimensionKey 统计维度键（整体 / 岗位=R / 雇佣类型=E）
type DimensionKey struct {
	Kind  DimensionKind `json:"kind"`
	Value string        `json:"value,omitempty"`
}

// OverallKey 整体维度键
func OverallKey() DimensionKey {
	return DimensionKey{Kind: DimensionOverall}
}

// RoleKey 岗位维度键
func RoleKey(role string) DimensionKey {
	return DimensionKey{Kind: DimensionRole, Value: role}
}

// EmploymentKey 雇佣类型维度键
func EmploymentKey(employment string) DimensionKey {
	return DimensionKey{Kind: DimensionEmployment, Value: employment}
}

// String 返回维度键的规范字符串表示（用于排序和日志）
func (k DimensionKey) String() string {
	if k.Kind == DimensionOverall {
		return string(DimensionOverall)
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.Value)
}

// TimeSlot 时间槽：某日内固定宽度的半开区间 [start, start+slot_minutes)
// 由 (日期, 当日槽序号) 唯一标识
type TimeSlot struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Index int    `json:"index"` // 0 .. slots_per_day-1
}

// SlotStart 返回时间槽的起始时刻
func (s TimeSlot) SlotStart(slotMinutes int) time.Time {
	d, _ := time.Parse(DateLayout, s.Date)
	return d.Add(time.Duration(s.Index*slotMinutes) * time.Minute)
}

// Weekday 返回时间槽所在日期的星期
func (s TimeSlot) Weekday() time.Weekday {
	d, _ := time.Parse(DateLayout, s.Date)
	return d.Weekday()
}

// SlotOccupancy 归一化后的占用元组：某人在某时间槽内在岗
type SlotOccupancy struct {
	Slot           TimeSlot `json:"slot"`
	StaffID        string   `json:"staff_id"`
	Role           string   `json:"role"`
	EmploymentType string   `json:"employment_type"`
}

// BaselineKey 需求基线分组键：(星期, 槽序号, 维度)
type BaselineKey struct {
	Weekday   time.Weekday `json:"weekday"`
	SlotIndex int          `json:"slot_index"`
	Dimension DimensionKey `json:"dimension"`
}

package model

import (
	"testing"
	"time"
)

func TestAttendanceRecord_IsOvernight(t *testing.T) {
	day := &AttendanceRecord{
		StartTime: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
	}
	if day.IsOvernight() {
		t.Errorf("日班不应判定为跨午夜")
	}

	night := &AttendanceRecord{
		StartTime: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC),
	}
	if !night.IsOvernight() {
		t.Errorf("22:00-06:00 应判定为跨午夜")
	}

	// 时间倒置不算跨午夜，由归一化器作为非法记录隔离
	inverted := &AttendanceRecord{
		StartTime: time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	if inverted.IsOvernight() {
		t.Errorf("时间倒置不应判定为跨午夜")
	}
}

func TestAttendanceRecord_WorkingHours(t *testing.T) {
	rec := &AttendanceRecord{
		StartTime: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC),
	}
	if got := rec.WorkingHours(); got != 8 {
		t.Errorf("工时期望8，实际 %g", got)
	}

	inverted := &AttendanceRecord{
		StartTime: time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	if got := inverted.WorkingHours(); got != 0 {
		t.Errorf("时间倒置工时应为0，实际 %g", got)
	}
}

func TestAttendanceRecord_IsLeave(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"休", true},
		{"假", true},
		{"off", true},
		{"早", false},
		{"夜", false},
		{"", false},
	}
	for _, tc := range cases {
		rec := &AttendanceRecord{ShiftCode: tc.code}
		if got := rec.IsLeave(); got != tc.want {
			t.Errorf("IsLeave(%q) 期望 %v，实际 %v", tc.code, tc.want, got)
		}
	}
}

func TestEngineConfig_SlotMath(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.SlotsPerDay() != 48 {
		t.Errorf("30分钟槽宽每天期望48槽，实际 %d", cfg.SlotsPerDay())
	}
	if cfg.SlotHours() != 0.5 {
		t.Errorf("槽时长期望0.5小时，实际 %g", cfg.SlotHours())
	}

	cfg.SlotMinutes = 15
	if cfg.SlotsPerDay() != 96 {
		t.Errorf("15分钟槽宽每天期望96槽，实际 %d", cfg.SlotsPerDay())
	}
}

func TestEngineConfig_InBusinessHours(t *testing.T) {
	cfg := DefaultEngineConfig()

	// 未配置营业时段时全天纳入
	if !cfg.InBusinessHours(0) || !cfg.InBusinessHours(47) {
		t.Errorf("未配置营业时段时所有槽都应纳入")
	}

	cfg.BusinessHours = &HourWindow{StartHour: 7, EndHour: 18}
	cases := []struct {
		slot int
		want bool
	}{
		{13, false}, // 06:30
		{14, true},  // 07:00
		{35, true},  // 17:30
		{36, false}, // 18:00
	}
	for _, tc := range cases {
		if got := cfg.InBusinessHours(tc.slot); got != tc.want {
			t.Errorf("InBusinessHours(%d) 期望 %v，实际 %v", tc.slot, tc.want, got)
		}
	}
}

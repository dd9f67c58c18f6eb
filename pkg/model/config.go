// Package model 定义人力缺口分析引擎的核心数据模型
package model

import (
	"fmt"

	"github.com/quekou/quekou/pkg/errors"
)

// StatisticMethod 需求基线统计方法
type StatisticMethod string

const (
	StatisticMean   StatisticMethod = "mean"   // 均值
	StatisticMedian StatisticMethod = "median" // 中位数
	StatisticP25    StatisticMethod = "p25"    // 25分位数
)

// AllStatisticMethods 返回全部统计方法（多场景对比用，顺序固定）
func AllStatisticMethods() []StatisticMethod {
	return []StatisticMethod{StatisticMean, StatisticMedian, StatisticP25}
}

// DefaultSlotMinutes 默认槽宽（分钟）
const DefaultSlotMinutes = 30

// HourWindow 营业时段（当日内小时区间，半开 [start, end)）
type HourWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// EngineConfig 单次分析运行的引擎配置
// 每次运行持有一份不可变配置；槽宽由 slot_minutes 唯一确定，
// 槽数/工时换算一律经由 SlotsPerDay / SlotHours，禁止按列位置猜测单位
type EngineConfig struct {
	SlotMinutes          int             `json:"slot_minutes"`
	StatisticMethod      StatisticMethod `json:"statistic_method"`
	IQRMultiplier        float64         `json:"iqr_multiplier"`
	ReferenceWindow      DateRange       `json:"reference_window"`
	BusinessHours        *HourWindow     `json:"business_hours,omitempty"`
	MaxShortageHoursDay  float64         `json:"max_shortage_hours_per_day"`
	NeedCeilingPerSlot   float64         `json:"need_ceiling_per_slot"`
	BlowupFactor         float64         `json:"blowup_factor"`          // 周期超线性判定倍数
	ReconcileTolerance   float64         `json:"reconcile_tolerance"`    // 跨维度对账容差（人数）
	Workers              int             `json:"workers"`                // 月度/场景并行度
}

// DefaultEngineConfig 返回默认引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SlotMinutes:         DefaultSlotMinutes,
		StatisticMethod:     StatisticMedian,
		IQRMultiplier:       1.5,
		MaxShortageHoursDay: 200,
		NeedCeilingPerSlot:  50,
		BlowupFactor:        3.0,
		ReconcileTolerance:  0.5,
		Workers:             4,
	}
}

// SlotsPerDay 返回每日槽数
func (c EngineConfig) SlotsPerDay() int {
	return 24 * 60 / c.SlotMinutes
}

// SlotHours 返回单个时间槽的时长（小时）
func (c EngineConfig) SlotHours() float64 {
	return float64(c.SlotMinutes) / 60.0
}

// InBusinessHours 检查槽序号是否落在营业时段内
// 未配置营业时段时全天纳入统计
func (c EngineConfig) InBusinessHours(slotIndex int) bool {
	if c.BusinessHours == nil {
		return true
	}
	hour := slotIndex * c.SlotMinutes / 60
	return hour >= c.BusinessHours.StartHour && hour < c.BusinessHours.EndHour
}

// Validate 校验配置，任何一项非法都会在计算开始前致命失败
func (c EngineConfig) Validate() error {
	if c.SlotMinutes <= 0 || 24*60%c.SlotMinutes != 0 {
		return errors.Configuration("slot_minutes",
			fmt.Sprintf("必须为正且能整除1440，实际为 %d", c.SlotMinutes))
	}
	switch c.StatisticMethod {
	case StatisticMean, StatisticMedian, StatisticP25:
	default:
		return errors.Configuration("statistic_method",
			fmt.Sprintf("不支持的统计方法 '%s'", c.StatisticMethod))
	}
	if c.IQRMultiplier < 0 {
		return errors.Configuration("iqr_multiplier", "不能为负")
	}
	if c.ReferenceWindow.StartDate != "" && !c.ReferenceWindow.Valid() {
		return errors.Configuration("reference_window",
			fmt.Sprintf("日期范围非法: %s ~ %s", c.ReferenceWindow.StartDate, c.ReferenceWindow.EndDate))
	}
	if c.BusinessHours != nil {
		bh := c.BusinessHours
		if bh.StartHour < 0 || bh.EndHour > 24 || bh.StartHour >= bh.EndHour {
			return errors.Configuration("business_hours",
				fmt.Sprintf("时段非法: %d ~ %d", bh.StartHour, bh.EndHour))
		}
	}
	if c.MaxShortageHoursDay <= 0 {
		return errors.Configuration("max_shortage_hours_per_day", "必须为正")
	}
	if c.NeedCeilingPerSlot <= 0 {
		return errors.Configuration("need_ceiling_per_slot", "必须为正")
	}
	if c.BlowupFactor <= 1 {
		return errors.Configuration("blowup_factor", "必须大于1")
	}
	if c.ReconcileTolerance < 0 {
		return errors.Configuration("reconcile_tolerance", "不能为负")
	}
	if c.Workers <= 0 {
		return errors.Configuration("workers", "必须为正")
	}
	return nil
}

// Package model 定义人力缺口分析引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ShortageRecord 单个时间槽、单个维度的缺口/富余记录
type ShortageRecord struct {
	Date      string       `json:"date"`
	SlotIndex int          `json:"slot_index"`
	Dimension DimensionKey `json:"dimension"`
	Need      float64      `json:"need"`     // 需求基线（人数）
	Actual    float64      `json:"actual"`   // 实际在岗（人数）
	Shortage  float64      `json:"shortage"` // max(need-actual, 0)
	Excess    float64      `json:"excess"`   // max(actual-need, 0)
	Flags     []string     `json:"flags,omitempty"`
}

// AnomalyKind 异常类型
type AnomalyKind string

const (
	AnomalyEmptyAfterFilter   AnomalyKind = "empty_after_filter"    // IQR过滤后样本全部被剔除
	AnomalyNeedCeiling        AnomalyKind = "need_ceiling_exceeded" // 单槽需求超过上限
	AnomalyNegativeValue      AnomalyKind = "negative_value"        // 负需求/负在岗（数据损坏）
	AnomalyDailyHoursExceeded AnomalyKind = "daily_hours_exceeded"  // 单日缺口工时超过硬上限
	AnomalyPeriodBlowup       AnomalyKind = "period_blowup"         // 缺口总量随周期超线性增长
)

// AnomalySeverity 异常严重程度
type AnomalySeverity string

const (
	SeveritySoft AnomalySeverity = "soft" // 仅标记并告警
	SeverityHard AnomalySeverity = "hard" // 触发确定性封顶
)

// AnomalyFlag 异常标记
// 引擎对数值做过任何修正（封顶、回退）时必须附带标记，绝不静默修正
type AnomalyFlag struct {
	Reference         string          `json:"reference"` // 关联的记录/分组标识
	Kind              AnomalyKind     `json:"kind"`
	Severity          AnomalySeverity `json:"severity"`
	Detail            string          `json:"detail,omitempty"`
	OriginalValue     float64         `json:"original_value"`
	CorrectedValue    float64         `json:"corrected_value"`
	AppliedCorrection string          `json:"applied_correction,omitempty"` // 如 capped_to_10
}

// ConsistencyWarning 跨维度一致性告警
// 例如某槽按岗位求和与整体人数不一致（源数据岗位缺失）
type ConsistencyWarning struct {
	Date      string  `json:"date"`
	SlotIndex int     `json:"slot_index"`
	Kind      string  `json:"kind"` // role_sum_mismatch / employment_sum_mismatch / reconciliation
	Expected  float64 `json:"expected"`
	Got       float64 `json:"got"`
	Detail    string  `json:"detail,omitempty"`
}

// DimensionSummary 单维度汇总
type DimensionSummary struct {
	Dimension     DimensionKey `json:"dimension"`
	NeedHours     float64      `json:"need_hours"`
	ActualHours   float64      `json:"actual_hours"`
	ShortageHours float64      `json:"shortage_hours"`
	ExcessHours   float64      `json:"excess_hours"`
}

// MonthSummary 单月汇总（周期归一化的审计明细）
type MonthSummary struct {
	Range         DateRange `json:"range"`
	Days          int       `json:"days"`
	ShortageHours float64   `json:"shortage_hours"`
	ExcessHours   float64   `json:"excess_hours"`
	FlagCount     int       `json:"flag_count"`
}

// RunMetadata 分析运行元数据
// 每次运行随结果输出：统计方法、参考窗口、
// 离群剔除参数以及运行期间产生的全部标记
type RunMetadata struct {
	RunID           uuid.UUID            `json:"run_id"`
	OrgID           uuid.UUID            `json:"org_id"`
	StatisticMethod string               `json:"statistic_method"`
	SlotMinutes     int                  `json:"slot_minutes"`
	IQRMultiplier   float64              `json:"iqr_multiplier"`
	ReferenceWindow DateRange            `json:"reference_window"`
	AnalysisWindow  DateRange            `json:"analysis_window"`
	GuardState      string               `json:"guard_state"` // clean/flagged/capped
	Flags           []AnomalyFlag        `json:"flags,omitempty"`
	Warnings        []ConsistencyWarning `json:"warnings,omitempty"`
	Rejected        []RejectedRecord     `json:"rejected,omitempty"`
	RecordCount     int                  `json:"record_count"`
	StartedAt       time.Time            `json:"started_at"`
	Duration        time.Duration        `json:"duration"`
}

// Clean 检查本次运行是否无任何标记与告警
func (m *RunMetadata) Clean() bool {
	return len(m.Flags) == 0 && len(m.Warnings) == 0 && len(m.Rejected) == 0
}

// RunResult 分析运行结果
type RunResult struct {
	Records    []ShortageRecord   `json:"records"`
	Summaries  []DimensionSummary `json:"summaries"`
	Months     []MonthSummary     `json:"months,omitempty"`
	TotalHours float64            `json:"total_shortage_hours"`
	Meta       RunMetadata        `json:"meta"`
}

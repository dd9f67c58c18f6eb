// Package analysis 提供人力需求缺口计算引擎
//
// 引擎流水线：原始出勤记录 → 槽位归一化 → {需求基线, 实际在岗聚合}
// → 缺口/富余计算 → 异常防护 → 周期归一化 → 结果表与元数据
package analysis

import (
	"sort"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// 相邻记录合并容差：导入层常把跨午夜班次拆成
// 22:00-23:59 和 00:00-06:00 两行，中间留一分钟空隙
const mergeGapTolerance = time.Minute

// Normalizer 槽位归一化器
// 把原始出勤记录切成固定宽度的时间槽占用元组；
// 跨午夜班次作为单一连续占用处理，午夜边界槽绝不重复计人
type Normalizer struct {
	cfg model.EngineConfig
}

// NewNormalizer 创建槽位归一化器
func NewNormalizer(cfg model.EngineConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// NormalizeResult 归一化结果
type NormalizeResult struct {
	Occupancies []model.SlotOccupancy  `json:"occupancies"`
	Rejected    []model.RejectedRecord `json:"rejected"`
}

// Normalize 将无序的原始出勤记录归一化为槽位占用元组
// 非法记录进入隔离区（Rejected），不会中断运行，也不会静默丢弃
func (n *Normalizer) Normalize(records []*model.AttendanceRecord) *NormalizeResult {
	result := &NormalizeResult{}

	// 第一遍：校验并筛除请假/零时长记录
	var valid []*model.AttendanceRecord
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if reason, field := n.validate(rec); reason != "" {
			result.Rejected = append(result.Rejected, model.RejectedRecord{
				Record: rec,
				Reason: reason,
				Field:  field,
			})
			continue
		}
		if rec.IsLeave() || rec.EndTime.Equal(rec.StartTime) {
			// 请假与零时长不产生占用，也不算非法
			continue
		}
		valid = append(valid, rec)
	}

	// 第二遍：合并同一员工被导入层拆开的连续班段
	merged := mergeContinuations(valid)

	// 第三遍：切槽，按 (槽, 员工) 去重
	// 同一人在同一槽内只计一个占用单位，这是午夜重复计数缺陷的根治点
	type occKey struct {
		date    string
		index   int
		staffID string
	}
	seen := make(map[occKey]bool)

	for _, rec := range merged {
		for _, slot := range n.slotsFor(rec.StartTime, rec.EndTime) {
			key := occKey{date: slot.Date, index: slot.Index, staffID: rec.StaffID}
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Occupancies = append(result.Occupancies, model.SlotOccupancy{
				Slot:           slot,
				StaffID:        rec.StaffID,
				Role:           rec.Role,
				EmploymentType: rec.EmploymentType,
			})
		}
	}

	// 输出确定性排序，保证相同输入得到逐字节相同的结果
	sort.Slice(result.Occupancies, func(i, j int) bool {
		a, b := result.Occupancies[i], result.Occupancies[j]
		if a.Slot.Date != b.Slot.Date {
			return a.Slot.Date < b.Slot.Date
		}
		if a.Slot.Index != b.Slot.Index {
			return a.Slot.Index < b.Slot.Index
		}
		return a.StaffID < b.StaffID
	})

	return result
}

// validate 校验单条记录，返回拒绝原因（空串表示合法）
func (n *Normalizer) validate(rec *model.AttendanceRecord) (reason, field string) {
	if rec.StaffID == "" {
		return "缺少员工标识", "staff_id"
	}
	if rec.StartTime.IsZero() {
		return "缺少开始时间", "start_time"
	}
	if rec.EndTime.IsZero() {
		return "缺少结束时间", "end_time"
	}
	if rec.EndTime.Before(rec.StartTime) {
		return "结束时间早于开始时间", "end_time"
	}
	return "", ""
}

// slotsFor 返回 [start, end) 区间覆盖的全部时间槽
// 区间跨午夜时槽位自然延续到次日，不做任何按日拆分
func (n *Normalizer) slotsFor(start, end time.Time) []model.TimeSlot {
	slotMin := n.cfg.SlotMinutes
	var slots []model.TimeSlot

	// 按墙上时钟对齐到槽边界：班次覆盖到某槽的任何部分即视为占用该槽
	minute := start.Hour()*60 + start.Minute()
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).
		Add(time.Duration(minute-minute%slotMin) * time.Minute)
	for cur.Before(end) {
		minutes := cur.Hour()*60 + cur.Minute()
		slots = append(slots, model.TimeSlot{
			Date:  cur.Format(model.DateLayout),
			Index: minutes / slotMin,
		})
		cur = cur.Add(time.Duration(slotMin) * time.Minute)
	}
	return slots
}

// mergeContinuations 合并同一员工的连续班段
// 夜段 22:00-23:59 与晨段 00:00-06:00 合并为一个 22:00-06:00 区间，
// 避免同一个人在午夜边界槽被当作两个占用
func mergeContinuations(records []*model.AttendanceRecord) []*model.AttendanceRecord {
	byStaff := make(map[string][]*model.AttendanceRecord)
	var staffIDs []string
	for _, rec := range records {
		if _, ok := byStaff[rec.StaffID]; !ok {
			staffIDs = append(staffIDs, rec.StaffID)
		}
		byStaff[rec.StaffID] = append(byStaff[rec.StaffID], rec)
	}
	sort.Strings(staffIDs)

	var merged []*model.AttendanceRecord
	for _, staffID := range staffIDs {
		recs := byStaff[staffID]
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].StartTime.Before(recs[j].StartTime)
		})

		cur := cloneRecord(recs[0])
		for _, rec := range recs[1:] {
			gap := rec.StartTime.Sub(cur.EndTime)
			if gap >= -mergeGapTolerance && gap <= mergeGapTolerance &&
				rec.Role == cur.Role && rec.EmploymentType == cur.EmploymentType {
				// 连续班段：延长当前区间
				if rec.EndTime.After(cur.EndTime) {
					cur.EndTime = rec.EndTime
				}
				continue
			}
			merged = append(merged, cur)
			cur = cloneRecord(rec)
		}
		merged = append(merged, cur)
	}
	return merged
}

// cloneRecord 复制记录，合并时不改写调用方持有的原始数据
func cloneRecord(rec *model.AttendanceRecord) *model.AttendanceRecord {
	c := *rec
	return &c
}

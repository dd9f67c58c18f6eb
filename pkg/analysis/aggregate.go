package analysis

import (
	"fmt"
	"sort"

	"github.com/quekou/quekou/pkg/model"
)

// SlotKey 槽位标识 (日期, 当日槽序号)
type SlotKey struct {
	Date  string
	Index int
}

// OccupancyTable 各槽位、各维度的实际在岗人数表
// 每次运行重新计算，绝不作为数据源持久化
type OccupancyTable struct {
	counts map[SlotKey]map[model.DimensionKey]int
	dims   map[model.DimensionKey]bool
}

// NewOccupancyTable 创建空的在岗人数表
func NewOccupancyTable() *OccupancyTable {
	return &OccupancyTable{
		counts: make(map[SlotKey]map[model.DimensionKey]int),
		dims:   make(map[model.DimensionKey]bool),
	}
}

// add 在指定槽位、维度上累加一个占用单位
func (t *OccupancyTable) add(key SlotKey, dim model.DimensionKey) {
	if t.counts[key] == nil {
		t.counts[key] = make(map[model.DimensionKey]int)
	}
	t.counts[key][dim]++
	t.dims[dim] = true
}

// Count 返回指定槽位、维度的在岗人数
func (t *OccupancyTable) Count(key SlotKey, dim model.DimensionKey) int {
	return t.counts[key][dim]
}

// Dimensions 返回表中出现过的全部维度键（确定性排序）
func (t *OccupancyTable) Dimensions() []model.DimensionKey {
	dims := make([]model.DimensionKey, 0, len(t.dims))
	for dim := range t.dims {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool {
		return dims[i].String() < dims[j].String()
	})
	return dims
}

// Slots 返回表中出现过的全部槽位（确定性排序）
func (t *OccupancyTable) Slots() []SlotKey {
	keys := make([]SlotKey, 0, len(t.counts))
	for key := range t.counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Index < keys[j].Index
	})
	return keys
}

// FilterByDates 返回仅包含指定日期集合的子表
func (t *OccupancyTable) FilterByDates(dates []string) *OccupancyTable {
	want := make(map[string]bool, len(dates))
	for _, d := range dates {
		want[d] = true
	}

	sub := NewOccupancyTable()
	for key, byDim := range t.counts {
		if !want[key.Date] {
			continue
		}
		for dim, count := range byDim {
			if sub.counts[key] == nil {
				sub.counts[key] = make(map[model.DimensionKey]int)
			}
			sub.counts[key][dim] += count
			sub.dims[dim] = true
		}
	}
	return sub
}

// Aggregator 实际在岗聚合器
// 对归一化占用元组做纯分组求和，不含任何统计推断
type Aggregator struct {
	cfg model.EngineConfig
}

// NewAggregator 创建实际在岗聚合器
func NewAggregator(cfg model.EngineConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate 按 (槽位, 维度) 聚合占用元组
// 维度包括整体、每个岗位、每种雇佣类型；
// 岗位/雇佣类型为空的占用只计入整体，由一致性检查暴露差额
func (a *Aggregator) Aggregate(occupancies []model.SlotOccupancy) *OccupancyTable {
	table := NewOccupancyTable()
	for _, occ := range occupancies {
		key := SlotKey{Date: occ.Slot.Date, Index: occ.Slot.Index}
		table.add(key, model.OverallKey())
		if occ.Role != "" {
			table.add(key, model.RoleKey(occ.Role))
		}
		if occ.EmploymentType != "" {
			table.add(key, model.EmploymentKey(occ.EmploymentType))
		}
	}
	return table
}

// CheckAdditivity 跨维度可加性检查
// 不变式：每个槽位按岗位求和 == 整体人数，按雇佣类型求和同理；
// 违反（通常因源数据岗位缺失）报数据质量告警，绝不按比例摊回去
func (a *Aggregator) CheckAdditivity(table *OccupancyTable) []model.ConsistencyWarning {
	var warnings []model.ConsistencyWarning
	dims := table.Dimensions()

	for _, key := range table.Slots() {
		overall := table.Count(key, model.OverallKey())

		roleSum, employmentSum := 0, 0
		for _, dim := range dims {
			switch dim.Kind {
			case model.DimensionRole:
				roleSum += table.Count(key, dim)
			case model.DimensionEmployment:
				employmentSum += table.Count(key, dim)
			}
		}

		if roleSum != overall {
			warnings = append(warnings, model.ConsistencyWarning{
				Date:      key.Date,
				SlotIndex: key.Index,
				Kind:      "role_sum_mismatch",
				Expected:  float64(overall),
				Got:       float64(roleSum),
				Detail:    fmt.Sprintf("岗位维度合计 %d 与整体人数 %d 不一致", roleSum, overall),
			})
		}
		if employmentSum != overall {
			warnings = append(warnings, model.ConsistencyWarning{
				Date:      key.Date,
				SlotIndex: key.Index,
				Kind:      "employment_sum_mismatch",
				Expected:  float64(overall),
				Got:       float64(employmentSum),
				Detail:    fmt.Sprintf("雇佣类型维度合计 %d 与整体人数 %d 不一致", employmentSum, overall),
			})
		}
	}
	return warnings
}

package analysis

import (
	"testing"

	"github.com/quekou/quekou/pkg/model"
)

func occupancy(date string, index int, staffID, role, employment string) model.SlotOccupancy {
	return model.SlotOccupancy{
		Slot:           model.TimeSlot{Date: date, Index: index},
		StaffID:        staffID,
		Role:           role,
		EmploymentType: employment,
	}
}

func TestAggregator_GroupedSum(t *testing.T) {
	a := NewAggregator(model.DefaultEngineConfig())

	table := a.Aggregate([]model.SlotOccupancy{
		occupancy("2026-03-02", 16, "s1", "护士", "full_time"),
		occupancy("2026-03-02", 16, "s2", "护士", "part_time"),
		occupancy("2026-03-02", 16, "s3", "护理员", "full_time"),
		occupancy("2026-03-02", 17, "s1", "护士", "full_time"),
	})

	key := SlotKey{Date: "2026-03-02", Index: 16}
	if got := table.Count(key, model.OverallKey()); got != 3 {
		t.Errorf("整体人数期望3，实际 %d", got)
	}
	if got := table.Count(key, model.RoleKey("护士")); got != 2 {
		t.Errorf("护士人数期望2，实际 %d", got)
	}
	if got := table.Count(key, model.RoleKey("护理员")); got != 1 {
		t.Errorf("护理员人数期望1，实际 %d", got)
	}
	if got := table.Count(key, model.EmploymentKey("full_time")); got != 2 {
		t.Errorf("全职人数期望2，实际 %d", got)
	}
}

// TestAggregator_DimensionAdditivity 每个槽位按岗位求和必须等于整体人数
func TestAggregator_DimensionAdditivity(t *testing.T) {
	a := NewAggregator(model.DefaultEngineConfig())

	table := a.Aggregate([]model.SlotOccupancy{
		occupancy("2026-03-02", 16, "s1", "护士", "full_time"),
		occupancy("2026-03-02", 16, "s2", "护理员", "part_time"),
		occupancy("2026-03-02", 17, "s1", "护士", "full_time"),
	})

	warnings := a.CheckAdditivity(table)
	if len(warnings) != 0 {
		t.Errorf("维度齐全时不应有一致性告警，实际 %d 条: %+v", len(warnings), warnings)
	}

	for _, key := range table.Slots() {
		overall := table.Count(key, model.OverallKey())
		roleSum := 0
		for _, dim := range table.Dimensions() {
			if dim.Kind == model.DimensionRole {
				roleSum += table.Count(key, dim)
			}
		}
		if roleSum != overall {
			t.Errorf("槽 %v 岗位合计 %d 不等于整体 %d", key, roleSum, overall)
		}
	}
}

// TestAggregator_MissingRoleWarning 岗位缺失的源数据报数据质量告警，不做比例修正
func TestAggregator_MissingRoleWarning(t *testing.T) {
	a := NewAggregator(model.DefaultEngineConfig())

	table := a.Aggregate([]model.SlotOccupancy{
		occupancy("2026-03-02", 16, "s1", "护士", "full_time"),
		occupancy("2026-03-02", 16, "s2", "", "full_time"), // 岗位缺失
	})

	warnings := a.CheckAdditivity(table)

	found := false
	for _, w := range warnings {
		if w.Kind == "role_sum_mismatch" && w.SlotIndex == 16 {
			found = true
			if w.Expected != 2 || w.Got != 1 {
				t.Errorf("告警数值错误: expected=%g got=%g", w.Expected, w.Got)
			}
		}
	}
	if !found {
		t.Errorf("岗位缺失应产生 role_sum_mismatch 告警")
	}

	// 告警之外不得修改计数本身
	key := SlotKey{Date: "2026-03-02", Index: 16}
	if got := table.Count(key, model.OverallKey()); got != 2 {
		t.Errorf("整体人数应保持2，实际 %d", got)
	}
	if got := table.Count(key, model.RoleKey("护士")); got != 1 {
		t.Errorf("护士人数应保持1，实际 %d", got)
	}
}

func TestOccupancyTable_FilterByDates(t *testing.T) {
	a := NewAggregator(model.DefaultEngineConfig())
	table := a.Aggregate([]model.SlotOccupancy{
		occupancy("2026-03-02", 16, "s1", "护士", "full_time"),
		occupancy("2026-03-03", 16, "s1", "护士", "full_time"),
		occupancy("2026-03-04", 16, "s1", "护士", "full_time"),
	})

	sub := table.FilterByDates([]string{"2026-03-02", "2026-03-03"})
	if got := len(sub.Slots()); got != 2 {
		t.Errorf("过滤后槽位数期望2，实际 %d", got)
	}
	if got := sub.Count(SlotKey{Date: "2026-03-04", Index: 16}, model.OverallKey()); got != 0 {
		t.Errorf("过滤掉的日期计数应为0，实际 %d", got)
	}
}

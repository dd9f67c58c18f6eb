// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quekou/quekou/pkg/model"
)

// AttendanceRepositoryInterface 出勤记录仓储接口
type AttendanceRepositoryInterface interface {
	CreateBatch(ctx context.Context, records []*model.AttendanceRecord) (int, error)
	ListByWindow(ctx context.Context, orgID uuid.UUID, window model.DateRange) ([]*model.AttendanceRecord, error)
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)
	DeleteByWindow(ctx context.Context, orgID uuid.UUID, window model.DateRange) (int, error)
}

// AttendanceRepository 出勤记录仓储实现
type AttendanceRepository struct {
	db DB
}

// NewAttendanceRepository 创建出勤记录仓储
func NewAttendanceRepository(db DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateBatch 批量导入出勤记录，返回写入条数
func (r *AttendanceRepository) CreateBatch(ctx context.Context, records []*model.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO attendance_records (
			id, org_id, staff_id, role, employment_type,
			start_time, end_time, shift_code, created_at
		) VALUES `)

	args := make([]interface{}, 0, len(records)*9)
	now := time.Now()

	for i, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))

		args = append(args,
			rec.ID, rec.OrgID, rec.StaffID, rec.Role, rec.EmploymentType,
			rec.StartTime, rec.EndTime, rec.ShiftCode, rec.CreatedAt,
		)
	}

	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	result, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("批量导入出勤记录失败: %w", err)
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// ListByWindow 查询分析窗口内的出勤记录
// 窗口以班次开始时间为准，跨午夜班次归属开始日
func (r *AttendanceRepository) ListByWindow(ctx context.Context, orgID uuid.UUID, window model.DateRange) ([]*model.AttendanceRecord, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("无效的查询窗口: %s ~ %s", window.StartDate, window.EndDate)
	}

	query := `
		SELECT id, org_id, staff_id, role, employment_type,
			start_time, end_time, shift_code, created_at
		FROM attendance_records
		WHERE org_id = $1
			AND start_time >= $2::date
			AND start_time < ($3::date + INTERVAL '1 day')
		ORDER BY staff_id, start_time
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, window.StartDate, window.EndDate)
	if err != nil {
		return nil, fmt.Errorf("查询出勤记录失败: %w", err)
	}
	defer rows.Close()

	var records []*model.AttendanceRecord
	for rows.Next() {
		rec := &model.AttendanceRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.OrgID, &rec.StaffID, &rec.Role, &rec.EmploymentType,
			&rec.StartTime, &rec.EndTime, &rec.ShiftCode, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描出勤记录失败: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByOrg 统计组织的出勤记录总数
func (r *AttendanceRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM attendance_records WHERE org_id = $1"
	if err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("统计出勤记录失败: %w", err)
	}
	return count, nil
}

// DeleteByWindow 删除窗口内的出勤记录（重新导入前清理）
func (r *AttendanceRepository) DeleteByWindow(ctx context.Context, orgID uuid.UUID, window model.DateRange) (int, error) {
	query := `
		DELETE FROM attendance_records
		WHERE org_id = $1
			AND start_time >= $2::date
			AND start_time < ($3::date + INTERVAL '1 day')
	`
	result, err := r.db.ExecContext(ctx, query, orgID, window.StartDate, window.EndDate)
	if err != nil {
		return 0, fmt.Errorf("删除出勤记录失败: %w", err)
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}

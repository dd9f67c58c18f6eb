// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quekou/quekou/pkg/model"
)

// AnalysisRun 分析运行持久化记录
// 明细记录与汇总统一存入 meta JSONB 列，列表查询只读标量列
type AnalysisRun struct {
	ID              uuid.UUID `json:"id"`
	OrgID           uuid.UUID `json:"org_id"`
	WindowStart     string    `json:"window_start"`
	WindowEnd       string    `json:"window_end"`
	StatisticMethod string    `json:"statistic_method"`
	GuardState      string    `json:"guard_state"`
	TotalHours      float64   `json:"total_shortage_hours"`
	Result          *model.RunResult
	CreatedAt       time.Time `json:"created_at"`
}

// AnalysisRepositoryInterface 分析运行仓储接口
type AnalysisRepositoryInterface interface {
	SaveRun(ctx context.Context, orgID uuid.UUID, result *model.RunResult) error
	GetRun(ctx context.Context, id uuid.UUID) (*AnalysisRun, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]*AnalysisRun, int, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
}

// AnalysisRepository 分析运行仓储实现
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository 创建分析运行仓储
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// SaveRun 保存分析运行结果
func (r *AnalysisRepository) SaveRun(ctx context.Context, orgID uuid.UUID, result *model.RunResult) error {
	metaJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (
			id, org_id, window_start, window_end, statistic_method,
			guard_state, total_hours, meta, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		result.Meta.RunID, orgID,
		result.Meta.AnalysisWindow.StartDate, result.Meta.AnalysisWindow.EndDate,
		result.Meta.StatisticMethod, result.Meta.GuardState,
		result.TotalHours, metaJSON, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("保存分析运行失败: %w", err)
	}

	return nil
}

// GetRun 根据ID获取完整分析运行（含明细）
func (r *AnalysisRepository) GetRun(ctx context.Context, id uuid.UUID) (*AnalysisRun, error) {
	query := `
		SELECT id, org_id, window_start, window_end, statistic_method,
			guard_state, total_hours, meta, created_at
		FROM analysis_runs
		WHERE id = $1
	`

	run := &AnalysisRun{}
	var metaJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.OrgID, &run.WindowStart, &run.WindowEnd, &run.StatisticMethod,
		&run.GuardState, &run.TotalHours, &metaJSON, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询分析运行失败: %w", err)
	}

	if len(metaJSON) > 0 {
		run.Result = &model.RunResult{}
		if err := json.Unmarshal(metaJSON, run.Result); err != nil {
			return nil, fmt.Errorf("解析分析结果失败: %w", err)
		}
	}

	return run, nil
}

// ListRuns 列出分析运行（不加载明细）
func (r *AnalysisRepository) ListRuns(ctx context.Context, filter ListFilter) ([]*AnalysisRun, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argNum))
		args = append(args, *filter.OrgID)
		argNum++
	}

	if filter.GuardState != "" {
		conditions = append(conditions, fmt.Sprintf("guard_state = $%d", argNum))
		args = append(args, filter.GuardState)
		argNum++
	}

	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("statistic_method = $%d", argNum))
		args = append(args, filter.Method)
		argNum++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("window_start >= $%d", argNum))
		args = append(args, filter.StartDate)
		argNum++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("window_end <= $%d", argNum))
		args = append(args, filter.EndDate)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM analysis_runs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计分析运行数量失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, window_start, window_end, statistic_method,
			guard_state, total_hours, created_at
		FROM analysis_runs %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询分析运行列表失败: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run := &AnalysisRun{}
		if err := rows.Scan(
			&run.ID, &run.OrgID, &run.WindowStart, &run.WindowEnd, &run.StatisticMethod,
			&run.GuardState, &run.TotalHours, &run.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("扫描分析运行失败: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}

// DeleteRun 删除分析运行
func (r *AnalysisRepository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM analysis_runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("删除分析运行失败: %w", err)
	}
	return nil
}

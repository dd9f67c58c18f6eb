// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quekou/quekou/internal/metrics"
	"github.com/quekou/quekou/internal/repository"
	"github.com/quekou/quekou/pkg/analysis"
	"github.com/quekou/quekou/pkg/errors"
	"github.com/quekou/quekou/pkg/model"
	"github.com/quekou/quekou/pkg/stats"
	"github.com/quekou/quekou/pkg/validator"
)

// AnalysisHandler 缺口分析处理器
type AnalysisHandler struct {
	defaults     model.EngineConfig
	attendance   repository.AttendanceRepositoryInterface
	analysisRepo repository.AnalysisRepositoryInterface
}

// NewAnalysisHandler 创建缺口分析处理器
// 仓储为nil时退化为纯内存模式：请求自带记录，结果不落库
func NewAnalysisHandler(defaults model.EngineConfig, attendance repository.AttendanceRepositoryInterface, analysisRepo repository.AnalysisRepositoryInterface) *AnalysisHandler {
	return &AnalysisHandler{
		defaults:     defaults,
		attendance:   attendance,
		analysisRepo: analysisRepo,
	}
}

// RecordInput 出勤记录输入
type RecordInput struct {
	StaffID        string `json:"staff_id"`
	Role           string `json:"role,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
	StartTime      string `json:"start_time"` // RFC3339
	EndTime        string `json:"end_time"`   // RFC3339
	ShiftCode      string `json:"shift_code,omitempty"`
}

// RunRequest 分析运行请求
type RunRequest struct {
	OrgID     string         `json:"org_id"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Records   []RecordInput  `json:"records,omitempty"` // 为空时从库中读取
	Config    *ConfigInput   `json:"config,omitempty"`
	Persist   bool           `json:"persist,omitempty"`
}

// ConfigInput 引擎配置覆盖项，未提供的字段沿用服务默认值
type ConfigInput struct {
	SlotMinutes         *int              `json:"slot_minutes,omitempty"`
	StatisticMethod     string            `json:"statistic_method,omitempty"`
	IQRMultiplier       *float64          `json:"iqr_multiplier,omitempty"`
	ReferenceWindow     *model.DateRange  `json:"reference_window,omitempty"`
	BusinessHours       *model.HourWindow `json:"business_hours,omitempty"`
	MaxShortageHoursDay *float64          `json:"max_shortage_hours_per_day,omitempty"`
	NeedCeilingPerSlot  *float64          `json:"need_ceiling_per_slot,omitempty"`
}

// Run 执行缺口分析
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, window, appErr := h.validateRunRequest(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cfg := h.buildConfig(req.Config)

	records, parseRejected, appErr := h.loadRecords(r, &req, orgID, window)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	start := time.Now()
	result, err := pipeline.Run(r.Context(), orgID, records, window)
	metrics.RecordAnalysisRun(string(cfg.StatisticMethod), err == nil, time.Since(start))
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	result.Meta.Rejected = append(result.Meta.Rejected, parseRejected...)
	h.reportRunMetrics(orgID, result)

	if req.Persist && h.analysisRepo != nil {
		if err := h.analysisRepo.SaveRun(r.Context(), orgID, result); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInternal, "保存分析结果失败"))
			return
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// Scenarios 在同一窗口上并行运行三种统计方法场景
func (h *AnalysisHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, window, appErr := h.validateRunRequest(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cfg := h.buildConfig(req.Config)

	records, parseRejected, appErr := h.loadRecords(r, &req, orgID, window)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	results, err := analysis.RunScenarios(r.Context(), cfg, orgID, records, window)
	metrics.RecordAnalysisRun("scenarios", err == nil, time.Since(start))
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	for i := range results {
		if results[i].Result != nil {
			results[i].Result.Meta.Rejected = append(results[i].Result.Meta.Rejected, parseRejected...)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": results,
	})
}

// Report 在分析结果之上生成覆盖率与工作量报告
func (h *AnalysisHandler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, window, appErr := h.validateRunRequest(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cfg := h.buildConfig(req.Config)

	records, parseRejected, appErr := h.loadRecords(r, &req, orgID, window)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	start := time.Now()
	result, err := pipeline.Run(r.Context(), orgID, records, window)
	metrics.RecordAnalysisRun(string(cfg.StatisticMethod), err == nil, time.Since(start))
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	result.Meta.Rejected = append(result.Meta.Rejected, parseRejected...)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"coverage": stats.NewCoverageAnalyzer(cfg.SlotMinutes).Analyze(result),
		"workload": stats.NewWorkloadAnalyzer().Analyze(records),
		"meta":     result.Meta,
	})
}

// QuarantineResponse 隔离区报告
type QuarantineResponse struct {
	RunID    string                 `json:"run_id"`
	Rejected []model.RejectedRecord `json:"rejected"`
	Flags    []model.AnomalyFlag    `json:"flags"`
}

// Quarantine 查询某次运行的隔离区与异常标记
func (h *AnalysisHandler) Quarantine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	if h.analysisRepo == nil {
		respondError(w, errors.New(errors.CodeNotFound, "结果持久化未启用"))
		return
	}

	idStr := r.URL.Query().Get("run_id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, errors.InvalidInput("run_id", "无效的运行ID格式"))
		return
	}

	run, err := h.analysisRepo.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInternal, "查询分析运行失败"))
		return
	}
	if run == nil || run.Result == nil {
		respondError(w, errors.NotFound("analysis_run", idStr))
		return
	}

	respondJSON(w, http.StatusOK, QuarantineResponse{
		RunID:    run.ID.String(),
		Rejected: run.Result.Meta.Rejected,
		Flags:    run.Result.Meta.Flags,
	})
}

// GetRun 查询单次分析运行明细
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	if h.analysisRepo == nil {
		respondError(w, errors.New(errors.CodeNotFound, "结果持久化未启用"))
		return
	}

	idStr := r.URL.Query().Get("run_id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, errors.InvalidInput("run_id", "无效的运行ID格式"))
		return
	}

	run, err := h.analysisRepo.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInternal, "查询分析运行失败"))
		return
	}
	if run == nil {
		respondError(w, errors.NotFound("analysis_run", idStr))
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// ListRuns 列出历史分析运行
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	if h.analysisRepo == nil {
		respondError(w, errors.New(errors.CodeNotFound, "结果持久化未启用"))
		return
	}

	filter := repository.DefaultListFilter()
	q := r.URL.Query()

	if orgStr := q.Get("org_id"); orgStr != "" {
		orgID, err := uuid.Parse(orgStr)
		if err != nil {
			respondError(w, errors.InvalidInput("org_id", "无效的组织ID格式"))
			return
		}
		filter = filter.WithOrgID(orgID)
	}
	if state := q.Get("guard_state"); state != "" {
		filter = filter.WithGuardState(state)
	}
	if method := q.Get("method"); method != "" {
		filter.Method = method
	}

	runs, total, err := h.analysisRepo.ListRuns(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInternal, "查询分析运行列表失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": total,
	})
}

// ImportRequest 出勤记录导入请求
type ImportRequest struct {
	OrgID   string        `json:"org_id"`
	Records []RecordInput `json:"records"`
	Replace *model.DateRange `json:"replace_window,omitempty"` // 导入前清理该窗口
}

// Import 批量导入出勤记录
func (h *AnalysisHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	if h.attendance == nil {
		respondError(w, errors.New(errors.CodeNotFound, "出勤存储未启用"))
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		respondError(w, errors.InvalidInput("org_id", "无效的组织ID格式"))
		return
	}
	if len(req.Records) == 0 {
		respondError(w, errors.InvalidInput("records", "记录列表不能为空"))
		return
	}

	records, rejected := parseRecordInputs(orgID, req.Records)
	issues := validator.NewDetector(nil).DetectAll(records)

	if req.Replace != nil {
		if _, err := h.attendance.DeleteByWindow(r.Context(), orgID, *req.Replace); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInternal, "清理旧记录失败"))
			return
		}
	}

	imported, err := h.attendance.CreateBatch(r.Context(), records)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInternal, "导入出勤记录失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"imported": imported,
		"rejected": rejected,
		"issues":   issues,
	})
}

// validateRunRequest 验证运行请求的公共字段
func (h *AnalysisHandler) validateRunRequest(req *RunRequest) (uuid.UUID, model.DateRange, *errors.AppError) {
	ve := &errors.ValidationErrors{}

	if req.OrgID == "" {
		ve.Add("org_id", "组织ID不能为空")
	}
	if req.StartDate == "" {
		ve.Add("start_date", "开始日期不能为空")
	}
	if req.EndDate == "" {
		ve.Add("end_date", "结束日期不能为空")
	}

	if req.StartDate != "" {
		if _, err := time.Parse(model.DateLayout, req.StartDate); err != nil {
			ve.Add("start_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}
	if req.EndDate != "" {
		if _, err := time.Parse(model.DateLayout, req.EndDate); err != nil {
			ve.Add("end_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}

	if ve.HasErrors() {
		return uuid.Nil, model.DateRange{}, ve.ToAppError()
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		return uuid.Nil, model.DateRange{}, errors.InvalidInput("org_id", "无效的组织ID格式")
	}

	window := model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if !window.Valid() {
		return uuid.Nil, model.DateRange{}, errors.InvalidInput("end_date", "结束日期不能早于开始日期")
	}

	return orgID, window, nil
}

// buildConfig 把请求覆盖项合并到服务默认配置
func (h *AnalysisHandler) buildConfig(in *ConfigInput) model.EngineConfig {
	cfg := h.defaults
	if in == nil {
		return cfg
	}

	if in.SlotMinutes != nil {
		cfg.SlotMinutes = *in.SlotMinutes
	}
	if in.StatisticMethod != "" {
		cfg.StatisticMethod = model.StatisticMethod(strings.ToLower(in.StatisticMethod))
	}
	if in.IQRMultiplier != nil {
		cfg.IQRMultiplier = *in.IQRMultiplier
	}
	if in.ReferenceWindow != nil {
		cfg.ReferenceWindow = *in.ReferenceWindow
	}
	if in.BusinessHours != nil {
		cfg.BusinessHours = in.BusinessHours
	}
	if in.MaxShortageHoursDay != nil {
		cfg.MaxShortageHoursDay = *in.MaxShortageHoursDay
	}
	if in.NeedCeilingPerSlot != nil {
		cfg.NeedCeilingPerSlot = *in.NeedCeilingPerSlot
	}

	return cfg
}

// loadRecords 从请求体或出勤存储取得待分析记录
// 请求体内解析失败的条目作为隔离列表一并返回，由调用方并入运行元数据
func (h *AnalysisHandler) loadRecords(r *http.Request, req *RunRequest, orgID uuid.UUID, window model.DateRange) ([]*model.AttendanceRecord, []model.RejectedRecord, *errors.AppError) {
	if len(req.Records) > 0 {
		records, rejected := parseRecordInputs(orgID, req.Records)
		return records, rejected, nil
	}

	if h.attendance == nil {
		return nil, nil, errors.InvalidInput("records", "记录列表不能为空")
	}

	records, err := h.attendance.ListByWindow(r.Context(), orgID, window)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "查询出勤记录失败")
	}
	return records, nil, nil
}

// parseRecordInputs 解析请求中的出勤记录
// 时间戳非法的条目进入隔离列表，不阻断整批解析也不静默丢弃
func parseRecordInputs(orgID uuid.UUID, inputs []RecordInput) ([]*model.AttendanceRecord, []model.RejectedRecord) {
	records := make([]*model.AttendanceRecord, 0, len(inputs))
	var rejected []model.RejectedRecord

	for _, in := range inputs {
		start, err1 := time.Parse(time.RFC3339, in.StartTime)
		end, err2 := time.Parse(time.RFC3339, in.EndTime)
		if err1 != nil || err2 != nil {
			field := "start_time"
			if err1 == nil {
				field = "end_time"
			}
			rejected = append(rejected, model.RejectedRecord{
				Record: &model.AttendanceRecord{
					OrgID:          orgID,
					StaffID:        in.StaffID,
					Role:           in.Role,
					EmploymentType: in.EmploymentType,
					StartTime:      start,
					EndTime:        end,
					ShiftCode:      in.ShiftCode,
				},
				Reason: "时间戳格式无效，应为RFC3339",
				Field:  field,
			})
			continue
		}

		records = append(records, &model.AttendanceRecord{
			ID:             uuid.New(),
			OrgID:          orgID,
			StaffID:        in.StaffID,
			Role:           in.Role,
			EmploymentType: in.EmploymentType,
			StartTime:      start,
			EndTime:        end,
			ShiftCode:      in.ShiftCode,
		})
	}

	return records, rejected
}

// reportRunMetrics 上报运行指标
func (h *AnalysisHandler) reportRunMetrics(orgID uuid.UUID, result *model.RunResult) {
	metrics.SetLastShortageHours(orgID.String(), result.TotalHours)
	metrics.SetLastRecordCount(orgID.String(), result.Meta.RecordCount)

	for _, flag := range result.Meta.Flags {
		metrics.RecordAnomalyFlag(string(flag.Kind), string(flag.Severity))
	}
	for _, rej := range result.Meta.Rejected {
		metrics.RecordRejectedRecord(rej.Reason)
	}
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

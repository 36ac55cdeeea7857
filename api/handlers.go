/*
handlers.go - HTTP API handlers for the overtime engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP request/response
  and JSON serialization, and delegates everything else to attendance.Engine.
  Every /api route acts for the owner taken from the verified bearer token.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/submit      Run one pass over pasted text

  Roster:
    GET    /api/members                List members
    POST   /api/members                Add a member
    DELETE /api/members/{id}           Delete a member (records stay)
    GET    /api/members/limit          Monthly limit for ?year&month
    PUT    /api/members/limit          Set one month's limit for everyone

  Overtime:
    GET    /api/overtimes              Records of a month (?year&month)
    DELETE /api/overtimes              Delete a month of records
    GET    /api/overtimes/summary      Per-member totals against the limit
    GET    /api/overtimes/export       Same month as an xlsx workbook

  Staging:
    GET    /api/staging                Candidates awaiting review
    PATCH  /api/staging/{name}         Edit one candidate
    POST   /api/staging/confirm        Promote selected candidates
    POST   /api/staging/cancel         Discard staging

  Admin:
    POST   /api/admin/reconcile        Counter := ledger sum for a month
    GET    /api/admin/reconcile/runs   Recorded reconciliations

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid token
  - 404: Member or candidate not found
  - 409: Duplicate member
  - 500: Internal errors (details are logged, not returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/ledger"
	"github.com/warp/overtime-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *attendance.Engine
	Logger *zap.Logger

	// Ping checks the backing store for /health. Optional.
	Ping func(ctx context.Context) error

	now func() time.Time
}

// NewHandler creates a new handler around engine.
func NewHandler(engine *attendance.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Logger: logger, now: time.Now}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SubmitAttendance runs one attendance pass for the owner.
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	var req SubmitAttendanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mode, err := attendance.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	var date ledger.TimePoint
	if req.Date != "" {
		date, err = ledger.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	outcome, err := h.Engine.SubmitAttendanceText(r.Context(), OwnerFrom(r.Context()), req.Text, mode, date)
	var aborted *ledger.PassAbortedError
	if errors.As(err, &aborted) {
		h.Logger.Error("attendance pass aborted", zap.Int("line", aborted.Line), zap.Error(aborted.Err))
		writeJSON(w, http.StatusInternalServerError, SubmitAttendanceResponse{
			Outcome:       outcome,
			AbortedAtLine: aborted.Line,
			Error:         "Attendance pass stopped by a storage failure",
		})
		return
	}
	if err != nil {
		h.writeEngineError(w, "Failed to submit attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitAttendanceResponse{Outcome: outcome})
}

// =============================================================================
// ROSTER
// =============================================================================

// ListMembers returns the owner's roster.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Engine.ListMembers(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		h.writeEngineError(w, "Failed to list members", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTOs(members))
}

// CreateMember adds a member by hand.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.Engine.AddMember(r.Context(), OwnerFrom(r.Context()), attendance.NewMember{
		RealName:   req.RealName,
		Nickname:   req.Nickname,
		Shift:      ledger.Shift(req.Shift),
		ShiftStart: ledger.ShiftStart(req.ShiftStart),
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(*m))
}

// DeleteMember removes a member. Their attendance records stay.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteMember(r.Context(), OwnerFrom(r.Context()), id); err != nil {
		h.writeEngineError(w, "Failed to delete member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMonthlyLimit returns the overtime cap for ?year&month.
func (h *Handler) GetMonthlyLimit(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}

	limit, err := h.Engine.MonthlyLimit(r.Context(), OwnerFrom(r.Context()), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to load monthly limit", err)
		return
	}
	writeJSON(w, http.StatusOK, LimitDTO{Year: year, Month: int(month), Hours: limit.String()})
}

// SetMonthlyLimit sets one month's overtime cap for every member.
func (h *Handler) SetMonthlyLimit(w http.ResponseWriter, r *http.Request) {
	var req SetLimitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	now := h.now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = int(now.Month())
	}

	n, err := h.Engine.SetMonthlyLimit(r.Context(), OwnerFrom(r.Context()),
		req.Year, time.Month(req.Month), ledger.NewAmount(req.Hours, ledger.UnitHours))
	if err != nil {
		h.writeEngineError(w, "Failed to set monthly limit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// =============================================================================
// OVERTIME
// =============================================================================

// ListOvertimes returns a month of attendance records.
func (h *Handler) ListOvertimes(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	records, err := h.Engine.MonthlyRecords(r.Context(), OwnerFrom(r.Context()), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to list overtimes", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// DeleteOvertimes deletes a month of attendance records.
func (h *Handler) DeleteOvertimes(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	n, err := h.Engine.DeleteMonth(r.Context(), OwnerFrom(r.Context()), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to delete overtimes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// GetSummary returns per-member totals for a month.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	summary, err := h.Engine.MonthlySummary(r.Context(), OwnerFrom(r.Context()), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ExportOvertimes streams the month as an xlsx workbook.
func (h *Handler) ExportOvertimes(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	owner := OwnerFrom(ctx)

	summary, err := h.Engine.MonthlySummary(ctx, owner, year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to build summary", err)
		return
	}
	records, err := h.Engine.MonthlyRecords(ctx, owner, year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to list overtimes", err)
		return
	}
	buf, err := report.MonthlyWorkbook(summary, records)
	if err != nil {
		h.writeEngineError(w, "Failed to build workbook", err)
		return
	}

	filename := report.Filename(year, int(month))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"; filename*=UTF-8''"+url.PathEscape(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// =============================================================================
// STAGING
// =============================================================================

// ListStaging returns the candidates awaiting review.
func (h *Handler) ListStaging(w http.ResponseWriter, r *http.Request) {
	staged, err := h.Engine.StagedCandidates(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		h.writeEngineError(w, "Failed to load staging", err)
		return
	}
	if staged == nil {
		staged = []ledger.UnresolvedCandidate{}
	}
	writeJSON(w, http.StatusOK, staged)
}

// EditStaging edits one staged candidate, addressed by real name.
func (h *Handler) EditStaging(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid candidate name", err)
		return
	}
	var req EditCandidateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.Engine.EditCandidate(r.Context(), OwnerFrom(r.Context()), name, toCandidateEdit(req))
	if err != nil {
		h.writeEngineError(w, "Failed to edit candidate", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ConfirmStaging promotes the selected candidates to the roster.
func (h *Handler) ConfirmStaging(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.ConfirmStaging(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		h.writeEngineError(w, "Failed to confirm staging", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":   toMemberDTOs(res.Added),
		"skipped": nonNil(res.Skipped),
		"dropped": res.Dropped,
	})
}

// CancelStaging discards every staged candidate.
func (h *Handler) CancelStaging(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.CancelStaging(r.Context(), OwnerFrom(r.Context())); err != nil {
		h.writeEngineError(w, "Failed to cancel staging", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN
// =============================================================================

// Reconcile rewrites the owner's accrual counters from the ledger for a month.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	run, err := h.Engine.ReconcileAccruals(r.Context(), OwnerFrom(r.Context()), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// ListReconcileRuns returns the owner's recorded reconciliations.
func (h *Handler) ListReconcileRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Engine.ReconcileRuns(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		h.writeEngineError(w, "Failed to list reconcile runs", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTOs(runs))
}

// Health reports liveness and, when Ping is set, store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			h.Logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// period reads ?year&month, defaulting to the current month.
func (h *Handler) period(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	now := h.now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return 0, 0, false
		}
		year = v
	}
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return 0, 0, false
		}
		month = v
	}
	return year, time.Month(month), true
}

// writeEngineError maps an engine error to a status. Internal details are
// logged and never sent to the client.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

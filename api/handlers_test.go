/*
handlers_test.go - HTTP tests for the API

Tests for:
- Authentication (missing token, token without the owner claim)
- Attendance submit, roster, staging, summary and export round trips
- Error mapping (400 / 404 / 409 / 500 with partial outcome)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/ledger"
	"github.com/warp/overtime-engine/ledger/store"
	"github.com/warp/overtime-engine/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testSecret = "test-secret-0123456789"

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router http.Handler
	auth   *jwtauth.JWTAuth
	mem    *store.Memory
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	return newTestServerWith(t, mem, mem)
}

func newTestServerWith(t *testing.T, mem *store.Memory, att ledger.AttendanceStore) *testServer {
	t.Helper()
	engine := attendance.NewEngine(mem, att, mem,
		attendance.WithRunStore(mem),
		attendance.WithClock(func() time.Time { return testNow }))

	h := NewHandler(engine, zap.NewNop())
	h.now = func() time.Time { return testNow }

	auth := jwtauth.New("HS256", []byte(testSecret), nil)
	_, token, err := auth.Encode(map[string]interface{}{"uid": "owner-1"})
	require.NoError(t, err)

	return &testServer{
		t:      t,
		router: NewRouter(h, auth, RouterOptions{}),
		auth:   auth,
		mem:    mem,
		token:  token,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth_MissingToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_TokenWithoutOwnerClaim(t *testing.T) {
	s := newTestServer(t)
	_, token, err := s.auth.Encode(map[string]interface{}{"sub": "someone"})
	require.NoError(t, err)
	s.token = token

	rec := s.do(http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSignature(t *testing.T) {
	s := newTestServer(t)
	other := jwtauth.New("HS256", []byte("another-secret-0123456789"), nil)
	_, token, err := other.Encode(map[string]interface{}{"uid": "owner-1"})
	require.NoError(t, err)
	s.token = token

	rec := s.do(http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_IsPublic(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestSubmitAttendance_RoundTrip(t *testing.T) {
	// GIVEN: An on the roster and a 10h limit
	// WHEN: A check-in and a check-out pass are submitted
	// THEN: The summary shows 2h done and 8h remaining

	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "Nguyễn Văn An"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPut, "/api/members/limit", SetLimitRequest{Hours: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{
		Text: "Bảng chấm công\n1. Nguyễn Văn An/06:55\n2. Trần Thị Bình/06:50", Mode: "checkin", Date: "2025-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[attendance.Outcome](t, rec)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Ignored)
	assert.Equal(t, []string{"Trần Thị Bình"}, out.Unresolved)

	rec = s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{
		Text: "1. Nguyễn Văn An/18:30", Mode: "checkout", Date: "2025-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/overtimes?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]AttendanceRecordDTO](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "06:55", records[0].CheckIn)
	assert.Equal(t, "18:30", records[0].CheckOut)
	assert.Equal(t, "2", records[0].OvertimeHours)

	rec = s.do(http.MethodGet, "/api/overtimes/summary?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[MonthSummaryDTO](t, rec)
	require.Len(t, summary.Members, 1)
	assert.Equal(t, "2", summary.Members[0].Done)
	assert.Equal(t, "8", summary.Members[0].Remaining)
	assert.Equal(t, "2", summary.Total)
}

func TestSubmitAttendance_BadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "An 07:00", Mode: "lunch"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "  ", Mode: "checkin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "An 07:00", Mode: "checkin", Date: "10/03/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenLedger struct {
	ledger.AttendanceStore
}

func (brokenLedger) MergeAttendance(context.Context, ledger.AttendancePatch) (ledger.MergeResult, error) {
	return ledger.MergeResult{}, errors.New("disk full")
}

func TestSubmitAttendance_StoreFailureReturnsPartialOutcome(t *testing.T) {
	mem := store.NewMemory()
	s := newTestServerWith(t, mem, brokenLedger{AttendanceStore: mem})
	rec := s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{
		Text: "header line\n1. An/07:00", Mode: "checkin",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, resp["abortedAtLine"])
	assert.EqualValues(t, 1, resp["skipped"])
	assert.NotContains(t, rec.Body.String(), "disk full")
}

// =============================================================================
// ROSTER
// =============================================================================

func TestMembers_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	require.Equal(t, http.StatusCreated, rec.Code)
	member := decode[MemberDTO](t, rec)
	assert.Equal(t, "A", member.Nickname)
	assert.Equal(t, "07:00", member.ShiftStart)
	assert.Equal(t, 2025, member.AccrualYear)
	assert.Equal(t, 3, member.AccrualMonth)

	rec = s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "Bình", ShiftStart: "09:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/members/limit", SetLimitRequest{Hours: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/members/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/members/"+member.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/members", nil)
	assert.Empty(t, decode[[]MemberDTO](t, rec))
}

func TestMembers_LimitPerMonth(t *testing.T) {
	// GIVEN: February capped at 10h
	// WHEN: March is capped at 40h
	// THEN: February's limit, summary and workbook still say 10h

	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPut, "/api/members/limit", SetLimitRequest{Year: 2025, Month: 2, Hours: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPut, "/api/members/limit", SetLimitRequest{Hours: 40})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/members/limit?year=2025&month=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LimitDTO{Year: 2025, Month: 2, Hours: "10"}, decode[LimitDTO](t, rec))

	rec = s.do(http.MethodGet, "/api/members/limit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LimitDTO{Year: 2025, Month: 3, Hours: "40"}, decode[LimitDTO](t, rec))

	rec = s.do(http.MethodGet, "/api/overtimes/summary?year=2025&month=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feb := decode[MonthSummaryDTO](t, rec)
	require.Len(t, feb.Members, 1)
	assert.Equal(t, "10", feb.Members[0].Limit)

	rec = s.do(http.MethodGet, "/api/overtimes/export?year=2025&month=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(report.SummarySheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "10", v)

	rec = s.do(http.MethodPut, "/api/members/limit", SetLimitRequest{Year: 2025, Month: 13, Hours: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMembers_ScopedToTokenOwner(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, token, err := s.auth.Encode(map[string]interface{}{"uid": "owner-2"})
	require.NoError(t, err)
	s.token = token

	rec = s.do(http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]MemberDTO](t, rec))
}

// =============================================================================
// STAGING
// =============================================================================

func TestStaging_EditAndConfirm(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{
		Text: "1. Lê Chi/07:50", Mode: "checkin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/staging", nil)
	staged := decode[[]ledger.UnresolvedCandidate](t, rec)
	require.Len(t, staged, 1)
	assert.Equal(t, ledger.ShiftStart0800, staged[0].ProposedShiftStart)

	nick := "Chi"
	rec = s.do(http.MethodPatch, "/api/staging/"+url.PathEscape("Lê Chi"), EditCandidateRequest{Nickname: &nick})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPatch, "/api/staging/Nobody", EditCandidateRequest{Nickname: &nick})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/staging/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/members", nil)
	members := decode[[]MemberDTO](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, "Chi", members[0].Nickname)
	assert.Equal(t, "08:00", members[0].ShiftStart)

	rec = s.do(http.MethodPost, "/api/staging/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaging_Cancel(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "Lê Chi 06:50", Mode: "checkin"})

	rec := s.do(http.MethodPost, "/api/staging/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/staging", nil)
	assert.Empty(t, decode[[]ledger.UnresolvedCandidate](t, rec))
}

// =============================================================================
// OVERTIME / ADMIN
// =============================================================================

func TestOvertimes_InvalidPeriod(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/overtimes?year=2025&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/overtimes?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOvertimes_DeleteMonthAndReconcile(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "An 20:00", Mode: "checkout"})

	rec := s.do(http.MethodDelete, "/api/overtimes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, rec))

	rec = s.do(http.MethodPost, "/api/admin/reconcile?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[ReconcileRunDTO](t, rec)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 1, run.Corrected)

	rec = s.do(http.MethodGet, "/api/members", nil)
	members := decode[[]MemberDTO](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, "0", members[0].WorkedHours)

	rec = s.do(http.MethodGet, "/api/admin/reconcile/runs", nil)
	assert.Len(t, decode[[]ReconcileRunDTO](t, rec), 1)
}

func TestOvertimes_Export(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/members", CreateMemberRequest{RealName: "An"})
	s.do(http.MethodPost, "/api/attendance/submit", SubmitAttendanceRequest{Text: "An 18:00", Mode: "checkout"})

	rec := s.do(http.MethodGet, "/api/overtimes/export?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "overtime_2025-03.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(report.SummarySheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

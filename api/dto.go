/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract. Hours travel as decimal
  strings so no precision is lost on the way to the client.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done by the attendance engine, not in DTOs. Handlers only
  reject bodies that fail to decode.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The model these map from
*/
package api

import (
	"time"

	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

// SubmitAttendanceRequest is one pasted batch of attendance lines.
type SubmitAttendanceRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`           // checkin | checkout
	Date string `json:"date,omitempty"` // YYYY-MM-DD, today when empty
}

// SubmitAttendanceResponse wraps the pass outcome. Error is set when a
// store failure stopped the pass part way.
type SubmitAttendanceResponse struct {
	*attendance.Outcome
	AbortedAtLine int    `json:"abortedAtLine,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AttendanceRecordDTO is one day of attendance for one member.
type AttendanceRecordDTO struct {
	ID            string `json:"id"`
	RealName      string `json:"realName"`
	Nickname      string `json:"nickname"`
	Date          string `json:"date"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	OvertimeHours string `json:"overtimeHours"`
}

// =============================================================================
// ROSTER
// =============================================================================

// MemberDTO represents a staff member in API responses.
type MemberDTO struct {
	ID               string    `json:"id"`
	RealName         string    `json:"realName"`
	Nickname         string    `json:"nickname"`
	Shift            string    `json:"shift"`
	ShiftStart       string    `json:"shiftStart"`
	LastCheckInDate  string    `json:"lastCheckInDate,omitempty"`
	LastCheckInTime  string    `json:"lastCheckInTime,omitempty"`
	LastCheckOutTime string    `json:"lastCheckOutTime,omitempty"`
	AccrualYear      int       `json:"accrualYear,omitempty"`
	AccrualMonth     int       `json:"accrualMonth,omitempty"`
	WorkedHours      string    `json:"workedHours"`
	MonthlyLimit     string    `json:"monthlyLimit"`
	Remaining        string    `json:"remaining"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CreateMemberRequest adds a member by hand. Only realName is required.
type CreateMemberRequest struct {
	RealName   string `json:"realName"`
	Nickname   string `json:"nickname,omitempty"`
	Shift      string `json:"shift,omitempty"`
	ShiftStart string `json:"shiftStart,omitempty"`
}

// SetLimitRequest sets the overtime cap of one month for the whole roster.
// A zero year or month means the current one.
type SetLimitRequest struct {
	Year  int     `json:"year,omitempty"`
	Month int     `json:"month,omitempty"`
	Hours float64 `json:"hours"`
}

// LimitDTO is the overtime cap of one month.
type LimitDTO struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Hours string `json:"hours"`
}

// =============================================================================
// STAGING
// =============================================================================

// EditCandidateRequest changes one staged candidate. Omitted fields stay.
type EditCandidateRequest struct {
	Nickname   *string `json:"nickname,omitempty"`
	Shift      *string `json:"shift,omitempty"`
	ShiftStart *string `json:"shiftStart,omitempty"`
	Selected   *bool   `json:"selected,omitempty"`
}

// =============================================================================
// SUMMARY / RECONCILIATION
// =============================================================================

// MemberSummaryDTO is one row of the monthly summary.
type MemberSummaryDTO struct {
	RealName  string `json:"realName"`
	Nickname  string `json:"nickname"`
	Shift     string `json:"shift,omitempty"`
	Days      int    `json:"days"`
	Done      string `json:"done"`
	Limit     string `json:"limit"`
	Remaining string `json:"remaining"`
	OnRoster  bool   `json:"onRoster"`
}

// MonthSummaryDTO is the monthly summary for the authenticated owner.
type MonthSummaryDTO struct {
	Year    int                `json:"year"`
	Month   int                `json:"month"`
	Members []MemberSummaryDTO `json:"members"`
	Total   string             `json:"total"`
}

// ReconcileRunDTO reports one accrual reconciliation.
type ReconcileRunDTO struct {
	ID          string    `json:"id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Status      string    `json:"status"`
	Checked     int       `json:"checked"`
	Corrected   int       `json:"corrected"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toMemberDTO(m ledger.StaffMember) MemberDTO {
	return MemberDTO{
		ID:               string(m.ID),
		RealName:         m.RealName,
		Nickname:         m.Nickname,
		Shift:            string(m.Shift),
		ShiftStart:       string(m.ShiftStart),
		LastCheckInDate:  m.LastCheckInDate,
		LastCheckInTime:  m.LastCheckInTime,
		LastCheckOutTime: m.LastCheckOutTime,
		AccrualYear:      m.Accrual.Year,
		AccrualMonth:     int(m.Accrual.Month),
		WorkedHours:      m.Accrual.WorkedHours.String(),
		MonthlyLimit:     m.Accrual.MonthlyLimit.String(),
		Remaining:        m.Accrual.Remaining.String(),
		CreatedAt:        m.CreatedAt,
	}
}

func toMemberDTOs(members []ledger.StaffMember) []MemberDTO {
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	return dtos
}

func toRecordDTOs(records []ledger.AttendanceRecord) []AttendanceRecordDTO {
	dtos := make([]AttendanceRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = AttendanceRecordDTO{
			ID:            r.ID,
			RealName:      r.RealName,
			Nickname:      r.Nickname,
			Date:          r.CurrentDate.String(),
			CheckIn:       r.CheckIn,
			CheckOut:      r.CheckOut,
			OvertimeHours: r.OvertimeHours.String(),
		}
	}
	return dtos
}

func toSummaryDTO(s *attendance.MonthSummary) MonthSummaryDTO {
	dto := MonthSummaryDTO{
		Year:    s.Year,
		Month:   int(s.Month),
		Members: make([]MemberSummaryDTO, len(s.Members)),
		Total:   s.Total.String(),
	}
	for i, m := range s.Members {
		dto.Members[i] = MemberSummaryDTO{
			RealName:  m.RealName,
			Nickname:  m.Nickname,
			Shift:     string(m.Shift),
			Days:      m.Days,
			Done:      m.Done.String(),
			Limit:     m.Limit.String(),
			Remaining: m.Remaining.String(),
			OnRoster:  m.OnRoster,
		}
	}
	return dto
}

func toRunDTO(r ledger.ReconcileRun) ReconcileRunDTO {
	return ReconcileRunDTO{
		ID:          r.ID,
		Year:        r.Year,
		Month:       r.Month,
		Status:      string(r.Status),
		Checked:     r.Checked,
		Corrected:   r.Corrected,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

func toRunDTOs(runs []ledger.ReconcileRun) []ReconcileRunDTO {
	dtos := make([]ReconcileRunDTO, len(runs))
	for i, r := range runs {
		dtos[i] = toRunDTO(r)
	}
	return dtos
}

func toCandidateEdit(req EditCandidateRequest) attendance.CandidateEdit {
	edit := attendance.CandidateEdit{Nickname: req.Nickname, Selected: req.Selected}
	if req.Shift != nil {
		s := ledger.Shift(*req.Shift)
		edit.Shift = &s
	}
	if req.ShiftStart != nil {
		s := ledger.ShiftStart(*req.ShiftStart)
		edit.ShiftStart = &s
	}
	return edit
}

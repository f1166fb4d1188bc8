package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"auditescrow/internal/domain"
	"auditescrow/internal/platform/middleware"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

// Amounts travel as decimal strings of base units; 10^18 base units per
// nominal token unit does not fit in a JSON number.
type scheduleResponse struct {
	ID             string `json:"id"`
	AuditID        string `json:"audit_id"`
	Beneficiary    string `json:"beneficiary"`
	TotalAllocated string `json:"total_allocated"`
	Withdrawn      string `json:"withdrawn"`
	Start          int64  `json:"start"`
	Cliff          uint64 `json:"cliff"`
	Duration       uint64 `json:"duration"`
	SlicePeriod    uint64 `json:"slice_period"`
	Token          string `json:"token"`
}

func (h *Handler) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	schedules, err := h.svc.VestingSchedulesForAudit(r.Context(), auditID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleResponse(s))
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) handleReleasable(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := scheduleIDParam(w, r)
	if !ok {
		return
	}
	releasable, err := h.svc.ComputeReleasable(r.Context(), scheduleID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"releasable": fixedpoint.String(releasable)})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := scheduleIDParam(w, r)
	if !ok {
		return
	}
	amount, err := h.svc.Withdraw(r.Context(), middleware.GetCaller(r.Context()), scheduleID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"amount": fixedpoint.String(amount)})
}

func scheduleIDParam(w http.ResponseWriter, r *http.Request) (ids.ScheduleID, bool) {
	scheduleID, err := ids.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeBadRequest(w, "invalid schedule id")
		return ids.ScheduleID{}, false
	}
	return scheduleID, true
}

func toScheduleResponse(s domain.VestingSchedule) scheduleResponse {
	return scheduleResponse{
		ID:             s.ID.String(),
		AuditID:        s.AuditID.String(),
		Beneficiary:    string(s.Beneficiary),
		TotalAllocated: fixedpoint.String(s.TotalAllocated),
		Withdrawn:      fixedpoint.String(s.Withdrawn),
		Start:          s.Start,
		Cliff:          s.Cliff,
		Duration:       s.Duration,
		SlicePeriod:    s.SlicePeriod,
		Token:          string(s.Token),
	}
}

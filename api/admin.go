/*
admin.go - HR actions, batch jobs, settings, balances and calendars

ENDPOINTS:
  HR actions:
    POST   /api/hr/actions/cancel-leave/{id}            Cancel, optional re-credit
    POST   /api/hr/actions/deduct-pl/{employee_id}      PL penalty (default 3 days)
    POST   /api/hr/actions/company-event-cancel         Cancel all leave on an event day
    GET    /api/hr/actions?employee_id=                 Scoped action log

  Jobs:
    POST   /api/accrual/run?month=YYYY-MM               Monthly accrual
    GET    /api/accrual/status?year=                    Per-employee wallet
    POST   /api/policy/year-close?year=                 Carry-forward and encashment

  Settings:
    GET    /api/policy/settings?year=                   Lazily created with defaults
    PUT    /api/policy/settings?year=                   Partial document (HR/ADMIN)

  Balances:
    GET    /api/balances/my?year=
    GET    /api/employees/{id}/balances?year=
    GET    /api/employees/{id}/transactions?year=

  Calendars (kind = holidays | restricted-holidays | events):
    GET    /api/calendar/{kind}?year=
    POST   /api/calendar/{kind}
*/
package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// defaultDeductDays is the PL penalty when the body names no amount.
const defaultDeductDays = 3

// =============================================================================
// HR ACTIONS
// =============================================================================

// CancelLeave cancels an APPROVED request. HR/ADMIN only.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req CancelLeaveRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	leave, err := h.Leaves.Cancel(r.Context(), actorFrom(r), id, req.Recredit, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// CompanyEventCancel moves every PENDING or APPROVED request covering the
// event day to CANCELLED_BY_COMPANY.
func (h *Handler) CompanyEventCancel(w http.ResponseWriter, r *http.Request) {
	var req CompanyEventCancelRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	leaves, err := h.Leaves.CancelForCompanyEvent(r.Context(), actorFrom(r), req.Date, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

func (h *Handler) DeductPL(w http.ResponseWriter, r *http.Request) {
	empID, err := employeeParam(r, "employee_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req DeductPLRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount := generic.DaysInt(defaultDeductDays)
	if req.Days != nil {
		amount = generic.Days(*req.Days)
	}
	bal, err := h.Leaves.DeductPL(r.Context(), actorFrom(r), empID, amount, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*bal))
}

func (h *Handler) ListHRActions(w http.ResponseWriter, r *http.Request) {
	empID, err := queryEmployee(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actions, err := h.Leaves.ListHRActions(r.Context(), actorFrom(r), empID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHRActionDTOs(actions))
}

// =============================================================================
// BATCH JOBS
// =============================================================================

// RunAccrual credits ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.Leaves.Clock.Today().MonthKey()
	}
	sum, err := h.Leaves.RunAccrual(r.Context(), actorFrom(r), month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) AccrualStatus(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.Leaves.AccrualStatus(r.Context(), actorFrom(r), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]AccrualStatusDTO, len(rows))
	for i, row := range rows {
		balances := make(map[string]BalanceDTO, len(row.Balances))
		for typ, b := range row.Balances {
			balances[string(typ)] = toBalanceDTO(b)
		}
		dtos[i] = AccrualStatusDTO{
			EmployeeID:       int64(row.EmployeeID),
			Name:             row.Name,
			LastAccrualMonth: row.LastAccrualMonth,
			Balances:         balances,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// YearClose closes ?year=, defaulting to the previous year.
func (h *Handler) YearClose(w http.ResponseWriter, r *http.Request) {
	year := h.Leaves.Clock.Today().Year() - 1
	if r.URL.Query().Get("year") != "" {
		var err error
		if year, err = h.yearParam(r); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	sum, err := h.Leaves.CloseYear(r.Context(), actorFrom(r), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toYearCloseDTO(sum))
}

// =============================================================================
// POLICY SETTINGS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	settings, err := h.Leaves.GetSettings(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromSettings(settings))
}

// UpdateSettings merges a partial document. Unknown keys are rejected.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, errors.Wrap(err, "read settings body"))
		return
	}
	doc, err := h.Factory.ParseSettings(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	settings, err := h.Leaves.UpdateSettings(r.Context(), actorFrom(r), year, doc.ApplyTo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromSettings(settings))
}

// =============================================================================
// BALANCES
// =============================================================================

func (h *Handler) MyBalances(w http.ResponseWriter, r *http.Request) {
	h.writeBalances(w, r, actorFrom(r).EmployeeID)
}

func (h *Handler) EmployeeBalances(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeBalances(w, r, id)
}

// writeBalances answers with the wallet rows and the comp-off view.
func (h *Handler) writeBalances(w http.ResponseWriter, r *http.Request, empID generic.EmployeeID) {
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor := actorFrom(r)
	balances, err := h.Leaves.Balances(r.Context(), actor, empID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ledger, err := h.CompOffs.Balance(r.Context(), actor, empID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	comp := toLedgerBalanceDTO(ledger)
	writeJSON(w, http.StatusOK, BalancesResponse{
		EmployeeID: int64(empID),
		Year:       year,
		Balances:   toBalanceDTOs(balances),
		CompOff:    &comp,
	})
}

func (h *Handler) EmployeeTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.Leaves.Transactions(r.Context(), actorFrom(r), id, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// CALENDARS
// =============================================================================

var calendarKinds = map[string]timeoff.CalendarKind{
	"holidays":            timeoff.KindHoliday,
	"restricted-holidays": timeoff.KindRestrictedHoliday,
	"events":              timeoff.KindCompanyEvent,
}

func calendarKind(r *http.Request) (timeoff.CalendarKind, error) {
	raw := chi.URLParam(r, "kind")
	kind, ok := calendarKinds[raw]
	if !ok {
		return "", generic.NotFound("no calendar %q", raw)
	}
	return kind, nil
}

func (h *Handler) ListCalendar(w http.ResponseWriter, r *http.Request) {
	kind, err := calendarKind(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.Leaves.ListCalendar(r.Context(), kind, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]CalendarEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toCalendarDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddCalendarEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := calendarKind(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req CalendarEntryRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.Leaves.AddCalendarEntry(r.Context(), actorFrom(r), timeoff.CalendarEntry{
		Kind: kind,
		Date: req.Date,
		Name: req.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCalendarDTO(*entry))
}

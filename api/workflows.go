/*
workflows.go - Comp-off earn requests and work-from-home

ENDPOINTS:
  Comp-off:
    POST   /api/compoff/request        Ask for credit for a worked off-day
    GET    /api/compoff/my             Own requests
    GET    /api/compoff/pending        Requests the caller may decide
    GET    /api/compoff/all            Every request (HR/ADMIN)
    GET    /api/compoff/balance        ?employee_id= (default: self)
    POST   /api/compoff/{id}/approve   Credit one day, expiring in 60 days
    POST   /api/compoff/{id}/reject

  WFH:
    POST   /api/wfh/apply              One day per request
    GET    /api/wfh/my
    GET    /api/wfh/pending
    GET    /api/wfh/balance?year=
    POST   /api/wfh/{id}/approve
    POST   /api/wfh/{id}/reject
*/
package api

import (
	"net/http"

	"github.com/warp/leave-engine/compoff"
)

// =============================================================================
// COMP-OFF
// =============================================================================

func (h *Handler) RequestCompOff(w http.ResponseWriter, r *http.Request) {
	var req CompOffRequestBody
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.CompOffs.Request(r.Context(), actorFrom(r), req.WorkedDate, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompOffDTO(out))
}

func (h *Handler) ApproveCompOff(w http.ResponseWriter, r *http.Request) {
	h.decideCompOff(w, r, true)
}

func (h *Handler) RejectCompOff(w http.ResponseWriter, r *http.Request) {
	h.decideCompOff(w, r, false)
}

func (h *Handler) decideCompOff(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req DecisionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var out *compoff.Request
	if approve {
		out, err = h.CompOffs.Approve(r.Context(), actorFrom(r), id, req.Remarks)
	} else {
		out, err = h.CompOffs.Reject(r.Context(), actorFrom(r), id, req.Remarks)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompOffDTO(out))
}

func (h *Handler) MyCompOffs(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.CompOffs.Mine(r.Context(), actorFrom(r))
	h.writeCompOffs(w, r, reqs, err)
}

func (h *Handler) PendingCompOffs(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.CompOffs.Pending(r.Context(), actorFrom(r))
	h.writeCompOffs(w, r, reqs, err)
}

func (h *Handler) AllCompOffs(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.CompOffs.All(r.Context(), actorFrom(r))
	h.writeCompOffs(w, r, reqs, err)
}

func (h *Handler) writeCompOffs(w http.ResponseWriter, r *http.Request, reqs []compoff.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompOffDTOs(reqs))
}

func (h *Handler) CompOffBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	empID, err := queryEmployee(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if empID == 0 {
		empID = actor.EmployeeID
	}
	bal, err := h.CompOffs.Balance(r.Context(), actor, empID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerBalanceDTO(bal))
}

// =============================================================================
// WORK FROM HOME
// =============================================================================

func (h *Handler) ApplyWFH(w http.ResponseWriter, r *http.Request) {
	var req WFHApplyRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Leaves.ApplyWFH(r.Context(), actorFrom(r), req.Date, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWFHDTO(out))
}

func (h *Handler) ApproveWFH(w http.ResponseWriter, r *http.Request) {
	h.decideWFH(w, r, true)
}

func (h *Handler) RejectWFH(w http.ResponseWriter, r *http.Request) {
	h.decideWFH(w, r, false)
}

func (h *Handler) decideWFH(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req DecisionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Leaves.DecideWFH(r.Context(), actorFrom(r), id, approve, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWFHDTO(out))
}

func (h *Handler) MyWFH(w http.ResponseWriter, r *http.Request) {
	h.listWFH(w, r, false)
}

func (h *Handler) PendingWFH(w http.ResponseWriter, r *http.Request) {
	h.listWFH(w, r, true)
}

func (h *Handler) listWFH(w http.ResponseWriter, r *http.Request, pendingQueue bool) {
	out, err := h.Leaves.ListWFH(r.Context(), actorFrom(r), pendingQueue)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWFHDTOs(out))
}

func (h *Handler) WFHBalance(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.Leaves.WFHBalance(r.Context(), actorFrom(r), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WFHBalanceDTO{
		Year:         b.Year,
		MaxDays:      b.MaxDays,
		ApprovedDays: b.ApprovedDays,
		PendingDays:  b.PendingDays,
		Remaining:    b.Remaining,
		DayValue:     days(b.DayValue),
		ValueUsed:    days(b.ValueUsed),
	})
}

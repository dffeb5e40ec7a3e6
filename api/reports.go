package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/reports"
)

// LeavesReport exports every request of ?year= as CSV or XLSX.
func (h *Handler) LeavesReport(w http.ResponseWriter, r *http.Request) {
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor := actorFrom(r)
	leaves, err := h.Leaves.LeavesForYear(r.Context(), actor, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	employees, err := h.Leaves.ListEmployees(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTable(w, r, format, fmt.Sprintf("leaves-%d", year), reports.LeavesTable(leaves, reports.NamesOf(employees)))
}

func (h *Handler) CompOffReport(w http.ResponseWriter, r *http.Request) {
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor := actorFrom(r)
	reqs, err := h.CompOffs.All(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	employees, err := h.Leaves.ListEmployees(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTable(w, r, format, "compoff", reports.CompOffTable(reqs, reports.NamesOf(employees)))
}

// StatementReport renders one employee's year as a PDF.
func (h *Handler) StatementReport(w http.ResponseWriter, r *http.Request) {
	empID, err := employeeParam(r, "employee_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.Leaves.Statement(r.Context(), actorFrom(r), empID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteStatementPDF(&buf, st); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", fmt.Sprintf("statement-%d-%d.pdf", empID, year), buf.Bytes())
}

// writeTable renders into memory first so a failure still gets a JSON error.
func (h *Handler) writeTable(w http.ResponseWriter, r *http.Request, format reports.Format, name string, t reports.Table) {
	var buf bytes.Buffer
	if err := reports.Write(&buf, format, t); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAttachment(w, format.ContentType(), name+"."+string(format), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

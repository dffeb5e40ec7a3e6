package timeoff

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ATTENDANCE - Punch-in / punch-out sessions per work date
// =============================================================================
//
// A work date is the calendar day of the punch-in instant in the service's
// Location. One employee holds at most one OPEN session per work date; a
// closed session does not block a later punch-in on the same day.

type SessionStatus string

const (
	SessionOpen       SessionStatus = "OPEN"
	SessionClosed     SessionStatus = "CLOSED"
	SessionAutoClosed SessionStatus = "AUTO_CLOSED"
)

// ParseSessionStatus normalises a status string.
func ParseSessionStatus(s string) (SessionStatus, bool) {
	st := SessionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case SessionOpen, SessionClosed, SessionAutoClosed:
		return st, true
	}
	return "", false
}

// Geo is a device-reported location.
type Geo struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
	Address  string  `json:"address,omitempty"`
}

func (g *Geo) validate() error {
	if g == nil {
		return nil
	}
	switch {
	case g.Lat < -90 || g.Lat > 90:
		return generic.Validation(generic.ReasonInvalidInput, "latitude %v is outside [-90, 90]", g.Lat)
	case g.Lng < -180 || g.Lng > 180:
		return generic.Validation(generic.ReasonInvalidInput, "longitude %v is outside [-180, 180]", g.Lng)
	case g.Accuracy <= 0:
		return generic.Validation(generic.ReasonInvalidInput, "accuracy must be positive")
	}
	return nil
}

// Punch is what a client sends with punch-in or punch-out.
type Punch struct {
	Source   string
	IP       string
	DeviceID string
	Geo      *Geo
	Remarks  string
}

func (p Punch) source() string {
	if s := strings.ToUpper(strings.TrimSpace(p.Source)); s != "" {
		return s
	}
	return "WEB"
}

type AttendanceSession struct {
	ID             int64
	EmployeeID     generic.EmployeeID
	WorkDate       generic.Date
	PunchInAt      *time.Time
	PunchOutAt     *time.Time
	Status         SessionStatus
	PunchInSource  string
	PunchOutSource string
	PunchInIP      string
	PunchOutIP     string
	PunchInDevice  string
	PunchOutDevice string
	PunchInGeo     *Geo
	PunchOutGeo    *Geo
	Remarks        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Complete reports whether both punches are recorded.
func (a *AttendanceSession) Complete() bool { return a.PunchInAt != nil && a.PunchOutAt != nil }

// Worked is the time between the punches, or 0 while the session is incomplete.
func (a *AttendanceSession) Worked() time.Duration {
	if !a.Complete() {
		return 0
	}
	return a.PunchOutAt.Sub(*a.PunchInAt)
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// WorkDate is today's work date in the service's location.
func (s *Service) WorkDate() generic.Date {
	return generic.DateIn(s.Clock.Now(), s.location())
}

// =============================================================================
// PUNCHES
// =============================================================================

// PunchIn opens a session for today's work date.
func (s *Service) PunchIn(ctx context.Context, actor auth.Actor, p Punch) (*AttendanceSession, error) {
	if err := p.Geo.validate(); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	workDate := generic.DateIn(now, s.location())
	var out *AttendanceSession
	err := s.Store.WithTx(ctx, func(tx Store) error {
		emp, err := tx.GetEmployee(ctx, actor.EmployeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", actor.EmployeeID)
		}
		if !emp.Active {
			return generic.Violation(generic.ReasonInactiveEmployee, "employee %d is inactive", emp.ID)
		}
		open, err := tx.ListSessions(ctx, AttendanceFilter{
			EmployeeIDs: []generic.EmployeeID{emp.ID},
			Statuses:    []SessionStatus{SessionOpen},
			From:        workDate,
			To:          workDate,
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return generic.Conflict(generic.ReasonAlreadyPunchedIn, "already punched in for %s", workDate).
				WithDetail("session_id", open[0].ID)
		}
		a := &AttendanceSession{
			EmployeeID:    emp.ID,
			WorkDate:      workDate,
			PunchInAt:     &now,
			Status:        SessionOpen,
			PunchInSource: p.source(),
			PunchInIP:     p.IP,
			PunchInDevice: p.DeviceID,
			PunchInGeo:    p.Geo,
			Remarks:       p.Remarks,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateSession(ctx, a); err != nil {
			return err
		}
		out = a
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditPunchIn, "attendance_session", a.ID, map[string]any{
			"work_date": workDate.String(), "source": a.PunchInSource,
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("employee_id", actor.EmployeeID).WithField("work_date", workDate.String()).Debug("punched in")
	return out, nil
}

// PunchOut closes the actor's latest OPEN session.
func (s *Service) PunchOut(ctx context.Context, actor auth.Actor, p Punch) (*AttendanceSession, error) {
	if err := p.Geo.validate(); err != nil {
		return nil, err
	}
	var out *AttendanceSession
	err := s.Store.WithTx(ctx, func(tx Store) error {
		open, err := tx.ListSessions(ctx, AttendanceFilter{
			EmployeeIDs: []generic.EmployeeID{actor.EmployeeID},
			Statuses:    []SessionStatus{SessionOpen},
		})
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return generic.Violation(generic.ReasonSessionNotOpen, "no active session")
		}
		a := latestSession(open)
		now := s.Clock.Now()
		a.PunchOutAt = &now
		a.Status = SessionClosed
		a.PunchOutSource = p.source()
		a.PunchOutIP = p.IP
		a.PunchOutDevice = p.DeviceID
		a.PunchOutGeo = p.Geo
		if p.Remarks != "" {
			a.Remarks = p.Remarks
		}
		a.UpdatedAt = now
		if err := tx.UpdateSession(ctx, a); err != nil {
			return err
		}
		out = a
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditPunchOut, "attendance_session", a.ID, map[string]any{
			"work_date": a.WorkDate.String(), "worked_minutes": int(a.Worked().Minutes()),
		})
	})
	return out, err
}

// TodaySession returns the actor's session for today's work date: the OPEN
// one if any, otherwise the latest. nil when the actor hasn't punched in.
func (s *Service) TodaySession(ctx context.Context, actor auth.Actor) (*AttendanceSession, error) {
	today := s.WorkDate()
	sessions, err := s.Store.ListSessions(ctx, AttendanceFilter{
		EmployeeIDs: []generic.EmployeeID{actor.EmployeeID},
		From:        today,
		To:          today,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	for i := range sessions {
		if sessions[i].Status == SessionOpen {
			return &sessions[i], nil
		}
	}
	return latestSession(sessions), nil
}

// ForceClose closes an OPEN session on the employee's behalf. HR/ADMIN only.
func (s *Service) ForceClose(ctx context.Context, actor auth.Actor, id int64, remarks string) (*AttendanceSession, error) {
	if err := auth.Authorize(actor, auth.ActionManageAttendance, auth.Resource{}); err != nil {
		return nil, err
	}
	var out *AttendanceSession
	err := s.Store.WithTx(ctx, func(tx Store) error {
		a, err := tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return generic.NotFound("attendance session %d", id)
		}
		if a.Status != SessionOpen {
			return generic.Violation(generic.ReasonSessionNotOpen, "attendance session %d is %s, not OPEN", a.ID, a.Status)
		}
		now := s.Clock.Now()
		a.PunchOutAt = &now
		a.PunchOutSource = "ADMIN"
		a.Status = SessionAutoClosed
		a.Remarks = remarks
		a.UpdatedAt = now
		if err := tx.UpdateSession(ctx, a); err != nil {
			return err
		}
		out = a
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditForceClose, "attendance_session", a.ID, map[string]any{
			"employee_id": int64(a.EmployeeID), "remarks": remarks,
		})
	})
	return out, err
}

// =============================================================================
// LISTING
// =============================================================================

// ListAttendance returns sessions the actor may see, newest work date first.
// HR sees everyone; a manager sees their reporting tree and the members of
// the departments assigned to them; everyone else sees only themselves.
func (s *Service) ListAttendance(ctx context.Context, actor auth.Actor, f AttendanceFilter) ([]AttendanceSession, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, generic.Validation(generic.ReasonInvalidDateRange, "from %s is after to %s", f.From, f.To)
	}
	if !actor.IsHR() {
		visible, err := s.attendanceScope(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(f.EmployeeIDs) == 0 {
			f.EmployeeIDs = visible
		} else {
			var keep []generic.EmployeeID
			for _, id := range f.EmployeeIDs {
				if containsID(visible, id) {
					keep = append(keep, id)
				}
			}
			if len(keep) == 0 {
				return []AttendanceSession{}, nil
			}
			f.EmployeeIDs = keep
		}
	}
	out, err := s.Store.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []AttendanceSession{}
	}
	return out, nil
}

func (s *Service) attendanceScope(ctx context.Context, actor auth.Actor) ([]generic.EmployeeID, error) {
	visible := []generic.EmployeeID{actor.EmployeeID}
	if actor.Role != auth.RoleManager {
		return visible, nil
	}
	all, err := s.Store.ListEmployees(ctx, false)
	if err != nil {
		return nil, err
	}
	members, err := departmentMembers(ctx, s.Store, all, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	for _, id := range append(Subordinates(all, actor.EmployeeID), members...) {
		if !containsID(visible, id) {
			visible = append(visible, id)
		}
	}
	return visible, nil
}

// CheckWorked fails unless emp has a complete session on date.
func CheckWorked(ctx context.Context, store AttendanceStore, emp generic.EmployeeID, date generic.Date) error {
	sessions, err := store.ListSessions(ctx, AttendanceFilter{
		EmployeeIDs: []generic.EmployeeID{emp},
		From:        date,
		To:          date,
	})
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return generic.Violation(generic.ReasonNoAttendance, "no attendance found for %s", date)
	}
	for i := range sessions {
		if sessions[i].Complete() {
			return nil
		}
	}
	return generic.Violation(generic.ReasonAttendanceOpen, "attendance incomplete for %s: punch-out missing", date)
}

// latestSession picks the session with the latest punch-in.
func latestSession(sessions []AttendanceSession) *AttendanceSession {
	sort.SliceStable(sessions, func(i, j int) bool {
		return punchIn(sessions[i]).After(punchIn(sessions[j]))
	})
	return &sessions[0]
}

func punchIn(a AttendanceSession) time.Time {
	if a.PunchInAt == nil {
		return a.CreatedAt
	}
	return *a.PunchInAt
}

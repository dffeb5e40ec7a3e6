/*
Package compoff implements compensatory-off credits.

PURPOSE:
  An employee who works on the weekly off or a holiday asks for one day of
  comp-off. Once approved, a CREDIT lands in the append-only comp-off
  ledger and expires 60 days after the worked date. Leave of type COMPOFF
  spends those credits (see timeoff/request.go).

LIFECYCLE:
  PENDING ──approve──▶ APPROVED   (CREDIT +1, expires worked_date + 60)
     │
     └────reject────▶ REJECTED   (ledger untouched)

RULES:
  - The worked date must be the weekly off or an active holiday.
  - The employee has a complete attendance session (punch-in and
    punch-out) on that date.
  - One request per employee per worked date.
  - HR or the direct reporting manager decides; never the requester.

BALANCE:
  available = unexpired credits - (debits - reversals), floored at 0.
  Expired credits are reported separately.

SEE ALSO:
  - generic/ledger.go: The ledger and its balance replay
  - service.go: Workflows
*/
package compoff

import (
	"context"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// CreditValidityDays is how long an earned credit can be spent.
const CreditValidityDays = 60

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request asks for credit for one worked day.
type Request struct {
	ID         int64
	EmployeeID generic.EmployeeID
	WorkedDate generic.Date
	Reason     string
	Status     Status
	DecidedBy  generic.EmployeeID
	DecidedAt  *time.Time
	Remarks    string
	CreatedAt  time.Time
}

type Filter struct {
	EmployeeIDs []generic.EmployeeID
	Statuses    []Status
}

// Store is what comp-off persists. Getters return (nil, nil) when missing.
type Store interface {
	timeoff.EmployeeStore
	timeoff.SettingsStore
	timeoff.CalendarStore
	timeoff.AttendanceStore
	generic.EntryStore
	generic.AuditLog

	CreateCompOff(ctx context.Context, r *Request) error
	UpdateCompOff(ctx context.Context, r *Request) error
	GetCompOff(ctx context.Context, id int64) (*Request, error)
	ListCompOff(ctx context.Context, f Filter) ([]Request, error)

	WithCompOffTx(ctx context.Context, fn func(Store) error) error
}

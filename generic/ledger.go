/*
ledger.go - Append-only ledger with expiring credits

PURPOSE:
  The Ledger is the immutable source of truth for credits that are earned
  one at a time and spent later (comp-off days). Every credit, debit and
  reversal is recorded here. Balance is always computed by replaying
  entries; there's no separate "balance" column that can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. IDEMPOTENT: Same idempotency key = same entry (no duplicates)

CORRECTIONS:
  A debit is never edited. Cancelling the leave that spent it appends a
  REVERSAL for the same amount. Both rows remain in the ledger.

BALANCE:
  available = unexpired credits - (debits - reversals), floored at zero
  A credit is unexpired while asOf <= ExpiresOn.

EXAMPLE FLOW:
  1. Worked Sunday 2025-03-02: CREDIT +1 (expires 2025-05-01)
  2. Takes a comp-off:         DEBIT  1
  3. Leave cancelled by HR:    REVERSAL 1

  Ledger: [+1, -1, +1] → available 1 until 2025-05-01, 0 after.

SEE ALSO:
  - compoff/service.go: Earn workflow that appends credits
  - timeoff/request.go: Approval and cancellation append debits/reversals
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRIES
// =============================================================================

type EntryKind string

const (
	EntryCredit   EntryKind = "CREDIT"
	EntryDebit    EntryKind = "DEBIT"
	EntryReversal EntryKind = "REVERSAL"
)

// Entry is a single immutable ledger row.
type Entry struct {
	ID             string
	EmployeeID     EmployeeID
	Kind           EntryKind
	Days           decimal.Decimal // always positive; Kind carries the sign
	WorkedDate     Date            // credits only
	ExpiresOn      Date            // credits only
	LeaveRequestID int64           // debits and reversals
	ReferenceID    string          // e.g. comp-off request id
	IdempotencyKey string
	CreatedAt      time.Time
}

// LedgerBalance is the derived view of an employee's entries at a date.
type LedgerBalance struct {
	Credits   decimal.Decimal `json:"credits"`
	Expired   decimal.Decimal `json:"expired"`
	Debits    decimal.Decimal `json:"debits"`
	Reversals decimal.Decimal `json:"reversals"`
	Available decimal.Decimal `json:"available"`
}

// Balance replays entries as of a date.
func Balance(entries []Entry, asOf Date) LedgerBalance {
	b := LedgerBalance{
		Credits:   decimal.Zero,
		Expired:   decimal.Zero,
		Debits:    decimal.Zero,
		Reversals: decimal.Zero,
		Available: decimal.Zero,
	}
	for _, e := range entries {
		switch e.Kind {
		case EntryCredit:
			if !e.ExpiresOn.IsZero() && asOf.After(e.ExpiresOn) {
				b.Expired = b.Expired.Add(e.Days)
				continue
			}
			b.Credits = b.Credits.Add(e.Days)
		case EntryDebit:
			b.Debits = b.Debits.Add(e.Days)
		case EntryReversal:
			b.Reversals = b.Reversals.Add(e.Days)
		}
	}
	b.Available = NonNegative(b.Credits.Sub(b.Debits.Sub(b.Reversals)))
	return b
}

// =============================================================================
// LEDGER - Append + derived balance over a store
// =============================================================================

// EntryStore persists ledger entries. There is no Update or Delete.
type EntryStore interface {
	// AppendEntry fails with ErrDuplicateIdempotencyKey if the key exists.
	AppendEntry(ctx context.Context, e Entry) error
	ListEntries(ctx context.Context, employeeID EmployeeID) ([]Entry, error)
}

type Ledger struct {
	Store EntryStore
}

func NewLedger(store EntryStore) *Ledger {
	return &Ledger{Store: store}
}

// Append validates and writes an entry.
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	if !e.Days.IsPositive() {
		return Validation(ReasonInvalidInput, "ledger entry days must be positive, got %s", e.Days)
	}
	if e.Kind == EntryCredit && e.ExpiresOn.IsZero() {
		return Validation(ReasonInvalidInput, "credit entry requires an expiry date")
	}
	return l.Store.AppendEntry(ctx, e)
}

// BalanceAt computes the derived balance for an employee.
func (l *Ledger) BalanceAt(ctx context.Context, employeeID EmployeeID, asOf Date) (LedgerBalance, error) {
	entries, err := l.Store.ListEntries(ctx, employeeID)
	if err != nil {
		return LedgerBalance{}, err
	}
	return Balance(entries, asOf), nil
}

// DebitedFor sums debits minus reversals recorded against one leave request.
func (l *Ledger) DebitedFor(ctx context.Context, employeeID EmployeeID, leaveRequestID int64) (decimal.Decimal, error) {
	entries, err := l.Store.ListEntries(ctx, employeeID)
	if err != nil {
		return decimal.Zero, err
	}
	net := decimal.Zero
	for _, e := range entries {
		if e.LeaveRequestID != leaveRequestID {
			continue
		}
		switch e.Kind {
		case EntryDebit:
			net = net.Add(e.Days)
		case EntryReversal:
			net = net.Sub(e.Days)
		}
	}
	return net, nil
}

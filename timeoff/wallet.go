package timeoff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// BALANCE ARITHMETIC
// =============================================================================

// NewBalance returns an all-zero row.
func NewBalance(emp generic.EmployeeID, year int, t LeaveType) *Balance {
	return &Balance{
		EmployeeID:       emp,
		Year:             year,
		LeaveType:        t,
		Opening:          decimal.Zero,
		Accrued:          decimal.Zero,
		Used:             decimal.Zero,
		Remaining:        decimal.Zero,
		CarryForward:     decimal.Zero,
		RHUsed:           decimal.Zero,
		PLCarriedForward: decimal.Zero,
		PLEncashDays:     decimal.Zero,
	}
}

// Recompute restores remaining = opening + accrued + carry_forward - used.
func (b *Balance) Recompute() {
	b.Remaining = b.Opening.Add(b.Accrued).Add(b.CarryForward).Sub(b.Used)
}

// Available is the remaining balance floored at zero.
func (b *Balance) Available() decimal.Decimal { return generic.NonNegative(b.Remaining) }

// =============================================================================
// WALLET - Rows + transaction trail, always inside a store transaction
// =============================================================================

// Wallet holds an employee's four buckets for one year.
type Wallet map[LeaveType]*Balance

// EnsureWallet loads the CL/PL/SL/RH rows for a year, creating missing
// ones with zeros.
func EnsureWallet(ctx context.Context, store BalanceStore, emp generic.EmployeeID, year int) (Wallet, error) {
	w := make(Wallet, len(WalletTypes))
	for _, t := range WalletTypes {
		b, err := store.GetBalance(ctx, emp, year, t)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s balance", t)
		}
		if b == nil {
			b = NewBalance(emp, year, t)
			if err := store.SaveBalance(ctx, b); err != nil {
				return nil, errors.Wrapf(err, "create %s balance", t)
			}
		}
		w[t] = b
	}
	return w, nil
}

// walletTx is the input to recordTx.
type walletTx struct {
	Balance   *Balance
	Delta     decimal.Decimal
	Action    WalletAction
	LeaveID   int64
	Actor     generic.EmployeeID
	Remarks   string
	IdemKey   string
	LeaveType LeaveType // defaults to the balance's type
}

// recordTx saves the balance row and appends its trail entry.
func recordTx(ctx context.Context, store BalanceStore, clock generic.Clock, in walletTx) error {
	in.Balance.Recompute()
	if err := store.SaveBalance(ctx, in.Balance); err != nil {
		return errors.Wrapf(err, "save %s balance", in.Balance.LeaveType)
	}
	lt := in.LeaveType
	if lt == "" {
		lt = in.Balance.LeaveType
	}
	tx := Transaction{
		ID:             uuid.NewString(),
		EmployeeID:     in.Balance.EmployeeID,
		LeaveRequestID: in.LeaveID,
		Year:           in.Balance.Year,
		LeaveType:      lt,
		Delta:          in.Delta,
		Action:         in.Action,
		Remarks:        in.Remarks,
		ActorID:        in.Actor,
		IdempotencyKey: in.IdemKey,
		CreatedAt:      clock.Now(),
	}
	return store.AppendTransaction(ctx, tx)
}

func idemKey(parts ...any) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += ":"
		}
		s += fmt.Sprint(p)
	}
	return s
}

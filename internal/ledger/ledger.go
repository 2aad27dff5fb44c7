// Package ledger implements credit accounting on top of the identity
// provider's user metadata. Balances never go negative through this package,
// and a payment transaction id credits a balance at most once.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// UserStore is the slice of the identity-provider client the ledger needs.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateMetadata(ctx context.Context, userID string, public, private map[string]any) error
}

// Ledger reads and writes per-user credit balances.
//
// The backing store exposes no compare-and-swap primitive for metadata, so
// the read-modify-write here is best-effort atomic: two near-simultaneous
// requests from the same user can race and one update can be lost. The
// per-request write is still conditioned on the value just read.
type Ledger struct {
	users  UserStore
	logger *infra.Logger
}

// New constructs a Ledger over the given user store.
func New(users UserStore, logger *infra.Logger) *Ledger {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Ledger{users: users, logger: logger}
}

// Balance returns the user's effective credit balance, applying the
// first-run grant when the attribute has never been written.
func (l *Ledger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance(), nil
}

// Debit subtracts amount from the user's balance and returns the remainder.
// It must only be called after the corresponding upstream job was
// successfully submitted, so a failed submission never costs credits. The
// write is conditioned on the balance read in the same call.
func (l *Ledger) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	user, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := user.Balance()
	if balance.LessThan(amount) {
		return balance, fmt.Errorf("balance %s below cost %s: %w", balance, amount, domain.ErrInsufficientCredits)
	}
	remaining := balance.Sub(amount)
	if err := l.users.UpdateMetadata(ctx, userID, map[string]any{
		"credits": json.Number(remaining.String()),
	}, nil); err != nil {
		return balance, err
	}
	l.logger.Info().
		Str("user_id", userID).
		Str("debited", amount.String()).
		Str("remaining", remaining.String()).
		Msg("ledger: debit")
	return remaining, nil
}

// Credit adds amount to the user's balance unless txID was already
// reconciled, in which case it reports success with nothing added. The new
// balance and the extended processed-payment set are written in one metadata
// update so concurrent webhook retries cannot double-credit.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal, txID string) (added decimal.Decimal, balance decimal.Decimal, alreadyProcessed bool, err error) {
	user, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	current := user.Balance()
	if txID != "" && user.PaymentProcessed(txID) {
		l.logger.Warn().
			Str("user_id", userID).
			Str("tx_id", txID).
			Msg("ledger: transaction already processed")
		return decimal.Zero, current, true, nil
	}
	next := current.Add(amount)
	public := map[string]any{"credits": json.Number(next.String())}
	var private map[string]any
	if txID != "" {
		private = map[string]any{
			"processedPayments": append(append([]string{}, user.ProcessedPayments...), txID),
		}
	}
	if err := l.users.UpdateMetadata(ctx, userID, public, private); err != nil {
		return decimal.Zero, current, false, err
	}
	l.logger.Info().
		Str("user_id", userID).
		Str("credited", amount.String()).
		Str("balance", next.String()).
		Str("tx_id", txID).
		Msg("ledger: credit")
	return amount, next, false, nil
}

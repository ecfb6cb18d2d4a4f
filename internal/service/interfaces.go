package service

import (
	"context"

	"railboard/internal/domain"
)

// TokenSource owns the ticketing backend token for one controller.
// Implementations must serialize login so concurrent callers observe a
// single in-flight attempt.
type TokenSource interface {
	// Token returns the held token, logging in first if none is held.
	Token(ctx context.Context) (string, error)

	// Held reports whether a token is currently held.
	Held() bool

	// Invalidate clears the held token.
	Invalidate()
}

// TransactionFetcher retrieves raw gate-exit rows for a date range.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, start, end domain.Date, token string) ([]domain.TransactionRecord, int, error)
}

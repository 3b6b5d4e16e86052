package plan

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxRetries = 3
	baseDelay  = 500 * time.Millisecond
	maxJitter  = 250 * time.Millisecond
)

// SQLSTATEs that will not change on retry.
var fatalCodes = map[string]bool{
	"28P01": true, // invalid_password
	"28000": true, // invalid_authorization_specification
	"3D000": true, // invalid_catalog_name
}

var connectFunc = pgx.Connect

func connectWithRetry(ctx context.Context, connStr string) (*pgx.Conn, error) {
	var lastErr error

	for attempt := range maxRetries {
		conn, err := connectFunc(ctx, connStr)
		if err == nil {
			if attempt > 0 {
				slog.Info("connected after retry", "attempt", attempt+1)
			}
			return conn, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == maxRetries-1 {
			break
		}

		delay := backoffDelay(attempt)
		slog.Warn("connection failed, retrying",
			"attempt", attempt+1,
			"error", err,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && fatalCodes[pgErr.Code] {
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "no pg_hba.conf entry") ||
		strings.Contains(msg, "cannot parse") {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "i/o timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

func backoffDelay(attempt int) time.Duration {
	delay := baseDelay << uint(attempt)
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))
	return delay + jitter
}

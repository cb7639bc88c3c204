package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ExpireStaleRequests flips every SENT request past its expiry to TIMEOUT.
// Safe to run concurrently with callback processing: a callback that already
// completed the request is untouched, and a late callback for a TIMEOUT
// request still resolves it through ProcessCallback.
func (s *Service) ExpireStaleRequests(ctx context.Context) (int64, error) {
	n, err := expireStale(ctx, s.db, s.clock().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale requests: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired stale payment requests", slog.Int64("count", n))
	}
	return n, nil
}

// PollStaleRequests re-queries the gateway for requests stuck in SENT
// longer than maxAge and resolves them through the normal callback path,
// closing the gap when a webhook was lost. Returns how many were resolved.
func (s *Service) PollStaleRequests(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	if maxAge <= 0 {
		maxAge = s.cfg.PollMaxAge
	}
	if limit <= 0 {
		limit = s.cfg.PollLimit
	}
	cutoff := s.clock().UTC().Add(-maxAge)

	stale, err := listStaleSent(ctx, s.db, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale requests: %w", err)
	}

	resolved := 0
	for i := range stale {
		req := &stale[i]
		res, err := s.gateway.QueryStatus(ctx, req.CheckoutID)
		if err != nil {
			// Auth failures block every query; transient ones just skip
			// this request until the next sweep.
			if errors.Is(err, ctx.Err()) {
				return resolved, err
			}
			s.log.WarnContext(ctx, "status query failed",
				slog.String("request_id", req.ID), slog.Any("error", err))
			continue
		}
		if _, err := s.ProcessCallback(ctx, res); err != nil {
			s.log.WarnContext(ctx, "stale request resolution failed",
				slog.String("request_id", req.ID), slog.Any("error", err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

// RefreshStatus queries the gateway for one request and resolves it through
// the callback path. Used by support tooling when a rider reports a payment
// the system never confirmed.
func (s *Service) RefreshStatus(ctx context.Context, requestID string) (*CallbackOutcome, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CheckoutID == "" {
		return nil, fmt.Errorf("request %s was never sent to the gateway", requestID)
	}
	if req.Status == StatusCompleted {
		return &CallbackOutcome{RequestID: req.ID, Status: req.Status, TransactionID: req.TransactionID}, nil
	}

	res, err := s.gateway.QueryStatus(ctx, req.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("query status: %w", err)
	}
	return s.ProcessCallback(ctx, res)
}

package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"bodacover-platform/internal/config"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/payment"
)

// Batch creation runs automatically so remittances never depend on an
// operator remembering the schedule. Approval and processing stay manual.
const (
	scheduleExpireSweep  = "* * * * *"   // every minute
	scheduleStalePoll    = "*/5 * * * *" // every 5 minutes
	scheduleDay1Batch    = "0 18 * * *"  // daily at 18:00
	scheduleMonthlyBatch = "0 6 1 * *"   // 06:00 on the 1st
)

func startJobs(ctx context.Context, payments *payment.Service, escrowSvc *escrow.Service, cfg config.PaymentsConfig, log *slog.Logger) *cron.Cron {
	c := cron.New()

	mustAdd(c, log, scheduleExpireSweep, "expire_stale_requests", func() {
		if _, err := payments.ExpireStaleRequests(ctx); err != nil {
			log.Error("expire sweep failed", "err", err)
		}
	})

	mustAdd(c, log, scheduleStalePoll, "poll_stale_requests", func() {
		if _, err := payments.PollStaleRequests(ctx, cfg.PollMaxAge, cfg.PollLimit); err != nil {
			log.Error("stale request poll failed", "err", err)
		}
	})

	mustAdd(c, log, scheduleDay1Batch, "day1_remittance_batch", func() {
		res, err := escrowSvc.CreateDay1Batch(ctx)
		if err != nil {
			log.Error("day 1 batch creation failed", "err", err)
			return
		}
		if res.Batch != nil {
			log.Info("day 1 batch created", "batch_id", res.Batch.ID, "records", res.RecordCount, "total_premium_minor", res.TotalPremiumMinor)
		}
	})

	mustAdd(c, log, scheduleMonthlyBatch, "monthly_remittance_batch", func() {
		res, err := escrowSvc.CreateMonthlyBulkBatch(ctx)
		if err != nil {
			log.Error("monthly batch creation failed", "err", err)
			return
		}
		if res.Batch != nil {
			log.Info("monthly batch created", "batch_id", res.Batch.ID, "records", res.RecordCount, "total_premium_minor", res.TotalPremiumMinor)
		}
	})

	c.Start()
	return c
}

func mustAdd(c *cron.Cron, log *slog.Logger, spec, name string, fn func()) {
	if _, err := c.AddFunc(spec, fn); err != nil {
		log.Error("cron registration failed", "job", name, "err", err)
	}
}

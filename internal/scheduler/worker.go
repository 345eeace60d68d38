package scheduler

import (
	"context"
	"fmt"

	"callops_backend/platform/config"
	"callops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CampaignRefresher pulls the final campaign status from the voice platform.
type CampaignRefresher interface {
	RefreshCampaignStatus(ctx context.Context, campaignID uuid.UUID) error
}

// OrphanReleaser releases a provisioned number that never made it into the
// local store.
type OrphanReleaser interface {
	ReleaseOrphan(ctx context.Context, orphanID uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	campaigns CampaignRefresher
	phones    OrphanReleaser
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, campaigns CampaignRefresher, phones OrphanReleaser, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		campaigns: campaigns,
		phones:    phones,
		log:       log,
	}

	mux.HandleFunc(TaskCampaignRefresh, w.handleCampaignRefresh)
	mux.HandleFunc(TaskPhoneOrphanRelease, w.handlePhoneOrphanRelease)

	return w, nil
}

func (w *Worker) handleCampaignRefresh(ctx context.Context, task *asynq.Task) error {
	if w.campaigns == nil {
		return nil
	}

	payload, err := ParseCampaignRefreshPayload(task)
	if err != nil {
		return err
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return err
	}

	if err := w.campaigns.RefreshCampaignStatus(ctx, campaignID); err != nil {
		w.log.Error("campaign refresh failed", "campaign_id", campaignID, "error", err)
		return err
	}

	return nil
}

func (w *Worker) handlePhoneOrphanRelease(ctx context.Context, task *asynq.Task) error {
	if w.phones == nil {
		return nil
	}

	payload, err := ParsePhoneOrphanReleasePayload(task)
	if err != nil {
		return err
	}

	orphanID, err := uuid.Parse(payload.OrphanID)
	if err != nil {
		return err
	}

	if err := w.phones.ReleaseOrphan(ctx, orphanID); err != nil {
		w.log.Error("orphan release failed", "orphan_id", orphanID, "error", err)
		return err
	}

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

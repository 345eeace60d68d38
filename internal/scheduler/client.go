package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"callops_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// orphanReleaseMaxRetry bounds how often a stuck provider release is retried
// before it is left for manual cleanup (the orphan row stays either way).
const orphanReleaseMaxRetry = 10

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleCampaignRefresh enqueues a status pull for when the campaign's
// schedule window has closed.
func (c *Client) ScheduleCampaignRefresh(ctx context.Context, campaignID uuid.UUID, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCampaignRefreshTask(CampaignRefreshPayload{CampaignID: campaignID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.Queue(c.queue))
	return err
}

// EnqueueOrphanRelease queues the release of a provider number left behind by
// a failed import. Retried with backoff until the provider accepts it.
func (c *Client) EnqueueOrphanRelease(ctx context.Context, orphanID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPhoneOrphanReleaseTask(PhoneOrphanReleasePayload{OrphanID: orphanID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(orphanReleaseMaxRetry),
		asynq.ProcessIn(30*time.Second),
	)
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/stream"
)

const defaultPollInterval = 1500 * time.Millisecond

// PollerOptions configures a status poller.
type PollerOptions struct {
	BaseURL    string
	Interval   time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Poller drives a job to completion by periodically fetching its status.
// Requests are strictly serial: the next one is scheduled only after the
// prior response has been fully processed, so updates always arrive in
// request order.
type Poller struct {
	baseURL  string
	interval time.Duration
	client   *http.Client
	logger   infra.Logger
}

// NewPoller constructs a poller with the fixed reference cadence by default.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := discardLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Poller{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		interval: interval,
		client:   client,
		logger:   logger,
	}
}

// Run polls the task endpoint until the machine leaves the running state or
// the attempt is cancelled. A transport-level failure is terminal: it drives
// the machine to failed and stops scheduling.
func (p *Poller) Run(ctx context.Context, m *job.Machine, jobID string) error {
	for {
		if err := p.pollOnce(ctx, m, jobID); err != nil {
			return err
		}
		if m.State() != job.StateRunning {
			return nil
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, m *job.Machine, jobID string) error {
	url := fmt.Sprintf("%s/api/tasks/%s", p.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		m.Fail(job.CategoryNetworkFailed, err.Error())
		return fmt.Errorf("runner: build poll request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation aborted the fetch; the attempt already put
			// the machine back to idle.
			return ctx.Err()
		}
		m.Fail(job.CategoryNetworkFailed, err.Error())
		return fmt.Errorf("runner: poll request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.Fail(job.CategoryNetworkFailed, err.Error())
		return fmt.Errorf("runner: read poll response: %w", err)
	}
	if resp.StatusCode >= 300 {
		detail := fmt.Sprintf("status %d", resp.StatusCode)
		m.Fail(job.CategoryNetworkFailed, detail)
		return fmt.Errorf("runner: poll %s", detail)
	}

	if ev, ok := stream.ParseLine(string(body)); ok {
		m.Apply(ev)
	} else {
		p.logger.Debug().Str("job_id", jobID).Msg("runner: unparseable poll body dropped")
	}
	return nil
}

package video

import (
	"context"
	"errors"
	"strings"
	"time"

	"xstream/internal/domain"
	"xstream/internal/infra"
	"xstream/internal/providers/genai"
)

// State is the lifecycle position of a video job.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateResolved  State = "resolved"
	StateFailed    State = "failed"
)

// DefaultInterval is the wait between status checks.
const DefaultInterval = 10 * time.Second

// Clock abstracts waiting so tests can drive the poll loop without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update is delivered to the observer on every state change and poll.
type Update struct {
	State State
	Job   domain.VideoJob
	Polls int
	Err   error
}

// Options tunes a Poller.
type Options struct {
	Interval time.Duration
	// Timeout bounds the whole job. Zero waits until the context ends.
	Timeout  time.Duration
	Clock    Clock
	Observer func(Update)
	Logger   *infra.Logger
}

// Poller submits a video job and waits for it to finish.
type Poller struct {
	backend  genai.VideoBackend
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	observer func(Update)
	logger   *infra.Logger
}

func NewPoller(backend genai.VideoBackend, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	return &Poller{
		backend:  backend,
		interval: interval,
		timeout:  timeout,
		clock:    clock,
		observer: opts.Observer,
		logger:   infra.LoggerOrDiscard(opts.Logger),
	}
}

// ErrTimeout is reported when a job outlives the configured timeout.
var ErrTimeout = domain.NewError(domain.ErrBackend, "Video generation is taking too long. Please try again later.")

// Run submits req and polls until the job resolves or fails. The job enters
// Polling right after submission, even when the backend already reports it
// done. The returned job carries the download reference.
func (p *Poller) Run(ctx context.Context, req genai.VideoRequest) (domain.VideoJob, error) {
	start := p.clock.Now()
	job, err := p.backend.SubmitVideo(ctx, req)
	if err != nil {
		return p.fail(domain.VideoJob{}, 0, err)
	}
	p.notify(Update{State: StateSubmitted, Job: job})
	p.logger.Info().Str("operation", job.Name).Msg("video job submitted")
	p.notify(Update{State: StatePolling, Job: job})

	polls := 0
	for job.Status != domain.VideoJobDone {
		if p.timeout > 0 && p.clock.Now().Sub(start) >= p.timeout {
			return p.fail(job, polls, ErrTimeout)
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return p.fail(job, polls, err)
		}
		polls++
		job, err = p.backend.PollVideo(ctx, job, req.Credential)
		if err != nil {
			return p.fail(job, polls, err)
		}
		p.notify(Update{State: StatePolling, Job: job, Polls: polls})
		p.logger.Debug().Str("operation", job.Name).Int("polls", polls).Str("status", string(job.Status)).Msg("video job polled")
	}

	p.notify(Update{State: StateResolved, Job: job, Polls: polls})
	p.logger.Info().Str("operation", job.Name).Int("polls", polls).Msg("video job resolved")
	return job, nil
}

// Download fetches a resolved job's video. A failure body carrying the
// credential signature becomes domain.ErrCredentialRejected.
func (p *Poller) Download(ctx context.Context, job domain.VideoJob, credential string) (*genai.VideoDownload, error) {
	if job.Status != domain.VideoJobDone || job.DownloadRef == "" {
		return nil, domain.NewError(domain.ErrInvalidStage, "video job %q has not resolved", job.Name)
	}
	dl, err := p.backend.DownloadVideo(ctx, job.DownloadRef, credential)
	if err != nil {
		return nil, reclassify(err)
	}
	return dl, nil
}

func reclassify(err error) error {
	if errors.Is(err, domain.ErrCredentialRejected) {
		return err
	}
	if strings.Contains(err.Error(), domain.CredentialErrorSignature) {
		return domain.WrapError(domain.ErrCredentialRejected, err, "")
	}
	return err
}

func (p *Poller) fail(job domain.VideoJob, polls int, err error) (domain.VideoJob, error) {
	err = reclassify(err)
	p.notify(Update{State: StateFailed, Job: job, Polls: polls, Err: err})
	p.logger.Warn().Err(err).Str("operation", job.Name).Int("polls", polls).Msg("video job failed")
	return domain.VideoJob{}, err
}

func (p *Poller) notify(u Update) {
	if p.observer != nil {
		p.observer(u)
	}
}

package email

import (
	"context"
	"os"
	"sync"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/in"
	"smartmail_server/core/port/out"

	"github.com/rs/zerolog"
)

// PollerState is the lifecycle of the background poller.
type PollerState int32

const (
	PollerIdle PollerState = iota
	PollerActive
	PollerStopped
)

func (s PollerState) String() string {
	switch s {
	case PollerIdle:
		return "idle"
	case PollerActive:
		return "active"
	case PollerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Poller periodically compares the newest mailbox message id against the
// last one seen and enriches the message when it changes. It starts idle
// and begins ticking once armed with a session.
type Poller struct {
	provider out.EmailProviderPort
	service  in.EmailService
	state    out.PollStateStore
	interval time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	lifecycle PollerState
	session   *domain.Session
	lastID    string
	lastCheck time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPoller creates an idle poller. state may be nil, in which case the
// checkpoint survives only for the process lifetime.
func NewPoller(provider out.EmailProviderPort, service in.EmailService, state out.PollStateStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		provider: provider,
		service:  service,
		state:    state,
		interval: interval,
		logger:   zerolog.New(os.Stdout).With().Timestamp().Str("component", "poller").Logger(),
	}
}

// State reports the current lifecycle state.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifecycle
}

// LastChecked reports the last seen message id and check time.
func (p *Poller) LastChecked() (string, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastID, p.lastCheck
}

// Arm supplies the session the poller acts on behalf of and starts the
// loop on the first call. Subsequent calls refresh the session, which
// keeps the token current across logins.
func (p *Poller) Arm(session domain.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = &session
	if p.lifecycle != PollerIdle {
		return
	}
	p.startLocked()
}

// Start begins ticking without waiting for Arm. Checks before the first
// Arm are skipped.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifecycle != PollerIdle {
		return
	}
	p.startLocked()
}

func (p *Poller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.lifecycle = PollerActive

	if p.state != nil {
		if id, at, err := p.state.LoadCheckpoint(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("failed to load poll checkpoint")
		} else if id != "" {
			p.lastID = id
			p.lastCheck = at
		}
	}

	p.logger.Info().Dur("interval", p.interval).Msg("poller started")
	go p.run(ctx)
}

// Stop halts the loop and waits for the in-flight check to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.lifecycle != PollerActive {
		p.mu.Unlock()
		return
	}
	p.lifecycle = PollerStopped
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info().Msg("poller stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.checkOnce(ctx)
		}
	}
}

// checkOnce performs one poll cycle. Failures are logged and the cycle
// is abandoned; the next tick retries.
func (p *Poller) checkOnce(ctx context.Context) {
	p.mu.Lock()
	session := p.session
	lastID := p.lastID
	p.mu.Unlock()

	if session == nil {
		return
	}

	latestID, err := p.provider.GetLatestMessageID(ctx, session.OAuthToken())
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to fetch latest message id")
		return
	}

	now := time.Now().UTC()

	if latestID != "" && latestID != lastID {
		p.logger.Info().Str("message_id", latestID).Msg("new message detected")
		if _, err := p.service.Enrich(ctx, *session, latestID); err != nil {
			p.logger.Error().Err(err).Str("message_id", latestID).Msg("failed to enrich new message")
			return
		}
	}

	p.mu.Lock()
	p.lastID = latestID
	p.lastCheck = now
	p.mu.Unlock()

	if p.state != nil {
		if err := p.state.SaveCheckpoint(ctx, latestID, now); err != nil {
			p.logger.Warn().Err(err).Msg("failed to save poll checkpoint")
		}
	}
}

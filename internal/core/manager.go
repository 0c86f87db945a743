package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"tagarr/internal/clients/arr"
	"tagarr/internal/clients/notifications"
	"tagarr/internal/config"
	"tagarr/internal/database/models"
	"tagarr/internal/results"
	"tagarr/internal/utils"
)

type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateReporting  State = "reporting"
	StateSleeping   State = "sleeping"
	StateBackoff    State = "backoff"
)

// Observer is told about every finished run, successful or not.
type Observer interface {
	RunFinished(run *models.Run)
}

// Status is a point-in-time view of the poll loop.
type Status struct {
	State     State       `json:"state"`
	Kind      string      `json:"kind"`
	Threshold int         `json:"threshold"`
	NextRun   *time.Time  `json:"next_run,omitempty"`
	LastRun   *models.Run `json:"last_run,omitempty"`
}

// settings is the part of the configuration that may change between cycles.
type settings struct {
	opts          Options
	testMode      bool
	testLimit     int
	interval      time.Duration
	retry         time.Duration
	cronSpec      string
	keepRuns      int
	onlyOnChanges bool
	format        string
	directory     string
	keep          int
	minFreeMB     uint64
}

func settingsFrom(cfg *config.Config) settings {
	return settings{
		opts: Options{
			Threshold:     cfg.Tagging.ScoreThreshold,
			MotongEnabled: cfg.Tagging.MotongEnabled,
			MotongGroup:   cfg.Tagging.MotongGroup,
			K4Enabled:     cfg.Tagging.K4Enabled,
		},
		testMode:      cfg.Schedule.TestMode,
		testLimit:     cfg.Schedule.TestLimit,
		interval:      cfg.Interval(),
		retry:         cfg.RetryDelay(),
		cronSpec:      strings.TrimSpace(cfg.Schedule.Cron),
		keepRuns:      cfg.Database.KeepRuns,
		onlyOnChanges: cfg.Notifications.OnlyOnChanges,
		format:        cfg.Results.Format,
		directory:     cfg.Results.Directory,
		keep:          cfg.Results.Keep,
		minFreeMB:     cfg.Results.MinFreeMB,
	}
}

// Manager drives the poll-process-report loop. Cycles run one at a time on
// the goroutine that called Run; everything else only wakes that goroutine.
type Manager struct {
	api       MediaAPI
	noun      string
	recorder  *results.Recorder
	runs      *models.RunRepository
	notifiers []notifications.Notifier
	observers []Observer
	logger    *utils.Logger

	settings settings
	trigger  chan struct{}

	scheduler *cron.Cron
	cronSpec  string

	mu      sync.Mutex
	pending *settings
	state   State
	nextRun *time.Time
	lastRun *models.Run

	// wait blocks for d, until wake fires, or until ctx is done. A zero d
	// waits for wake alone.
	wait func(ctx context.Context, d time.Duration, wake <-chan struct{}) error
	now  func() time.Time
}

// NewManager builds a manager for one Radarr or Sonarr instance. runs may be
// nil when run history is disabled.
func NewManager(cfg *config.Config, api MediaAPI, noun string, recorder *results.Recorder, runs *models.RunRepository, logger *utils.Logger) *Manager {
	return &Manager{
		api:      api,
		noun:     noun,
		recorder: recorder,
		runs:     runs,
		logger:   logger,
		settings: settingsFrom(cfg),
		trigger:  make(chan struct{}, 1),
		state:    StateIdle,
		wait:     sleepContext,
		now:      time.Now,
	}
}

func (m *Manager) AddNotifier(n notifications.Notifier) {
	m.mu.Lock()
	m.notifiers = append(m.notifiers, n)
	m.mu.Unlock()
}

// SetNotifiers replaces every notifier. Cycles already running keep the
// ones they started with.
func (m *Manager) SetNotifiers(ns ...notifications.Notifier) {
	m.mu.Lock()
	m.notifiers = append([]notifications.Notifier(nil), ns...)
	m.mu.Unlock()
}

func (m *Manager) currentNotifiers() []notifications.Notifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifiers
}

func (m *Manager) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// ApplyConfig stages new settings for the next cycle. Connection settings
// are not reloaded.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	s := settingsFrom(cfg)
	m.mu.Lock()
	m.pending = &s
	m.mu.Unlock()
}

// Trigger wakes a sleeping loop. It reports false if a wake-up is already pending.
func (m *Manager) Trigger() bool {
	select {
	case m.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state,
		Kind:      m.noun,
		Threshold: m.settings.opts.Threshold,
		NextRun:   m.nextRun,
		LastRun:   m.lastRun,
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) setNextRun(t *time.Time) {
	m.mu.Lock()
	m.nextRun = t
	m.mu.Unlock()
}

func (m *Manager) applyPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return
	}
	m.settings = *m.pending
	m.pending = nil
	if m.recorder != nil {
		m.recorder.Format = m.settings.format
		m.recorder.Directory = m.settings.directory
		m.recorder.Keep = m.settings.keep
		m.recorder.MinFreeMB = m.settings.minFreeMB
	}
}

// Run loops until ctx is cancelled. A failed fetch waits the fixed retry
// delay; a finished cycle waits the interval or the next cron tick.
func (m *Manager) Run(ctx context.Context) error {
	defer m.stopScheduler()

	for {
		m.applyPending()
		if err := m.syncScheduler(); err != nil {
			m.logger.Error("Invalid cron schedule, falling back to interval:", err)
		}

		run, err := m.RunCycle(ctx, false)
		if ctx.Err() != nil {
			m.setState(StateIdle)
			return ctx.Err()
		}

		s := m.currentSettings()
		if err != nil {
			m.setState(StateBackoff)
			next := m.now().Add(s.retry)
			m.setNextRun(&next)
			m.logger.Error("Cycle failed:", err)
			m.logger.Info("Retrying in", minutes(s.retry), "minutes")
			for _, n := range m.currentNotifiers() {
				n.NotifyCycleFailed(run, s.retry)
			}
			if err := m.wait(ctx, s.retry, nil); err != nil {
				m.setState(StateIdle)
				return err
			}
			continue
		}

		m.setState(StateSleeping)
		delay := s.interval
		if m.scheduler != nil {
			delay = 0
			next := m.scheduler.Entries()[0].Schedule.Next(m.now())
			m.setNextRun(&next)
			m.logger.Info("Next run at", next.Format(time.RFC1123))
		} else {
			next := m.now().Add(delay)
			m.setNextRun(&next)
			m.logger.Info("Next run in", minutes(delay), "minutes")
		}
		if err := m.wait(ctx, delay, m.trigger); err != nil {
			m.setState(StateIdle)
			return err
		}
	}
}

func (m *Manager) currentSettings() settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// RunCycle performs one full pass: fetch, process every entity, report.
// The returned run is never nil. The error is non-nil only when the cycle
// could not get past fetching or was cancelled.
func (m *Manager) RunCycle(ctx context.Context, dryRun bool) (*models.Run, error) {
	s := m.currentSettings()
	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      m.noun,
		StartedAt: m.now(),
		DryRun:    dryRun,
	}

	// A wake-up queued while the previous cycle ran is satisfied by this one.
	select {
	case <-m.trigger:
	default:
	}

	m.setState(StateFetching)
	entities, vocab, err := m.fetch(ctx)
	if err != nil {
		m.finish(run, err, s)
		return run, err
	}

	if s.testMode && len(entities) > s.testLimit {
		entities = entities[:s.testLimit]
		m.logger.Info(fmt.Sprintf("TEST MODE: Processing first %d %s only", s.testLimit, utils.Plural(m.noun)))
	}
	run.Total = len(entities)

	m.setState(StateProcessing)
	processor := NewProcessor(m.api, m.logger, m.noun, dryRun)
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			m.finish(run, err, s)
			return run, err
		}
		rec := processor.Process(ctx, e, vocab, s.opts)
		if rec == nil {
			continue
		}
		run.Records = append(run.Records, *rec)
		switch {
		case rec.Success:
			run.Updated++
		case !dryRun:
			run.Failed++
		}
	}
	m.logger.Info(fmt.Sprintf("Processing complete. Updated %d/%d %s", run.Updated, run.Total, utils.Plural(m.noun)))

	m.setState(StateReporting)
	if !dryRun && m.recorder != nil {
		path, err := m.recorder.Flush(run.Records)
		if err != nil {
			m.logger.Error("Failed to write results file:", err)
		}
		run.ResultsFile = path
	}
	m.finish(run, nil, s)
	return run, nil
}

func (m *Manager) fetch(ctx context.Context) ([]arr.Entity, *Vocabulary, error) {
	tags, err := m.api.ListTags(ctx)
	if err != nil {
		return nil, nil, err
	}
	vocab, err := EnsureVocabulary(ctx, m.api, tags, m.logger)
	if err != nil {
		return nil, nil, err
	}
	entities, err := m.api.ListEntities(ctx)
	if err != nil {
		return nil, nil, err
	}
	return entities, vocab, nil
}

// finish stamps run, stores it and tells observers. Notification on failure
// is left to Run, which knows the retry delay.
func (m *Manager) finish(run *models.Run, err error, s settings) {
	run.FinishedAt = m.now()
	run.Status = models.RunCompleted
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
	}

	if m.runs != nil && !run.DryRun && !errors.Is(err, context.Canceled) {
		if err := m.runs.Create(run); err != nil {
			m.logger.Error("Failed to store run history:", err)
		} else if s.keepRuns > 0 {
			if n, err := m.runs.Prune(s.keepRuns); err != nil {
				m.logger.Warn("Failed to prune run history:", err)
			} else if n > 0 {
				m.logger.Debug("Pruned", n, "old runs")
			}
		}
	}

	m.mu.Lock()
	m.lastRun = run
	m.mu.Unlock()

	for _, o := range m.observers {
		o.RunFinished(run)
	}
	if err == nil && !run.DryRun && (!s.onlyOnChanges || len(run.Records) > 0) {
		for _, n := range m.currentNotifiers() {
			n.NotifyCycleComplete(run)
		}
	}
}

// syncScheduler starts, replaces or stops the cron scheduler so it matches
// the current settings. Cron ticks only wake the loop.
func (m *Manager) syncScheduler() error {
	spec := m.currentSettings().cronSpec
	if spec == m.cronSpec && (spec == "") == (m.scheduler == nil) {
		return nil
	}
	m.stopScheduler()
	m.cronSpec = spec
	if spec == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { m.Trigger() }); err != nil {
		return err
	}
	c.Start()
	m.scheduler = c
	m.logger.Info("Scheduler started with cron spec:", spec)
	return nil
}

func (m *Manager) stopScheduler() {
	if m.scheduler != nil {
		m.scheduler.Stop()
		m.scheduler = nil
	}
}

func sleepContext(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return nil
	case <-wake:
		return nil
	}
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}

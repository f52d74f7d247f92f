// Package maintenance runs scheduled integrity checks over the configured
// JAM message bases.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stlalpha/msgbase/internal/config"
	"github.com/stlalpha/msgbase/internal/jam"
)

// ErrAlreadyRunning is returned by RunOnce while a previous run is active.
var ErrAlreadyRunning = errors.New("maintenance: run already in progress")

// Scheduler checks every JAM area on a cron schedule.
type Scheduler struct {
	cfg         config.MaintenanceConfig
	areas       []config.AreaConfig
	opts        []jam.Option
	logger      *slog.Logger
	now         func() time.Time
	history     map[string]*AreaHistory
	historyPath string
	running     bool
	mu          sync.RWMutex
}

// NewScheduler creates a scheduler for the JAM areas in cfg. opts are
// passed to jam.Open for every area.
func NewScheduler(cfg *config.Config, logger *slog.Logger, opts ...jam.Option) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	history := make(map[string]*AreaHistory)
	if cfg.Maintenance.HistoryPath != "" {
		h, err := LoadHistory(cfg.Maintenance.HistoryPath)
		if err != nil {
			logger.Warn("maintenance: failed to load history",
				slog.String("path", cfg.Maintenance.HistoryPath), slog.Any("error", err))
		} else {
			history = h
		}
	}

	return &Scheduler{
		cfg:         cfg.Maintenance,
		areas:       cfg.AreasOfType(config.AreaTypeJAM),
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		history:     history,
		historyPath: cfg.Maintenance.HistoryPath,
	}
}

// Start runs checks on the configured schedule until ctx is cancelled,
// then waits for a running check and saves the history.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.areas) == 0 {
		s.logger.Warn("maintenance: no JAM areas to check")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("maintenance: run skipped", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: invalid schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.logger.Info("maintenance: scheduler running",
		slog.String("schedule", s.cfg.Schedule),
		slog.Int("areas", len(s.areas)))

	<-ctx.Done()

	s.logger.Info("maintenance: scheduler stopping")
	<-c.Stop().Done()
	return s.SaveHistory()
}

// RunOnce checks every JAM area once and records the results. A run that
// overlaps a previous one is skipped with ErrAlreadyRunning.
func (s *Scheduler) RunOnce(ctx context.Context) ([]AreaResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	results := make([]AreaResult, 0, len(s.areas))
	for _, area := range s.areas {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := s.checkArea(ctx, area)
		s.updateHistory(result)
		results = append(results, result)
	}
	return results, nil
}

func (s *Scheduler) checkArea(ctx context.Context, area config.AreaConfig) AreaResult {
	result := AreaResult{Area: area.Tag, StartTime: s.now()}

	b, err := jam.Open(area.BasePath, s.opts...)
	if err != nil {
		result.Error = err
		result.EndTime = s.now()
		s.logger.Error("maintenance: cannot open base",
			slog.String("area", area.Tag), slog.String("path", area.BasePath), slog.Any("error", err))
		return result
	}

	result.Report, result.Error = b.Check(ctx)
	result.EndTime = s.now()

	switch {
	case result.Error != nil:
		s.logger.Error("maintenance: check failed",
			slog.String("area", area.Tag), slog.Any("error", result.Error))
	case !result.Report.OK():
		s.logger.Warn("maintenance: check found issues",
			slog.String("area", area.Tag), slog.Int("issues", len(result.Report.Issues)))
		for _, issue := range result.Report.Issues {
			s.logger.Warn("maintenance: issue", slog.String("area", area.Tag), slog.String("issue", issue))
		}
	default:
		s.logger.Info("maintenance: check passed",
			slog.String("area", area.Tag),
			slog.Uint64("active", uint64(result.Report.ActiveMsgs)),
			slog.Int("uncommitted", result.Report.Uncommitted))
	}
	return result
}

// SaveHistory writes the history to the configured path, if any.
func (s *Scheduler) SaveHistory() error {
	if s.historyPath == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := SaveHistory(s.historyPath, s.history); err != nil {
		return fmt.Errorf("maintenance: save history: %w", err)
	}
	s.logger.Debug("maintenance: history saved", slog.String("path", s.historyPath))
	return nil
}

// History returns a copy of the check history.
func (s *Scheduler) History() map[string]*AreaHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*AreaHistory, len(s.history))
	for k, v := range s.history {
		h := *v
		h.LastIssues = append([]string(nil), v.LastIssues...)
		out[k] = &h
	}
	return out
}

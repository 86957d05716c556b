// Package reminder sweeps confirmed registrations for missing documents and
// queues one reminder per registration per day.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"misiones/internal/notification/models"
	regmodels "misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
)

// RegistrationLister reads the registrations a sweep looks at.
type RegistrationLister interface {
	ListConfirmedMissingDocuments(ctx context.Context, kinds []regmodels.DocumentKind) ([]*regmodels.Registration, error)
}

type SiteReader interface {
	FindByID(ctx context.Context, siteID id.SiteID) (*sitemodels.Site, error)
}

type NoticeEnqueuer interface {
	Enqueue(ctx context.Context, n *models.Notice) error
}

// Sweeper runs one reminder pass. It only reads registration state.
type Sweeper struct {
	registrations RegistrationLister
	sites         SiteReader
	outbox        NoticeEnqueuer
	required      []regmodels.DocumentKind
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper validates the required document kinds.
func NewSweeper(registrations RegistrationLister, sites SiteReader, outbox NoticeEnqueuer, required []string, logger *slog.Logger, opts ...Option) (*Sweeper, error) {
	kinds := make([]regmodels.DocumentKind, 0, len(required))
	for _, raw := range required {
		kind, err := regmodels.ParseDocumentKind(raw)
		if err != nil {
			return nil, fmt.Errorf("required document %q: %w", raw, err)
		}
		kinds = append(kinds, kind)
	}
	s := &Sweeper{
		registrations: registrations,
		sites:         sites,
		outbox:        outbox,
		required:      kinds,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run enqueues reminders and returns how many were new today.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	if len(s.required) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	regs, err := s.registrations.ListConfirmedMissingDocuments(ctx, s.required)
	if err != nil {
		return 0, fmt.Errorf("list registrations missing documents: %w", err)
	}

	sites := make(map[id.SiteID]*sitemodels.Site)
	enqueued := 0
	for _, r := range regs {
		site, ok := sites[r.SiteID]
		if !ok {
			site, err = s.sites.FindByID(ctx, r.SiteID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return enqueued, fmt.Errorf("load site %s: %w", r.SiteID, err)
			}
			sites[r.SiteID] = site
		}
		if site == nil || !site.Active {
			continue
		}

		missing := r.MissingDocuments(s.required)
		if len(missing) == 0 {
			continue
		}
		names := make([]string, len(missing))
		for i, kind := range missing {
			names[i] = string(kind)
		}
		notice := models.NewNotice(models.KindDocumentsMissing,
			models.DocumentsMissingDedupeKey(r.ID, now),
			r.ID, r.SiteID, site.Name, r.FullName, r.Email,
			map[string]string{"missing": strings.Join(names, ", ")},
			now,
		)
		if err := s.outbox.Enqueue(ctx, notice); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return enqueued, fmt.Errorf("enqueue reminder: %w", err)
		}
		enqueued++
	}
	s.logger.InfoContext(ctx, "document reminders queued",
		"candidates", len(regs),
		"enqueued", enqueued,
	)
	return enqueued, nil
}

// Scheduler runs the sweeper on a cron schedule with a seconds field, in UTC.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler registers the sweep under a six-field cron schedule (seconds
// first, UTC).
func NewScheduler(schedule string, sweeper *Sweeper, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
		),
		sweeper: sweeper,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.runJob); err != nil {
		return nil, fmt.Errorf("register reminder schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.sweeper.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "document reminder sweep failed", "error", err)
	}
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reminder scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("reminder scheduler stopped")
	return nil
}

// Next reports when the sweep runs next, zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

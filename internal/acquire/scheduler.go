// Package acquire downloads the four daily NOAA dataset publications and
// turns them into the on-disk grid layout the forecast resolver serves from.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/observability"
)

// Downloader fetches one remote object to a local file.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Processor extracts the per-variable grids from one raw downloaded file
// and removes the raw file.
type Processor interface {
	Process(ctx context.Context, kind domain.DatasetKind, rawPath string, hour int) error
}

// Announcer publishes dataset completions. May be nil when announcements
// are not configured.
type Announcer interface {
	Announce(ctx context.Context, c domain.DatasetCompletion) error
}

const (
	// publicationLag is roughly how long NOAA takes to publish an update
	// instant after its nominal time.
	publicationLag = 4 * time.Hour

	// maxRetries bounds the download rounds for one instant; retryDelay
	// separates them. NOAA publishes grids incrementally, so a failed file
	// often succeeds half an hour later.
	maxRetries = 10
	retryDelay = 30 * time.Minute

	dateLayout = "20060102"
)

// job is one grid file to download and process.
type job struct {
	kind domain.DatasetKind
	hour int
	url  string
	dest string
}

// Scheduler drives the acquisition loop.
type Scheduler struct {
	dataDir       string
	gfsBaseURL    string
	gefsBaseURL   string
	retentionDays int
	interval      time.Duration

	downloader Downloader
	processor  Processor
	announcer  Announcer
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics

	busy atomic.Bool
}

// New wires a Scheduler from configuration.
func New(cfg *config.Config, d Downloader, p Processor, a Announcer,
	logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		dataDir:       cfg.DataDir,
		gfsBaseURL:    cfg.GFSBaseURL,
		gefsBaseURL:   cfg.GEFSBaseURL,
		retentionDays: cfg.RetentionDays,
		interval:      cfg.AcquireInterval,
		downloader:    d,
		processor:     p,
		announcer:     a,
		limiter:       rate.NewLimiter(rate.Limit(cfg.DownloadRate), cfg.DownloadBurst),
		logger:        logger,
		metrics:       metrics,
	}
}

// Run polls for a pending update instant until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("acquisition loop started", "interval", s.interval)
	s.metrics.AcquisitionRunning.Set(1)
	defer s.metrics.AcquisitionRunning.Set(0)

	ticker := domain.Clock().NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("acquisition loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("acquisition run failed", "error", err)
			}
		}
	}
}

// RunOnce acquires the newest published instant if it is not on disk yet.
// Concurrent calls are collapsed to one.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer s.busy.Store(false)

	date, instant, ok := s.pendingInstant(domain.Clock().Now().UTC())
	if !ok {
		return nil
	}
	return s.acquire(ctx, date, instant)
}

// pendingInstant returns the most recent update instant old enough to be
// published, unless its dataset directory already exists.
func (s *Scheduler) pendingInstant(now time.Time) (date, instant string, ok bool) {
	published := now.Add(-publicationLag)
	date = published.Format(dateLayout)
	instant = fmt.Sprintf("%02d", (published.Hour()/6)*6)

	if _, err := os.Stat(filepath.Join(s.dataDir, date, instant)); err == nil {
		return "", "", false
	}
	return date, instant, true
}

// acquire downloads and processes every grid of one instant, retrying failed
// files in rounds, then marks the dataset complete.
func (s *Scheduler) acquire(ctx context.Context, date, instant string) error {
	s.logger.Info("dataset acquisition starting", "date", date, "instant", instant)

	for _, kind := range []domain.DatasetKind{domain.DatasetGFS, domain.DatasetGEFS} {
		if err := os.MkdirAll(filepath.Join(s.dataDir, date, instant, string(kind)), 0o755); err != nil {
			return fmt.Errorf("create dataset directory: %w", err)
		}
	}

	pending := s.jobs(date, instant)
	grids := map[domain.DatasetKind]int{}
	for _, j := range pending {
		grids[j.kind]++
	}

	for attempt := 0; len(pending) > 0 && attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.DownloadRetries.Inc()
			s.logger.Warn("retrying failed grids",
				"date", date, "instant", instant, "attempt", attempt, "remaining", len(pending))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-domain.Clock().After(retryDelay):
			}
		}

		var failed []job
		for _, j := range pending {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := s.fetchOne(ctx, j); err != nil {
				s.logger.Warn("grid fetch failed", "url", j.url, "error", err)
				failed = append(failed, j)
			}
		}
		pending = failed
	}

	if len(pending) > 0 {
		return domain.Errorf(domain.DataUnavailable,
			"dataset %s/%s incomplete after %d retries: %d grids missing",
			date, instant, maxRetries, len(pending))
	}

	if err := s.markComplete(date, instant); err != nil {
		return err
	}
	s.announce(ctx, date, instant, grids)

	// The 18Z run closes out the day; drop data past retention with it.
	if instant == "18" {
		s.deleteStale(date)
	}

	s.logger.Info("dataset acquisition complete", "date", date, "instant", instant)
	return nil
}

// jobs lists every grid of one instant: hourly GFS, 3-hourly GEFS.
func (s *Scheduler) jobs(date, instant string) []job {
	var jobs []job
	for _, hour := range forecast.Hours(domain.DatasetGFS) {
		jobs = append(jobs, job{
			kind: domain.DatasetGFS,
			hour: hour,
			url: fmt.Sprintf("%s/gfs.%s/%s/atmos/gfs.t%sz.pgrb2.0p25.f%03d",
				s.gfsBaseURL, date, instant, instant, hour),
			dest: filepath.Join(s.dataDir, date, instant, "gfs", fmt.Sprintf("gfs.f%03d", hour)),
		})
	}
	for _, hour := range forecast.Hours(domain.DatasetGEFS) {
		jobs = append(jobs, job{
			kind: domain.DatasetGEFS,
			hour: hour,
			url: fmt.Sprintf("%s/gefs.%s/%s/chem/pgrb2ap25/gefs.chem.t%sz.a2d_0p25.f%03d.grib2",
				s.gefsBaseURL, date, instant, instant, hour),
			dest: filepath.Join(s.dataDir, date, instant, "gefs", fmt.Sprintf("gefs.f%03d", hour)),
		})
	}
	return jobs
}

// fetchOne downloads one raw grid and processes it right away to cap disk
// usage; raw files are two orders of magnitude larger than the extracts.
func (s *Scheduler) fetchOne(ctx context.Context, j job) error {
	if err := s.downloader.Download(ctx, j.url, j.dest); err != nil {
		return err
	}
	return s.processor.Process(ctx, j.kind, j.dest, j.hour)
}

// markComplete writes the completion marker the resolver looks for.
func (s *Scheduler) markComplete(date, instant string) error {
	path := filepath.Join(s.dataDir, date, instant, forecast.CompletionMarker)
	stamp := domain.Clock().Now().UTC().Format("2006-01-02 15:04:05")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("Complete at %s UTC.\n", stamp)), 0o644); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	return nil
}

func (s *Scheduler) announce(ctx context.Context, date, instant string, grids map[domain.DatasetKind]int) {
	for kind, n := range grids {
		s.metrics.DatasetsCompleted.WithLabelValues(string(kind)).Inc()
		if s.announcer == nil {
			continue
		}
		c := domain.DatasetCompletion{
			Kind:        kind,
			Timestamp:   date + instant,
			Grids:       n,
			CompletedAt: domain.Clock().Now().UTC(),
		}
		if err := s.announcer.Announce(ctx, c); err != nil {
			s.logger.Error("completion announcement failed", "kind", kind, "error", err)
		}
	}
}

// deleteStale removes the dataset directory that fell out of retention.
func (s *Scheduler) deleteStale(date string) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		s.logger.Error("invalid dataset date", "date", date, "error", err)
		return
	}
	stale := day.AddDate(0, 0, -s.retentionDays).Format(dateLayout)
	path := filepath.Join(s.dataDir, stale)
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		s.logger.Error("stale data deletion failed", "path", path, "error", err)
		return
	}
	s.logger.Info("stale data deleted", "path", path)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"strompris/internal/dataprocessing"
	"strompris/internal/files"
	"strompris/internal/infrastructure"
	"strompris/pkg/contracts/domain"
)

// Load triggers, used as the metric and log label of a load
const (
	TriggerStartup = "startup"
	TriggerHTTP    = "http"
	TriggerWatch   = "watch"
)

// PriceServiceConfig configures a PriceService
type PriceServiceConfig struct {
	// Source is a workbook file or a directory holding workbooks
	Source string
	// BaseDir resolves a relative Source
	BaseDir       string
	Normalizer    dataprocessing.NormalizerConfig
	WatchDebounce time.Duration
}

// SelectionRequest is the raw user filter. Nil years default to the
// dataset bounds; an empty region list selects every region.
type SelectionRequest struct {
	Regions  []string
	FromYear *int
	ToYear   *int
}

// QueryResult pairs the resolved selection with its aggregator
type QueryResult struct {
	Selection  domain.Selection
	Aggregator *dataprocessing.Aggregator
}

// DatasetMeta describes the loaded dataset and the filter defaults
type DatasetMeta struct {
	Regions     []domain.Region              `json:"regions"`
	RegionNames []string                     `json:"region_names"`
	MinYear     int                          `json:"min_year"`
	MaxYear     int                          `json:"max_year"`
	Unit        string                       `json:"unit"`
	Records     int                          `json:"records"`
	Source      string                       `json:"source"`
	LoadedAt    time.Time                    `json:"loaded_at"`
	Sheets      []dataprocessing.SheetReport `json:"sheets,omitempty"`
}

// PriceService owns the current dataset and answers filtered queries
type PriceService struct {
	source    string
	debounce  time.Duration
	discovery *files.Discovery
	loader    *dataprocessing.Loader
	current   atomic.Pointer[dataprocessing.Dataset]
	loads     singleflight.Group
	metrics   *infrastructure.PipelineMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewPriceService creates a price service. Nothing is loaded until Load is called.
// metrics may be nil.
func NewPriceService(cfg PriceServiceConfig, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *PriceService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "price_service")

	logger.Info("PriceService initialized",
		slog.String("source", cfg.Source),
		slog.String("duplicates", string(cfg.Normalizer.Duplicates)),
		slog.Duration("watch_debounce", cfg.WatchDebounce))

	return &PriceService{
		source:    cfg.Source,
		debounce:  cfg.WatchDebounce,
		discovery: files.NewDiscovery(cfg.BaseDir),
		loader:    dataprocessing.NewLoader(logger, cfg.Normalizer),
		metrics:   metrics,
		tracer:    otel.Tracer("strompris/services"),
		logger:    logger,
	}
}

// Load performs the initial load. The caller treats a failure as fatal.
func (s *PriceService) Load(ctx context.Context) (*dataprocessing.Dataset, error) {
	return s.Reload(ctx, TriggerStartup)
}

// Reload rebuilds the dataset from the workbook and swaps it in on success.
// Concurrent calls share one load, which is not cancelled when the first
// caller goes away. On failure the previous dataset stays.
func (s *PriceService) Reload(ctx context.Context, trigger string) (*dataprocessing.Dataset, error) {
	v, err, shared := s.loads.Do("load", func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), trigger)
	})
	if shared {
		s.logger.DebugContext(ctx, "reload joined an in-flight load", slog.String("trigger", trigger))
	}
	if err != nil {
		return nil, err
	}
	return v.(*dataprocessing.Dataset), nil
}

func (s *PriceService) load(ctx context.Context, trigger string) (*dataprocessing.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "PriceService.load",
		trace.WithAttributes(attribute.String("load.trigger", trigger)))
	defer span.End()

	logger := infrastructure.LoggerFrom(ctx, s.logger).With(slog.String("trigger", trigger))
	start := time.Now()

	ds, err := s.readDataset(ctx)
	s.metrics.RecordLoad(ctx, trigger, time.Since(start), datasetLen(ds), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		if prev := s.current.Load(); prev != nil {
			logger.Error("reload failed, keeping previous dataset",
				slog.String("error", err.Error()),
				slog.String("previous_source", prev.Source()),
				slog.Int("previous_records", prev.Len()))
		} else {
			logger.Error("dataset load failed", slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.current.Store(ds)
	span.SetAttributes(attribute.Int("dataset.records", ds.Len()))
	logger.Info("dataset swapped in",
		slog.String("source", ds.Source()),
		slog.Int("records", ds.Len()),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

func (s *PriceService) readDataset(ctx context.Context) (*dataprocessing.Dataset, error) {
	path, err := s.discovery.ResolveWorkbook(s.source)
	if err != nil {
		return nil, fmt.Errorf("resolve workbook %s: %w", s.source, ClassifyResolveError(err))
	}
	infrastructure.AddSpanEvent(ctx, "workbook.resolved", attribute.String("path", path))

	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// ClassifyResolveError tags a workbook discovery failure with the load
// sentinel it stands for. A source that exists but cannot be listed is
// unreadable; anything else is missing.
func ClassifyResolveError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", dataprocessing.ErrSourceFileUnreadable, err)
	}
	return fmt.Errorf("%w: %w", dataprocessing.ErrSourceFileMissing, err)
}

func datasetLen(ds *dataprocessing.Dataset) int {
	if ds == nil {
		return 0
	}
	return ds.Len()
}

// Dataset returns the current dataset
func (s *PriceService) Dataset() (*dataprocessing.Dataset, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, ErrDatasetNotLoaded
	}
	return ds, nil
}

// Meta describes the current dataset
func (s *PriceService) Meta() (*DatasetMeta, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return metaOf(ds), nil
}

func metaOf(ds *dataprocessing.Dataset) *DatasetMeta {
	lo, hi := ds.YearBounds()
	return &DatasetMeta{
		Regions:     dataprocessing.Regions(),
		RegionNames: ds.RegionNames(),
		MinYear:     lo,
		MaxYear:     hi,
		Unit:        domain.PriceUnit,
		Records:     ds.Len(),
		Source:      ds.Source(),
		LoadedAt:    ds.LoadedAt(),
		Sheets:      ds.SheetReports(),
	}
}

// Select resolves a raw filter against ds. Region names and codes are
// accepted case-insensitively; years are clamped to the dataset bounds.
func Select(ds *dataprocessing.Dataset, req SelectionRequest) (domain.Selection, error) {
	var regions []string
	for _, raw := range req.Regions {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			name, ok := dataprocessing.ResolveRegionName(part)
			if !ok {
				return domain.Selection{}, invalidSelection("region", fmt.Sprintf("unknown region %q", strings.TrimSpace(part)))
			}
			if !slices.Contains(regions, name) {
				regions = append(regions, name)
			}
		}
	}
	if len(regions) == 0 {
		for _, r := range dataprocessing.Regions() {
			regions = append(regions, r.Name)
		}
	}
	slices.Sort(regions)

	sel := ds.DefaultSelection()
	sel.Regions = regions
	if req.FromYear != nil {
		sel.FromYear = *req.FromYear
	}
	if req.ToYear != nil {
		sel.ToYear = *req.ToYear
	}

	sel = ds.Clamp(sel)
	if sel.FromYear > sel.ToYear {
		return domain.Selection{}, invalidSelection("from", fmt.Sprintf("from year %d is after to year %d", sel.FromYear, sel.ToYear))
	}
	return sel, nil
}

// Query filters the current dataset for one view. An empty result is not an error.
func (s *PriceService) Query(ctx context.Context, view string, req SelectionRequest) (*QueryResult, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	sel, err := Select(ds, req)
	if err != nil {
		return nil, err
	}

	agg := ds.Query(sel)
	s.metrics.RecordQuery(ctx, view, agg.Empty())
	if agg.Empty() {
		infrastructure.LoggerFrom(ctx, s.logger).DebugContext(ctx, "selection matched no records",
			slog.String("view", view),
			slog.Any("regions", sel.Regions),
			slog.Int("from_year", sel.FromYear),
			slog.Int("to_year", sel.ToYear))
	}

	return &QueryResult{Selection: sel, Aggregator: agg}, nil
}

// Watch reloads the dataset whenever the workbook changes on disk, after the
// configured debounce. It blocks until ctx is cancelled.
func (s *PriceService) Watch(ctx context.Context) error {
	if s.debounce <= 0 {
		return ErrWatchDisabled
	}

	target, isDir, err := s.watchTarget()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := target
	if !isDir {
		dir = filepath.Dir(target)
	}
	// Watch the directory: editors replace the file rather than writing in place.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.logger.InfoContext(ctx, "watching workbook",
		slog.String("path", target),
		slog.Duration("debounce", s.debounce))

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("workbook watch stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(ev, target, isDir) {
				continue
			}
			s.metrics.RecordWatchEvent(ctx, ev.Op.String())
			s.logger.DebugContext(ctx, "workbook event",
				slog.String("name", ev.Name),
				slog.String("op", ev.Op.String()))

			if timer == nil {
				timer = time.AfterFunc(s.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(s.debounce)
			}

		case <-fire:
			// Reload logs its own failure; the watcher keeps running.
			_, _ = s.Reload(infrastructure.EnsureTraceID(ctx), TriggerWatch)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "workbook watcher error", slog.String("error", err.Error()))
		}
	}
}

// watchTarget is the absolute path to watch and whether it is a directory
func (s *PriceService) watchTarget() (string, bool, error) {
	if s.discovery.IsDir(s.source) {
		return filepath.Clean(s.discovery.Abs(s.source)), true, nil
	}
	if ds := s.current.Load(); ds != nil {
		return filepath.Clean(ds.Source()), false, nil
	}
	path, err := s.discovery.ResolveWorkbook(s.source)
	if err != nil {
		return "", false, err
	}
	return filepath.Clean(path), false, nil
}

func relevantEvent(ev fsnotify.Event, target string, isDir bool) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if isDir {
		base := filepath.Base(name)
		// Spreadsheet tools keep "~$name.xlsx" lock files next to the workbook.
		return strings.EqualFold(filepath.Ext(base), ".xlsx") && !strings.HasPrefix(base, "~$")
	}
	return name == target
}

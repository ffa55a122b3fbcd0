// Package service implements the data fusion resolver: it combines
// independently sourced, independently stale facts about one identifier
// into a unified business profile with full provenance.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"trustcheck/internal/audit"
	"trustcheck/internal/classifier"
	"trustcheck/internal/fusion/metrics"
	"trustcheck/internal/fusion/models"
	"trustcheck/internal/fusion/sources"
	"trustcheck/internal/fusion/store"
	"trustcheck/internal/platform/config"
	"trustcheck/internal/resilience"
	"trustcheck/pkg/domain"
	dErrors "trustcheck/pkg/domain-errors"
)

// errNoRecord signals a legitimate empty result: the source answered and has
// no record for the identifier. Distinct from a fetch failure.
var errNoRecord = errors.New("source has no record")

// Service is the fusion resolver. Fact types resolve independently and
// concurrently; one failed fact type never aborts the others.
type Service struct {
	cache    store.Cache
	adapters *sources.Registry
	limiters *resilience.LimiterRegistry
	sources  map[domain.Source]config.SourceConfig
	retry    resilience.RetryPolicy

	logger  *slog.Logger
	metrics *metrics.Metrics
	trail   audit.Publisher
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation. Optional; a nil-metrics
// resolver works identically.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditTrail attaches the resolution audit publisher. Optional.
func WithAuditTrail(trail audit.Publisher) Option {
	return func(s *Service) { s.trail = trail }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock injects the time source for staleness decisions. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the resolver. Every dependency except the options is required.
func New(
	cache store.Cache,
	adapters *sources.Registry,
	limiters *resilience.LimiterRegistry,
	sourceCfg map[domain.Source]config.SourceConfig,
	retryCfg config.RetryConfig,
	opts ...Option,
) *Service {
	s := &Service{
		cache:    cache,
		adapters: adapters,
		limiters: limiters,
		sources:  sourceCfg,
		retry: resilience.RetryPolicy{
			MaxRetries:   retryCfg.MaxRetries,
			InitialDelay: retryCfg.InitialDelay,
			Classify:     sources.IsRetryable,
		},
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("fusion"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options controls one resolution.
type Options struct {
	// ForceRefresh bypasses fresh cache entries. Stale fallback still applies
	// when the live fetch fails.
	ForceRefresh bool
	// IncludeExtended adds the slower legal and enforcement fact types.
	IncludeExtended bool
}

// Resolve fuses all requested fact types for one identifier. Sub-resolutions
// run concurrently and merge best-effort: facts that cannot be resolved stay
// nil, and only context cancellation propagates as an error. The identity
// fact always resolves, falling back to a synthetic low-quality record when
// every other path is exhausted.
func (s *Service) Resolve(ctx context.Context, id domain.BusinessID, opts Options) (*models.BusinessProfile, error) {
	ctx, span := s.tracer.Start(ctx, "fusion.resolve",
		trace.WithAttributes(attribute.String("business_id", id.String())))
	defer span.End()

	c := classifier.Classify(id)
	profile := &models.BusinessProfile{
		BusinessID:     id,
		Classification: c,
		FactProvenance: make(map[domain.FactType]models.Provenance),
	}

	factTypes := []domain.FactType{domain.FactIdentity, domain.FactVAT, domain.FactBank}
	if opts.IncludeExtended {
		factTypes = append(factTypes, domain.FactLegal, domain.FactEnforcement)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, ft := range factTypes {
		ft := ft
		g.Go(func() error {
			s.resolveFact(gctx, profile, &mu, ft, id, c, opts.ForceRefresh)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	profile.Provenance = profile.FactProvenance[domain.FactIdentity]
	mu.Unlock()
	profile.Flags = deriveFlags(profile)
	profile.ResolvedAt = s.now().UTC()
	return profile, nil
}

// highDebtThresholdNIS marks the at-a-glance high-debt flag. The risk engine
// tiers debt with its own injectable thresholds.
const highDebtThresholdNIS = 100_000

func deriveFlags(profile *models.BusinessProfile) models.RiskFlags {
	var flags models.RiskFlags
	if profile.Identity != nil {
		flags.Violating = profile.Identity.Violating
		flags.Bankruptcy = profile.Identity.Status == models.StatusLiquidating ||
			profile.Identity.Status == models.StatusDissolved
	}
	if profile.Bank != nil {
		flags.RestrictedAccount = profile.Bank.Restricted
	}
	if profile.Enforcement != nil {
		flags.HighDebt = profile.Enforcement.TotalDebtNIS >= highDebtThresholdNIS
	}
	return flags
}

// resolveFact resolves one fact type and attaches the result to the profile.
// All failure recovery is local; nothing propagates.
func (s *Service) resolveFact(
	ctx context.Context,
	profile *models.BusinessProfile,
	mu *sync.Mutex,
	ft domain.FactType,
	id domain.BusinessID,
	c classifier.Classification,
	force bool,
) {
	// A company's VAT status follows from the identifier; the dealer registry
	// is never consulted for it.
	if ft == domain.FactVAT && !c.RequiresLookup {
		mu.Lock()
		profile.VAT = &models.VATRecord{DealerType: "company", VATRegistered: true}
		profile.FactProvenance[ft] = models.Provenance{
			DataSource:  domain.SourceDerived,
			DataQuality: models.QualityHigh,
			LastUpdated: s.now().UTC(),
		}
		mu.Unlock()
		return
	}

	payload, prov, err := s.resolvePayload(ctx, "resolve", ft, id, force)
	if err != nil {
		s.handleFactMiss(ctx, profile, mu, ft, id, c, err)
		return
	}

	if ft == domain.FactIdentity && c.EntityType == classifier.EntityDealer {
		// Classifier output is authoritative; a conflicting registry record is
		// logged, never reconciled.
		s.logger.WarnContext(ctx, "classification mismatch: dealer identifier found in companies registry",
			"business_id", id)
	}

	mu.Lock()
	defer mu.Unlock()
	if decodeErr := attachFact(profile, ft, payload); decodeErr != nil {
		s.logger.ErrorContext(ctx, "discarding undecodable fact payload",
			"fact_type", ft, "business_id", id, "error", decodeErr)
		return
	}
	profile.FactProvenance[ft] = prov
}

// handleFactMiss applies the per-fact-type meaning of an unresolvable fact.
// Identity gets the synthetic fallback; everything else stays absent.
func (s *Service) handleFactMiss(
	ctx context.Context,
	profile *models.BusinessProfile,
	mu *sync.Mutex,
	ft domain.FactType,
	id domain.BusinessID,
	c classifier.Classification,
	err error,
) {
	noRecord := errors.Is(err, errNoRecord)

	if ft != domain.FactIdentity {
		if !noRecord {
			s.logger.WarnContext(ctx, "fact type unresolved",
				"fact_type", ft, "business_id", id, "error", err)
		}
		return
	}

	if noRecord && c.EntityType == classifier.EntityCompany {
		s.logger.WarnContext(ctx, "classification mismatch: company identifier missing from companies registry",
			"business_id", id)
	}

	identity := sources.SyntheticIdentity(id, c)
	if s.metrics != nil {
		s.metrics.RecordFallback()
	}
	s.emit(audit.ResolutionEvent{
		Source:     ft.SourceFor(),
		Operation:  "resolve",
		BusinessID: id,
		Status:     audit.StatusFallback,
	})

	mu.Lock()
	profile.Identity = &identity
	profile.FactProvenance[ft] = models.Provenance{
		DataSource:  domain.SourceFallback,
		DataQuality: models.QualityLow,
		LastUpdated: s.now().UTC(),
	}
	mu.Unlock()
}

// resolvePayload runs the five-step resolution protocol for one fact type:
// cache, rate-limited retried fetch, write-back, stale fallback. The caller
// decides what an unresolvable fact means.
func (s *Service) resolvePayload(
	ctx context.Context,
	operation string,
	ft domain.FactType,
	id domain.BusinessID,
	force bool,
) (json.RawMessage, models.Provenance, error) {
	source := ft.SourceFor()
	cfg := s.sources[source]
	start := s.now()

	var cached *store.Entry
	if entry, err := s.cache.Get(ctx, source, id); err == nil {
		cached = entry
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "cache read failed", "source", source, "error", err)
	}

	if !force && cached != nil && !cached.IsStale(cfg.TTL, s.now()) {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(source.String())
		}
		s.emit(audit.ResolutionEvent{
			Source:     source,
			Operation:  operation,
			BusinessID: id,
			Status:     audit.StatusCacheHit,
			CacheHit:   true,
			LatencyMS:  s.sinceMS(start),
		})
		return cached.Payload, models.Provenance{
			DataSource:  domain.SourceCache,
			DataQuality: qualityFor(source),
			CacheHit:    true,
			LastUpdated: cached.UpdatedAt,
		}, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(source.String())
	}

	payload, err := s.fetch(ctx, source, id, cfg)
	latency := s.sinceMS(start)

	if err == nil {
		if s.metrics != nil {
			s.metrics.ObserveFetch(source.String(), time.Duration(latency)*time.Millisecond)
		}
		if upsertErr := s.cache.Upsert(ctx, source, id, payload); upsertErr != nil {
			s.logger.ErrorContext(ctx, "cache write-back failed",
				"source", source, "business_id", id, "error", upsertErr)
		}
		s.emit(audit.ResolutionEvent{
			Source:     source,
			Operation:  operation,
			BusinessID: id,
			Status:     audit.StatusSuccess,
			LatencyMS:  latency,
		})
		return payload, models.Provenance{
			DataSource:  source,
			DataQuality: qualityFor(source),
			LastUpdated: s.now().UTC(),
		}, nil
	}

	if sources.IsNotFound(err) {
		// A definitive empty answer from the source, not an outage.
		s.emit(audit.ResolutionEvent{
			Source:     source,
			Operation:  operation,
			BusinessID: id,
			Status:     audit.StatusSuccess,
			LatencyMS:  latency,
			Error:      err.Error(),
		})
		return nil, models.Provenance{}, errNoRecord
	}

	category := sources.CategoryOf(err)
	if s.metrics != nil {
		s.metrics.RecordFetchFailure(source.String(), string(category))
	}
	if failErr := s.cache.RecordFailure(ctx, source, id); failErr != nil {
		s.logger.WarnContext(ctx, "recording fetch failure failed",
			"source", source, "error", failErr)
	}
	s.emit(audit.ResolutionEvent{
		Source:     source,
		Operation:  operation,
		BusinessID: id,
		Status:     statusFor(category),
		LatencyMS:  latency,
		Error:      err.Error(),
	})

	// Stale-but-present beats absent.
	if cached != nil {
		if s.metrics != nil {
			s.metrics.RecordStaleServed(source.String())
		}
		s.emit(audit.ResolutionEvent{
			Source:     source,
			Operation:  operation,
			BusinessID: id,
			Status:     audit.StatusStaleServed,
			CacheHit:   true,
			LatencyMS:  latency,
		})
		return cached.Payload, models.Provenance{
			DataSource:  domain.SourceCache,
			DataQuality: qualityFor(source),
			CacheHit:    true,
			Stale:       true,
			LastUpdated: cached.UpdatedAt,
		}, nil
	}

	return nil, models.Provenance{}, err
}

// fetch runs one rate-limited, retried adapter call. The limiter is awaited
// inside the retry loop so retries stay paced like first attempts.
func (s *Service) fetch(ctx context.Context, source domain.Source, id domain.BusinessID, cfg config.SourceConfig) (json.RawMessage, error) {
	adapter, ok := s.adapters.Get(source)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no adapter for source "+source.String())
	}
	return resilience.Retry(ctx, s.logger, s.retry, "fetch "+source.String(),
		func(ctx context.Context) (json.RawMessage, error) {
			if err := s.limiters.For(source).Wait(ctx); err != nil {
				return nil, err
			}
			fctx := ctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}
			return adapter.Fetch(fctx, id)
		})
}

// BulkRefreshStale force-refreshes up to limit stale entries for one source,
// oldest first. Individual refresh failures are skipped, not fatal.
func (s *Service) BulkRefreshStale(ctx context.Context, source domain.Source, limit int) (int, error) {
	cfg, ok := s.sources[source]
	if !ok {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown source: "+source.String())
	}
	ids, err := s.cache.ListStale(ctx, source, cfg.TTL, limit)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordRefreshRun()
	}

	ft := domain.FactTypeFor(source)
	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, prov, err := s.resolvePayload(ctx, "bulk_refresh", ft, id, true); err == nil && !prov.Stale {
			refreshed++
		}
	}
	s.logger.InfoContext(ctx, "bulk refresh completed",
		"source", source, "stale", len(ids), "refreshed", refreshed)
	return refreshed, nil
}

// CacheStats aggregates one source's cache state against its configured TTL.
func (s *Service) CacheStats(ctx context.Context, source domain.Source) (store.Stats, error) {
	cfg, ok := s.sources[source]
	if !ok {
		return store.Stats{}, dErrors.New(dErrors.CodeInvalidInput, "unknown source: "+source.String())
	}
	return s.cache.Stats(ctx, source, cfg.TTL)
}

func (s *Service) emit(event audit.ResolutionEvent) {
	if s.trail == nil {
		return
	}
	event.Timestamp = s.now().UTC()
	s.trail.Emit(event)
}

func (s *Service) sinceMS(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

// attachFact decodes a normalized payload into the profile slot for its fact
// type. Callers hold the profile lock.
func attachFact(profile *models.BusinessProfile, ft domain.FactType, payload json.RawMessage) error {
	switch ft {
	case domain.FactIdentity:
		var v models.Identity
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		profile.Identity = &v
	case domain.FactLegal:
		var v models.LegalExposure
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		profile.Legal = &v
	case domain.FactEnforcement:
		var v models.EnforcementExposure
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		profile.Enforcement = &v
	case domain.FactVAT:
		var v models.VATRecord
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		profile.VAT = &v
	case domain.FactBank:
		var v models.BankRestriction
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		profile.Bank = &v
	}
	return nil
}

// qualityFor assigns the coarse trust tier by backing kind: structured APIs
// rate high, scrapes and snapshot files medium.
func qualityFor(source domain.Source) models.DataQuality {
	switch source {
	case domain.SourceCompaniesRegistry, domain.SourceVATDealerRegistry:
		return models.QualityHigh
	default:
		return models.QualityMedium
	}
}

func statusFor(category sources.ErrorCategory) audit.Status {
	switch category {
	case sources.ErrorRateLimited:
		return audit.StatusRateLimited
	case sources.ErrorTimeout:
		return audit.StatusTimeout
	default:
		return audit.StatusFailure
	}
}

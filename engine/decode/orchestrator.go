package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vinlab/vinlab/engine/domain"
	"github.com/vinlab/vinlab/engine/events"
	"github.com/vinlab/vinlab/engine/vindata"
	"github.com/vinlab/vinlab/engine/vpic"
	"github.com/vinlab/vinlab/pkg/fn"
	"github.com/vinlab/vinlab/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// cannotDecodePhrases mark a primary response as unusable. This is a
// documented heuristic, not a contract: vPIC reports failures through free
// text, so a wording change upstream can misclassify a response. Revisit if
// vPIC ever grows structured status codes.
var cannotDecodePhrases = []string{
	"cannot decode", "unable to decode", "no data", "not found", "invalid",
}

// VehicleSource is the primary full-VIN lookup.
type VehicleSource interface {
	DecodeVIN(ctx context.Context, vin string) (*vpic.Response, error)
}

// ManufacturerSource is the secondary WMI-only manufacturer lookup.
type ManufacturerSource interface {
	DecodeWMI(ctx context.Context, wmi string) (*vpic.Response, error)
}

// FallbackSource is the paid tertiary decoder.
type FallbackSource interface {
	Decode(ctx context.Context, vin string) (map[string]string, error)
}

// Cache holds decoded records between calls.
type Cache interface {
	Get(vin string) *domain.DecodedVehicle
	Set(vin string, v *domain.DecodedVehicle)
}

// HistoryStore records completed decodes.
type HistoryStore interface {
	Add(ctx context.Context, v *domain.DecodedVehicle) error
}

// EventPublisher emits decode events to downstream consumers.
type EventPublisher interface {
	PublishDecoded(ctx context.Context, ev events.DecodedEvent) error
}

// Deps holds the orchestrator's collaborators. History, Events, and Metrics
// are optional; the others are required.
type Deps struct {
	Primary   VehicleSource
	Secondary ManufacturerSource
	Fallback  FallbackSource
	Cache     Cache
	History   HistoryStore
	Events    EventPublisher
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// Orchestrator coordinates a decode: cache, dedup, concurrent lookups,
// fallback, merge.
type Orchestrator struct {
	deps   Deps
	flight singleflight.Group
	now    func() time.Time // for testing
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{deps: deps, now: time.Now}
}

// Decode resolves a VIN to a canonical vehicle record. Concurrent calls for
// the same VIN share one in-flight operation; its outcome, success or
// failure, is delivered to every waiter, and the slot is cleared on
// settlement so a later call starts fresh.
//
// Error taxonomy: a *domain.ValidationError for malformed input,
// domain.ErrNoData when every source responded without identifying data, and
// domain.ErrUpstream wrapping network or API failure when no source could be
// reached. Partial records are never an error.
func (o *Orchestrator) Decode(ctx context.Context, input string) (*domain.DecodedVehicle, error) {
	vin := strings.ToUpper(strings.TrimSpace(input))
	if err := domain.CheckVIN(vin); err != nil {
		return nil, err
	}

	v, err, _ := o.flight.Do(vin, func() (any, error) {
		return o.decode(ctx, vin)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.DecodedVehicle), nil
}

func (o *Orchestrator) decode(ctx context.Context, vin string) (*domain.DecodedVehicle, error) {
	if cached := o.deps.Cache.Get(vin); cached != nil {
		o.count("vinlab_decode_cache_hits_total")
		return cached, nil
	}
	o.count("vinlab_decode_cache_misses_total")

	wmi := domain.WMI(vin)

	// Settle-all fan-out: both lookups always run to completion and both
	// outcomes are observed; a failure in one does not cancel the other.
	results := fn.FanOut(
		func() fn.Result[*vpic.Response] {
			start := o.now()
			r := fn.FromPair(o.deps.Primary.DecodeVIN(ctx, vin))
			o.observe("vpic", start)
			return r
		},
		func() fn.Result[*vpic.Response] {
			start := o.now()
			r := fn.FromPair(o.deps.Secondary.DecodeWMI(ctx, wmi))
			o.observe("wmi", start)
			return r
		},
	)

	primResp, primErr := results[0].Unwrap()
	secResp, secErr := results[1].Unwrap()
	if secErr != nil {
		o.deps.Logger.Debug("wmi lookup failed", "vin", vin, "err", secErr)
	}

	var rec *domain.DecodedVehicle
	switch {
	case primErr != nil || cannotDecode(primResp):
		fields, fbErr := o.deps.Fallback.Decode(ctx, vin)
		if fbErr != nil {
			o.deps.Logger.Debug("fallback decode failed", "vin", vin, "err", fbErr)
			if primErr != nil {
				// The primary's error is the root cause; surface it, not
				// the fallback's.
				o.count("vinlab_decode_errors_total")
				return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, primErr)
			}
			o.count("vinlab_decode_nodata_total")
			return nil, fmt.Errorf("%w: %s", domain.ErrNoData, vin)
		}
		// Fallback result is final; secondary enrichment is skipped here.
		rec = Map(vin, fields)
		rec.Metadata.Source = domain.SourceFallback
		o.count(metrics.WithLabels("vinlab_decode_total", "source", "fallback"))

	default:
		rec = Map(vin, primResp.First())
		rec.Metadata.Source = domain.SourcePrimary
		rec.Metadata.APIVersion = vpic.APIVersion
		if secErr == nil && MergeWMI(rec, secResp.First()) {
			rec.Metadata.WMIDecoded = true
		}
		o.count(metrics.WithLabels("vinlab_decode_total", "source", "vpic"))
	}

	if !identified(rec) {
		o.count("vinlab_decode_nodata_total")
		return nil, fmt.Errorf("%w: %s", domain.ErrNoData, vin)
	}
	rec.Metadata.DecodedAt = o.now().UTC()

	o.deps.Cache.Set(vin, rec)
	if o.deps.History != nil {
		if err := o.deps.History.Add(ctx, rec); err != nil {
			o.deps.Logger.Warn("history append failed", "vin", vin, "err", err)
		}
	}
	o.publish(ctx, rec)

	return rec, nil
}

// cannotDecode applies the unusable-response heuristic to a primary result.
func cannotDecode(resp *vpic.Response) bool {
	if resp == nil || resp.Count == 0 || len(resp.Results) == 0 {
		return true
	}
	msg := strings.ToLower(resp.Message)
	for _, phrase := range cannotDecodePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	row := resp.First()
	return pick(row, "Make") == "" && pick(row, "Model") == "" &&
		pick(row, "ModelYear") == "" && pick(row, "Manufacturer", "ManufacturerName") == ""
}

func (o *Orchestrator) publish(ctx context.Context, rec *domain.DecodedVehicle) {
	if o.deps.Events == nil {
		return
	}
	ev := events.DecodedEvent{
		VIN:    rec.VIN,
		Make:   rec.Make,
		Model:  rec.Model,
		Year:   rec.Year,
		Source: rec.Metadata.Source,
	}
	if err := o.deps.Events.PublishDecoded(ctx, ev); err != nil {
		o.deps.Logger.Warn("decode event publish failed", "vin", rec.VIN, "err", err)
	}
}

func (o *Orchestrator) count(name string) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.Counter(name, "").Inc()
	}
}

func (o *Orchestrator) observe(source string, start time.Time) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.Histogram(
			metrics.WithLabels("vinlab_upstream_latency_seconds", "source", source),
			"", nil,
		).Since(start)
	}
}

// NoData reports whether err is the distinct no-data outcome rather than a
// retryable failure.
func NoData(err error) bool {
	return errors.Is(err, domain.ErrNoData)
}

// Ensure the vindata client satisfies FallbackSource.
var _ FallbackSource = (*vindata.Client)(nil)

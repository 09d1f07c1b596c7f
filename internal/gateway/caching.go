package gateway

import (
	"context"
	"encoding/json"
	"time"

	"klinik/pkg/logger"
	"klinik/pkg/model"
)

const (
	nsBranches     = "branches:"
	nsDoctors      = "doctors:"
	nsTimeslots    = "timeslots:"
	nsReservations = "reservations:"

	DefaultReferenceTTL   = 5 * time.Minute
	DefaultReservationTTL = 1 * time.Minute
)

var namespaces = []string{nsBranches, nsDoctors, nsTimeslots, nsReservations}

type CachingConfig struct {
	ReferenceTTL   time.Duration
	ReservationTTL time.Duration
}

// CachingGateway serves reads from a Cache and drops every cached read after
// a successful mutation.
type CachingGateway struct {
	next  Gateway
	cache Cache
	cfg   CachingConfig
	log   *logger.Logger
}

func NewCachingGateway(next Gateway, cache Cache, cfg CachingConfig, log *logger.Logger) *CachingGateway {
	if cfg.ReferenceTTL <= 0 {
		cfg.ReferenceTTL = DefaultReferenceTTL
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = DefaultReservationTTL
	}
	return &CachingGateway{
		next:  next,
		cache: cache,
		cfg:   cfg,
		log:   log.Component("gateway_cache"),
	}
}

func (g *CachingGateway) ListBranches(ctx context.Context, organizationID string) ([]model.Branch, error) {
	return cached(ctx, g, nsBranches+organizationID, g.cfg.ReferenceTTL, func() ([]model.Branch, error) {
		return g.next.ListBranches(ctx, organizationID)
	})
}

func (g *CachingGateway) ListDoctors(ctx context.Context, branchID string) ([]model.Doctor, error) {
	if branchID == "" {
		return []model.Doctor{}, nil
	}
	return cached(ctx, g, nsDoctors+branchID, g.cfg.ReferenceTTL, func() ([]model.Doctor, error) {
		return g.next.ListDoctors(ctx, branchID)
	})
}

func (g *CachingGateway) ListTimeslots(ctx context.Context, branchID, doctorID string) ([]model.Timeslot, error) {
	if branchID == "" || doctorID == "" {
		return []model.Timeslot{}, nil
	}
	return cached(ctx, g, nsTimeslots+branchID+":"+doctorID, g.cfg.ReferenceTTL, func() ([]model.Timeslot, error) {
		return g.next.ListTimeslots(ctx, branchID, doctorID)
	})
}

func (g *CachingGateway) ListReservations(ctx context.Context, organizationID string) ([]model.Reservation, error) {
	return cached(ctx, g, nsReservations+organizationID, g.cfg.ReservationTTL, func() ([]model.Reservation, error) {
		return g.next.ListReservations(ctx, organizationID)
	})
}

func (g *CachingGateway) CreateReservation(ctx context.Context, input model.ReservationInput) error {
	if err := g.next.CreateReservation(ctx, input); err != nil {
		return err
	}
	g.Invalidate(ctx)
	return nil
}

func (g *CachingGateway) UpdateReservationStatus(ctx context.Context, id string, update model.StatusUpdate) error {
	if err := g.next.UpdateReservationStatus(ctx, id, update); err != nil {
		return err
	}
	g.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached read. Cache failures are logged, not returned.
func (g *CachingGateway) Invalidate(ctx context.Context) {
	for _, ns := range namespaces {
		if err := g.cache.DeletePrefix(ctx, ns); err != nil {
			g.log.Warn("Failed to invalidate cache namespace", "namespace", ns, "error", err)
		}
	}
	g.log.Debug("Gateway cache invalidated")
}

func cached[T any](ctx context.Context, g *CachingGateway, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if !cacheBypassed(ctx) {
		raw, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn("Cache read failed, falling back to gateway", "key", key, "error", err)
		}
		if ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			g.log.Warn("Discarding undecodable cache entry", "key", key)
		}
	}

	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		g.log.Warn("Failed to encode cache entry", "key", key, "error", err)
		return v, nil
	}
	if err := g.cache.Set(ctx, key, raw, ttl); err != nil {
		g.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return v, nil
}

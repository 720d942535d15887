package service

import (
	"context"
	"math"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// Ranker answers nearest-N and within-radius queries over ambulances and
// hospitals. Nearest-to-hospital results are cached for Tunables.CacheTTL.
type Ranker struct {
	ambulances core.AmbulanceRepository
	hospitals  core.HospitalRepository
	settings   *settings
	cache      *proximityCache
	now        func() time.Time
	log        log.Logger
}

func newRanker(ambulances core.AmbulanceRepository, hospitals core.HospitalRepository, cfg *settings) *Ranker {
	return &Ranker{
		ambulances: ambulances,
		hospitals:  hospitals,
		settings:   cfg,
		cache:      newProximityCache(),
		now:        time.Now,
		log:        log.WithName("ranker"),
	}
}

// NearestAmbulancesForHospital returns the limit closest AVAILABLE ambulances
// to a hospital. A cached answer computed for at least limit entries is
// reused and flagged FromCache.
func (r *Ranker) NearestAmbulancesForHospital(ctx context.Context, hospitalID int64, limit int) (*model.NearestAmbulances, error) {
	if limit <= 0 {
		return nil, util.Validation("limit must be positive, got %d", limit)
	}

	key := cacheKey{hospitalID: hospitalID, query: queryNearestAvailable}
	if e, ok := r.cache.get(key); ok && e.limit >= limit {
		metrics.ProximityCache.WithLabelValues("hit").Inc()
		res := e.result
		res.Ambulances = append([]model.AmbulanceDistance(nil), e.result.Ambulances[:min(limit, len(e.result.Ambulances))]...)
		res.FromCache = true
		return &res, nil
	}
	metrics.ProximityCache.WithLabelValues("miss").Inc()

	hospital, err := r.hospitals.Get(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	available, err := r.ambulances.List(ctx, model.AmbulanceAvailable)
	if err != nil {
		return nil, err
	}

	ranked := geo.Nearest(hospital.Location, ambulanceCandidates(available), limit)
	res := model.NearestAmbulances{
		HospitalID:   hospital.ID,
		HospitalName: hospital.Name,
		Ambulances:   r.ambulanceDistances(ranked, available),
		CalculatedAt: r.now().UTC(),
	}

	r.cache.put(key, cacheEntry{result: res, limit: limit}, r.settings.load().CacheTTL)
	r.log.Debug("Proximity cache filled", "key", key.String(), "results", len(res.Ambulances))

	out := res
	out.Ambulances = append([]model.AmbulanceDistance(nil), res.Ambulances...)
	return &out, nil
}

// AmbulancesWithinRadius returns every AVAILABLE ambulance within radius
// meters of a hospital, closest first. It is never cached.
func (r *Ranker) AmbulancesWithinRadius(ctx context.Context, hospitalID int64, radius float64) (*model.AmbulancesInRadius, error) {
	if radius <= 0 || math.IsNaN(radius) {
		return nil, util.Validation("radius must be positive, got %v", radius)
	}

	hospital, err := r.hospitals.Get(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	available, err := r.ambulances.List(ctx, model.AmbulanceAvailable)
	if err != nil {
		return nil, err
	}

	ranked := geo.WithinRadius(hospital.Location, ambulanceCandidates(available), radius)
	list := r.ambulanceDistances(ranked, available)
	return &model.AmbulancesInRadius{
		HospitalID: hospitalID,
		Radius:     radius,
		Ambulances: list,
		Total:      len(list),
	}, nil
}

// NearestHospitalsToPoint ranks OPERATIONAL hospitals by distance from p.
func (r *Ranker) NearestHospitalsToPoint(ctx context.Context, p geo.Point, limit int) ([]model.HospitalDistance, error) {
	if err := p.Validate(); err != nil {
		return nil, util.Validation("invalid location: %v", err)
	}
	if limit <= 0 {
		return nil, util.Validation("limit must be positive, got %d", limit)
	}

	hospitals, err := r.hospitals.List(ctx, model.HospitalOperational)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Hospital, len(hospitals))
	candidates := make([]geo.Candidate, 0, len(hospitals))
	for _, h := range hospitals {
		byID[h.ID] = h
		candidates = append(candidates, geo.Candidate{ID: h.ID, Location: h.Location})
	}

	ranked := geo.Nearest(p, candidates, limit)
	out := make([]model.HospitalDistance, 0, len(ranked))
	for _, rk := range ranked {
		h := byID[rk.ID]
		out = append(out, model.HospitalDistance{
			ID:               h.ID,
			Name:             h.Name,
			Capacity:         h.Capacity,
			Services:         h.Services,
			Status:           h.Status,
			Location:         h.Location,
			DistanceMeters:   rk.Meters,
			DistanceKm:       rk.Meters / 1000,
			EstimatedMinutes: r.estimatedMinutes(rk.Meters),
		})
	}
	return out, nil
}

// NearestAmbulancesToPoint ranks AVAILABLE ambulances by distance from p.
func (r *Ranker) NearestAmbulancesToPoint(ctx context.Context, p geo.Point, limit int) ([]model.AmbulanceDistance, error) {
	if err := p.Validate(); err != nil {
		return nil, util.Validation("invalid location: %v", err)
	}
	if limit <= 0 {
		return nil, util.Validation("limit must be positive, got %d", limit)
	}

	available, err := r.ambulances.List(ctx, model.AmbulanceAvailable)
	if err != nil {
		return nil, err
	}
	ranked := geo.Nearest(p, ambulanceCandidates(available), limit)
	return r.ambulanceDistances(ranked, available), nil
}

// Invalidate drops the cached results of one hospital, or of every hospital
// when hospitalID is nil.
func (r *Ranker) Invalidate(hospitalID *int64) int {
	return r.invalidate(hospitalID, "manual")
}

func (r *Ranker) invalidate(hospitalID *int64, reason string) int {
	var n int
	if hospitalID == nil {
		n = r.cache.clear()
	} else {
		n = r.cache.deleteHospital(*hospitalID)
	}
	if n > 0 {
		metrics.ProximityInvalidations.WithLabelValues(reason).Add(float64(n))
	}
	return n
}

// estimatedMinutes converts meters into minutes at the nominal speed.
func (r *Ranker) estimatedMinutes(meters float64) int {
	km := meters / 1000
	return int(math.Round(km / r.settings.load().NominalSpeedKmh * 60))
}

func (r *Ranker) ambulanceDistances(ranked []geo.Ranked, ambulances []*model.Ambulance) []model.AmbulanceDistance {
	byID := make(map[int64]*model.Ambulance, len(ambulances))
	for _, a := range ambulances {
		byID[a.ID] = a
	}

	out := make([]model.AmbulanceDistance, 0, len(ranked))
	for _, rk := range ranked {
		a := byID[rk.ID]
		out = append(out, model.AmbulanceDistance{
			ID:               a.ID,
			CallSign:         a.CallSign,
			Status:           a.Status,
			EquipmentLevel:   a.EquipmentLevel,
			VehicleType:      a.VehicleType,
			Location:         rk.Location,
			DistanceMeters:   rk.Meters,
			DistanceKm:       rk.Meters / 1000,
			EstimatedMinutes: r.estimatedMinutes(rk.Meters),
		})
	}
	return out
}

// ambulanceCandidates skips ambulances that have never reported a location.
func ambulanceCandidates(ambulances []*model.Ambulance) []geo.Candidate {
	out := make([]geo.Candidate, 0, len(ambulances))
	for _, a := range ambulances {
		if a.Location == nil {
			continue
		}
		out = append(out, geo.Candidate{ID: a.ID, Location: *a.Location})
	}
	return out
}

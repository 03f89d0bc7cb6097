package services

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

const (
	earthRadiusKM = 6371.0
	// One degree of latitude in kilometers, used for the bounding-box
	// pre-filter approximation.
	kmPerDegreeLat = 111.0

	minRadiusKM = 0.1
	maxRadiusKM = 100.0
	maxGeoLimit = 200
)

type NearbyStore struct {
	ID         uuid.UUID `gorm:"column:id" json:"id"`
	Name       string    `gorm:"column:name" json:"name"`
	Chain      string    `gorm:"column:chain" json:"chain"`
	Lat        float64   `gorm:"column:lat" json:"lat"`
	Lon        float64   `gorm:"column:lon" json:"lon"`
	DistanceKM float64   `gorm:"column:distance_km" json:"distance_km"`
}

type GeoService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeoService(db *gorm.DB, baseLog *logger.Logger) *GeoService {
	return &GeoService{db: db, log: baseLog.With("service", "GeoService")}
}

// NearestStores returns stores within radiusKM of the origin, ordered by
// distance then id, with distances rounded to two decimals. A store at
// exactly radiusKM is included. The query degrades through four tiers,
// most capable first:
//
//  1. earthdistance with a bounding-box pre-filter for index-friendly execution
//  2. earthdistance alone
//  3. great-circle distance spelled out in SQL trigonometry
//  4. bounding-box candidate fetch with the distance computed in-process
//
// Tier selection is by catching capability-absence errors from the
// backend, never by probing the schema first.
func (s *GeoService) NearestStores(ctx context.Context, lat, lon, radiusKM float64, limit, offset int) ([]NearbyStore, error) {
	const op = "geo.nearest_stores"

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, domain.NewError(domain.CodeValidation, op, "origin out of range", nil)
	}
	if radiusKM < minRadiusKM || radiusKM > maxRadiusKM {
		return nil, domain.NewError(domain.CodeValidation, op, "radius_km out of range", nil)
	}
	if limit < 1 || limit > maxGeoLimit {
		return nil, domain.NewError(domain.CodeValidation, op, "limit out of range", nil)
	}
	if offset < 0 {
		return nil, domain.NewError(domain.CodeValidation, op, "offset must be non-negative", nil)
	}

	box := boundingBox(lat, lon, radiusKM)

	var rows []NearbyStore
	err := runTiers(s.log, op, []queryTier{
		{name: "earthdistance_bbox", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT s.id, s.name, s.chain, s.lat, s.lon,
       earth_distance(ll_to_earth(?, ?), ll_to_earth(s.lat, s.lon)) / 1000.0 AS distance_km
FROM stores s
WHERE s.lat IS NOT NULL AND s.lon IS NOT NULL
  AND s.lat BETWEEN ? AND ?
  AND s.lon BETWEEN ? AND ?
  AND earth_distance(ll_to_earth(?, ?), ll_to_earth(s.lat, s.lon)) <= (? * 1000.0)
ORDER BY distance_km ASC, s.id ASC
LIMIT ? OFFSET ?
`, lat, lon, box.minLat, box.maxLat, box.minLon, box.maxLon, lat, lon, radiusKM, limit, offset).
				Scan(&rows).Error
		}},
		{name: "earthdistance", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT s.id, s.name, s.chain, s.lat, s.lon,
       earth_distance(ll_to_earth(?, ?), ll_to_earth(s.lat, s.lon)) / 1000.0 AS distance_km
FROM stores s
WHERE s.lat IS NOT NULL AND s.lon IS NOT NULL
  AND earth_distance(ll_to_earth(?, ?), ll_to_earth(s.lat, s.lon)) <= (? * 1000.0)
ORDER BY distance_km ASC, s.id ASC
LIMIT ? OFFSET ?
`, lat, lon, lat, lon, radiusKM, limit, offset).
				Scan(&rows).Error
		}},
		{name: "sql_haversine", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT * FROM (
  SELECT s.id, s.name, s.chain, s.lat, s.lon,
         2 * ? * asin(
           sqrt(
             pow(sin(radians((s.lat - ?) / 2)), 2) +
             cos(radians(?)) * cos(radians(s.lat)) *
             pow(sin(radians((s.lon - ?) / 2)), 2)
           )
         ) AS distance_km
  FROM stores s
  WHERE s.lat IS NOT NULL AND s.lon IS NOT NULL
) d
WHERE d.distance_km <= ?
ORDER BY d.distance_km ASC, d.id ASC
LIMIT ? OFFSET ?
`, earthRadiusKM, lat, lat, lon, radiusKM, limit, offset).
				Scan(&rows).Error
		}},
		{name: "in_process", run: func() error {
			rows = nil
			candidates, err := s.candidateStores(ctx, box)
			if err != nil {
				return err
			}
			rows = rankByDistance(candidates, lat, lon, radiusKM, limit, offset)
			return nil
		}},
	})
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].DistanceKM = round2(rows[i].DistanceKM)
	}
	return rows, nil
}

// candidateStores fetches the bounding-box pre-filtered rows for the
// in-process tier. Only plain comparisons are used, so any SQL backend
// can serve it.
func (s *GeoService) candidateStores(ctx context.Context, box latLonBox) ([]NearbyStore, error) {
	var candidates []NearbyStore
	err := s.db.WithContext(ctx).Raw(`
SELECT s.id, s.name, s.chain, s.lat, s.lon, 0.0 AS distance_km
FROM stores s
WHERE s.lat IS NOT NULL AND s.lon IS NOT NULL
  AND s.lat BETWEEN ? AND ?
  AND s.lon BETWEEN ? AND ?
`, box.minLat, box.maxLat, box.minLon, box.maxLon).
		Scan(&candidates).Error
	return candidates, err
}

// rankByDistance filters, sorts and paginates candidates in memory using
// the great-circle distance. Filtering is on the exact value; rounding
// happens only at the response edge.
func rankByDistance(candidates []NearbyStore, lat, lon, radiusKM float64, limit, offset int) []NearbyStore {
	within := make([]NearbyStore, 0, len(candidates))
	for _, c := range candidates {
		d := haversineKM(lat, lon, c.Lat, c.Lon)
		if d <= radiusKM {
			c.DistanceKM = d
			within = append(within, c)
		}
	}
	sort.Slice(within, func(i, j int) bool {
		if within[i].DistanceKM != within[j].DistanceKM {
			return within[i].DistanceKM < within[j].DistanceKM
		}
		return within[i].ID.String() < within[j].ID.String()
	})
	if offset >= len(within) {
		return []NearbyStore{}
	}
	within = within[offset:]
	if len(within) > limit {
		within = within[:limit]
	}
	return within
}

type latLonBox struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

// boundingBox approximates a radius around the origin in degrees: one
// degree of latitude is ~111 km, one degree of longitude shrinks with
// cos(latitude). The cosine is floored at 1e-6 so the box stays finite
// near the poles.
func boundingBox(lat, lon, radiusKM float64) latLonBox {
	dLat := radiusKM / kmPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	dLon := radiusKM / (kmPerDegreeLat * cosLat)
	return latLonBox{
		minLat: lat - dLat,
		maxLat: lat + dLat,
		minLon: lon - dLon,
		maxLon: lon + dLon,
	}
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dLat := p2 - p1
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/MeteoWatch/MW-Backend/internal/district"
	"github.com/MeteoWatch/MW-Backend/internal/warning"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// ErrOutOfCoverage marks a point no stored district contains. A defined empty
// result, not a fault.
var ErrOutOfCoverage = errors.New("no district covers this point")

// DistrictFinder is the slice of the district store the lookup needs.
type DistrictFinder interface {
	PointInDistrict(ctx context.Context, lon, lat float64) (*district.District, error)
}

// Result is a matched district plus its currently-valid warnings.
type Result struct {
	District district.District
	Warnings []warning.MeteoWarning
}

// Service answers point lookups. Read-only; concurrent calls never conflict.
type Service struct {
	db        *gorm.DB
	districts DistrictFinder
	clock     clockwork.Clock
}

func NewService(db *gorm.DB, districts DistrictFinder, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{db: db, districts: districts, clock: clock}
}

// Lookup finds the district containing (lon, lat) and the warnings associated
// with it whose validity window has not yet closed. Out-of-range coordinates
// simply match no district.
func (s *Service) Lookup(ctx context.Context, lon, lat float64) (*Result, error) {
	d, err := s.districts.PointInDistrict(ctx, lon, lat)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrOutOfCoverage
	}

	query := `
		SELECT w.id, w.name_of_event, w.grade, w.probability,
		       w.valid_from, w.valid_to, w.published,
		       w.content, w.comment, w.office
		FROM meteo.meteo_warnings w
		JOIN meteo.meteo_warning_districts wd ON wd.meteo_warning_id = w.id
		WHERE wd.district_code = $1
		  AND w.valid_to >= $2
		ORDER BY w.published DESC NULLS LAST
	`

	var warnings []warning.MeteoWarning
	err = s.db.WithContext(ctx).
		Raw(query, d.Code, s.clock.Now()).
		Scan(&warnings).Error
	if err != nil {
		return nil, fmt.Errorf("warnings for district %s: %w", d.Code, err)
	}

	return &Result{District: *d, Warnings: warnings}, nil
}

package district

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// BatchSize bounds how many districts one INSERT statement carries.
const BatchSize = 1000

// Store is the append-only access layer for district rows. No update or
// delete operations are exposed.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// PointInDistrict performs a PostGIS point-in-polygon query for the district
// whose boundary contains the given WGS84 coordinate. Returns nil when no
// district covers the point (outside national bounds). The GIST index on
// boundary makes ST_Contains an index lookup, never a full scan.
func (s *Store) PointInDistrict(ctx context.Context, lon, lat float64) (*District, error) {
	query := `
		SELECT code, internal_id, name, type
		FROM meteo.districts
		WHERE ST_Contains(
			boundary,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)
		)
		LIMIT 1
	`

	rows, err := s.db.WithContext(ctx).Raw(query, lon, lat).Rows()
	if err != nil {
		return nil, fmt.Errorf("point-in-district query failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var d District
	if err := rows.Scan(&d.Code, &d.InternalID, &d.Name, &d.Type); err != nil {
		return nil, fmt.Errorf("scan district: %w", err)
	}
	return &d, nil
}

// Exists reports whether a district with the given code is already stored.
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&District{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("district exists check: %w", err)
	}
	return count > 0, nil
}

// ExistingCodes reads every stored district code in one pass, so the loader
// can deduplicate without a query per feature.
func (s *Store) ExistingCodes(ctx context.Context) (map[string]struct{}, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&District{}).
		Pluck("code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("read district codes: %w", err)
	}

	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set, nil
}

// BulkInsert writes the districts in batches of BatchSize rows. Each batch is
// one atomic statement.
func (s *Store) BulkInsert(ctx context.Context, districts []District) error {
	if len(districts) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&districts, BatchSize).Error; err != nil {
		return fmt.Errorf("bulk insert districts: %w", err)
	}
	return nil
}

package geometry

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WGS84 is the SRID of the reference coordinate system all boundaries are
// stored in.
const WGS84 = 4326

// MultiPolygon is a GORM column type for PostGIS geometry(MultiPolygon,4326).
// SRID names the coordinate system Geom is expressed in before storage; writes
// go through ST_Transform so the stored value is always WGS84.
type MultiPolygon struct {
	Geom orb.MultiPolygon
	SRID int
}

// FromGeometry wraps a parsed geometry, promoting a bare Polygon to a
// single-element MultiPolygon. Storage requires multi-polygon uniformity,
// so any other geometry kind is rejected.
func FromGeometry(g orb.Geometry, srid int) (MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return MultiPolygon{Geom: orb.MultiPolygon{v}, SRID: srid}, nil
	case orb.MultiPolygon:
		return MultiPolygon{Geom: v, SRID: srid}, nil
	default:
		return MultiPolygon{}, fmt.Errorf("unsupported geometry type %T", g)
	}
}

// Scan decodes the EWKB (hex-encoded by PostGIS) a geometry column returns.
func (m *MultiPolygon) Scan(value interface{}) error {
	if value == nil {
		m.Geom = nil
		m.SRID = 0
		return nil
	}

	s := ewkb.Scanner(nil)
	if err := s.Scan(value); err != nil {
		return fmt.Errorf("scan multipolygon: %w", err)
	}

	mp, err := FromGeometry(s.Geometry, s.SRID)
	if err != nil {
		return fmt.Errorf("scan multipolygon: %w", err)
	}
	*m = mp
	return nil
}

// Value satisfies driver.Valuer for callers bypassing the GORM statement
// builder. Assumes the geometry is already in WGS84.
func (m MultiPolygon) Value() (driver.Value, error) {
	return ewkb.Value(m.Geom, WGS84).Value()
}

func (MultiPolygon) GormDataType() string {
	return "geometry(MultiPolygon,4326)"
}

// GormValue renders the insert expression. Reprojection to the reference CRS
// happens here, on the database side, using the source SRID carried by the
// value.
func (m MultiPolygon) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	srid := m.SRID
	if srid == 0 {
		srid = WGS84
	}
	return clause.Expr{
		SQL:  "ST_Multi(ST_Transform(ST_GeomFromText(?, ?), 4326))",
		Vars: []interface{}{wkt.MarshalString(m.Geom), srid},
	}
}

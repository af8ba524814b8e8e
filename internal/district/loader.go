package district

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeteoWatch/MW-Backend/internal/geometry"
	"github.com/paulmach/orb/geojson"
)

// Attribute names carried by the PRG boundary export.
const (
	attrCode        = "JPT_KOD_JE"
	attrInternalID  = "JPT_ID"
	attrName        = "JPT_NAZWA_"
	attrType        = "JPT_SJR_KO"
	attrVersionFrom = "WERSJA_OD"
	attrVersionTo   = "WERSJA_DO"
	attrValidFrom   = "WAZNY_OD"
	attrValidTo     = "WAZNY_DO"
	attrRegon       = "REGON"
)

var sourceTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Loader ingests a GeoJSON boundary export into the Store. Safe to re-run:
// only codes not yet stored are inserted.
type Loader struct {
	store *Store
	path  string
}

func NewLoader(store *Store, path string) *Loader {
	return &Loader{store: store, path: path}
}

// Load reads the boundary file and inserts every district not already stored.
// Returns false only for source-level failures (file missing or unreadable,
// ExistingCodes or the bulk insert failing); a malformed feature is logged and
// skipped without aborting the run.
func (l *Loader) Load(ctx context.Context) bool {
	log.Printf("[districts] loading boundary file %s", l.path)

	raw, err := os.ReadFile(l.path)
	if err != nil {
		log.Printf("[districts] could not read boundary file: %v", err)
		return false
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		log.Printf("[districts] could not parse boundary file: %v", err)
		return false
	}
	srid := sourceSRID(raw)

	existing, err := l.store.ExistingCodes(ctx)
	if err != nil {
		log.Printf("[districts] could not read existing codes: %v", err)
		return false
	}

	var toCreate []District
	for i, f := range fc.Features {
		d, err := buildDistrict(f, srid)
		if err != nil {
			log.Printf("[districts] skipping feature %d: %v", i, err)
			continue
		}
		if _, ok := existing[d.Code]; ok {
			continue
		}
		existing[d.Code] = struct{}{}
		toCreate = append(toCreate, *d)
	}

	if err := l.store.BulkInsert(ctx, toCreate); err != nil {
		log.Printf("[districts] bulk insert failed: %v", err)
		return false
	}

	log.Printf("[districts] loaded %d new districts (%d features in source)", len(toCreate), len(fc.Features))
	return true
}

// buildDistrict turns one boundary feature into a District row. Geometry keeps
// the source SRID; the store reprojects to WGS84 on write.
func buildDistrict(f *geojson.Feature, srid int) (*District, error) {
	code := stringProp(f.Properties, attrCode)
	if code == "" {
		return nil, fmt.Errorf("feature has no %s attribute", attrCode)
	}

	if f.Geometry == nil {
		return nil, fmt.Errorf("feature %s has no geometry", code)
	}
	boundary, err := geometry.FromGeometry(f.Geometry, srid)
	if err != nil {
		return nil, fmt.Errorf("feature %s: %w", code, err)
	}

	var regon *string
	if v := stringProp(f.Properties, attrRegon); v != "" {
		if len(v) < 7 {
			return nil, fmt.Errorf("feature %s: REGON %q shorter than 7 chars", code, v)
		}
		regon = &v
	}

	return &District{
		Code:        code,
		InternalID:  intProp(f.Properties, attrInternalID),
		Name:        stringProp(f.Properties, attrName),
		Type:        stringProp(f.Properties, attrType),
		VersionFrom: parseSourceTime(stringProp(f.Properties, attrVersionFrom)),
		VersionTo:   parseSourceTime(stringProp(f.Properties, attrVersionTo)),
		ValidFrom:   parseSourceTime(stringProp(f.Properties, attrValidFrom)),
		ValidTo:     parseSourceTime(stringProp(f.Properties, attrValidTo)),
		Regon:       regon,
		Boundary:    boundary,
	}, nil
}

// parseSourceTime parses a PRG date attribute. Absent, empty or unparseable
// values become "no value" rather than an error.
func parseSourceTime(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	for _, layout := range sourceTimeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}

// sourceSRID extracts the EPSG code from the legacy GeoJSON crs member
// ("urn:ogc:def:crs:EPSG::2180" or "EPSG:2180"). Defaults to WGS84 when the
// member is absent or unrecognised.
func sourceSRID(raw []byte) int {
	var envelope struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.CRS == nil {
		return geometry.WGS84
	}

	name := envelope.CRS.Properties.Name
	idx := strings.LastIndex(name, ":")
	if idx < 0 {
		return geometry.WGS84
	}
	srid, err := strconv.Atoi(name[idx+1:])
	if err != nil || srid <= 0 {
		return geometry.WGS84
	}
	return srid
}

func stringProp(props geojson.Properties, key string) string {
	v, ok := props[key].(string)
	if !ok {
		return ""
	}
	return v
}

func intProp(props geojson.Properties, key string) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

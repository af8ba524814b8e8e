package district

import (
	"time"

	"github.com/MeteoWatch/MW-Backend/internal/geometry"
)

// District is an immutable reference row for one administrative district
// (powiat). Rows are created once by the loader and never updated or deleted.
type District struct {
	Code        string                `gorm:"primaryKey;size:4" json:"code"`
	InternalID  int                   `json:"internal_id"`
	Name        string                `gorm:"size:100" json:"name"`
	Type        string                `gorm:"size:100" json:"type"`
	VersionFrom *time.Time            `json:"version_from"`
	VersionTo   *time.Time            `json:"version_to"`
	ValidFrom   *time.Time            `json:"valid_from"`
	ValidTo     *time.Time            `json:"valid_to"`
	Regon       *string               `gorm:"size:14;check:regon IS NULL OR length(regon) >= 7" json:"regon"`
	Boundary    geometry.MultiPolygon `gorm:"type:geometry(MultiPolygon,4326)" json:"-"`
}

func (District) TableName() string {
	return "meteo.districts"
}

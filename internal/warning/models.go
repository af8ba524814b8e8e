package warning

import (
	"time"

	"github.com/MeteoWatch/MW-Backend/internal/district"
)

// MeteoWarning is one live advisory from the IMGW feed, keyed by the feed's
// own id. At most one live row exists per feed id; the archiver moves the row
// to MeteoWarningArchive once valid_to passes.
type MeteoWarning struct {
	ID          string              `gorm:"primaryKey;size:100" json:"id"`
	NameOfEvent string              `gorm:"size:100" json:"name_of_event"`
	Grade       string              `gorm:"size:3" json:"grade"`
	Probability string              `gorm:"size:3" json:"probability"`
	ValidFrom   *time.Time          `json:"valid_from"`
	ValidTo     *time.Time          `gorm:"index" json:"valid_to"`
	Published   *time.Time          `json:"published"`
	Content     string              `gorm:"type:text" json:"content"`
	Comment     string              `gorm:"type:text" json:"comment"`
	Office      string              `gorm:"size:255" json:"office"`
	Districts   []district.District `gorm:"many2many:meteo.meteo_warning_districts;" json:"-"`
}

func (MeteoWarning) TableName() string {
	return "meteo.meteo_warnings"
}

// MeteoWarningArchive mirrors MeteoWarning for rows past their validity
// window. Presence here means the warning is no longer live.
type MeteoWarningArchive struct {
	ID          string              `gorm:"primaryKey;size:100" json:"id"`
	NameOfEvent string              `gorm:"size:100" json:"name_of_event"`
	Grade       string              `gorm:"size:3" json:"grade"`
	Probability string              `gorm:"size:3" json:"probability"`
	ValidFrom   *time.Time          `json:"valid_from"`
	ValidTo     *time.Time          `json:"valid_to"`
	Published   *time.Time          `json:"published"`
	Content     string              `gorm:"type:text" json:"content"`
	Comment     string              `gorm:"type:text" json:"comment"`
	Office      string              `gorm:"size:255" json:"office"`
	Districts   []district.District `gorm:"many2many:meteo.meteo_warning_archive_districts;" json:"-"`
}

func (MeteoWarningArchive) TableName() string {
	return "meteo.meteo_warning_archives"
}

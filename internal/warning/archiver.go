package warning

import (
	"context"
	"log"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Archiver sweeps live warnings past their validity window into the archive
// table. Each warning moves in its own transaction, so one failure never
// blocks the rest of the sweep. Re-running is safe: archived warnings were
// deleted from the live table and are no longer selected.
type Archiver struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewArchiver(db *gorm.DB, clock clockwork.Clock) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{db: db, clock: clock}
}

// ArchiveExpired moves every live warning with valid_to strictly in the past
// to the archive, carrying its district associations along.
func (a *Archiver) ArchiveExpired(ctx context.Context) {
	var expired []MeteoWarning
	err := a.db.WithContext(ctx).
		Preload("Districts", func(db *gorm.DB) *gorm.DB {
			return db.Select("code")
		}).
		Where("valid_to < ?", a.clock.Now()).
		Find(&expired).Error
	if err != nil {
		log.Printf("[archiver] could not select expired warnings: %v", err)
		return
	}

	log.Printf("[archiver] found %d warnings to archive", len(expired))

	for _, w := range expired {
		if err := a.archiveOne(ctx, w); err != nil {
			log.Printf("[archiver] could not archive warning %s: %v", w.ID, err)
		}
	}
}

func (a *Archiver) archiveOne(ctx context.Context, w MeteoWarning) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		archived := MeteoWarningArchive{
			ID:          w.ID,
			NameOfEvent: w.NameOfEvent,
			Grade:       w.Grade,
			Probability: w.Probability,
			ValidFrom:   w.ValidFrom,
			ValidTo:     w.ValidTo,
			Published:   w.Published,
			Content:     w.Content,
			Comment:     w.Comment,
			Office:      w.Office,
		}

		// Create-or-overwrite keyed on id, so a retried sweep is idempotent.
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Omit("Districts").Create(&archived).Error
		if err != nil {
			return err
		}

		if err := tx.Model(&archived).Association("Districts").Clear(); err != nil {
			return err
		}
		if len(w.Districts) > 0 {
			if err := tx.Model(&archived).Association("Districts").Append(&w.Districts); err != nil {
				return err
			}
		}

		if err := tx.Model(&w).Association("Districts").Clear(); err != nil {
			return err
		}
		return tx.Delete(&w).Error
	})
}

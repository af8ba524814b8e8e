package warning

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/MeteoWatch/MW-Backend/internal/district"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var feedTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Feed abstracts the warning-feed fetch so the reconciler can be exercised
// without the network.
type Feed interface {
	Fetch(ctx context.Context) ([]FeedEvent, error)
}

// Reconciler keeps the live warning table consistent with the external feed.
// Each feed event is processed in its own transaction: the feed is untrusted,
// and one malformed event must not lose updates for the rest.
type Reconciler struct {
	db   *gorm.DB
	feed Feed
}

func NewReconciler(db *gorm.DB, feed Feed) *Reconciler {
	return &Reconciler{db: db, feed: feed}
}

// Reconcile fetches the feed and applies a create / update / skip decision
// per event. A transport failure yields an empty cycle; the next scheduled
// run retries naturally.
func (r *Reconciler) Reconcile(ctx context.Context) {
	events, err := r.feed.Fetch(ctx)
	if err != nil {
		log.Printf("[warnings] feed fetch failed, skipping cycle: %v", err)
		return
	}

	for _, event := range events {
		var existing MeteoWarning
		err := r.db.WithContext(ctx).
			Preload("Districts", func(db *gorm.DB) *gorm.DB {
				return db.Select("code")
			}).
			First(&existing, "id = ?", event.ID).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			r.createWarning(ctx, event)
		case err != nil:
			log.Printf("[warnings] lookup of warning %s failed: %v", event.ID, err)
		case hasChanged(&existing, event):
			log.Printf("[warnings] warning %s changed, updating", event.ID)
			r.updateWarning(ctx, event)
		}
	}
}

func (r *Reconciler) createWarning(ctx context.Context, event FeedEvent) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := MeteoWarning{
			ID:          event.ID,
			NameOfEvent: event.NameOfEvent,
			Grade:       event.Grade,
			Probability: event.Probability,
			ValidFrom:   parseFeedTime(event.ValidFrom),
			ValidTo:     parseFeedTime(event.ValidTo),
			Published:   parseFeedTime(event.Published),
			Content:     event.Content,
			Comment:     event.Comment,
			Office:      event.Office,
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}

		districts, err := resolveDistricts(tx, event.Teryt)
		if err != nil {
			return err
		}
		if len(districts) == 0 {
			return nil
		}
		return tx.Model(&w).Association("Districts").Append(&districts)
	})
	if err != nil {
		log.Printf("[warnings] could not save warning %s: %v", event.ID, err)
	}
}

func (r *Reconciler) updateWarning(ctx context.Context, event FeedEvent) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := MeteoWarning{ID: event.ID}

		// Map form so cleared dates overwrite as NULL.
		updates := map[string]interface{}{
			"name_of_event": event.NameOfEvent,
			"grade":         event.Grade,
			"probability":   event.Probability,
			"valid_from":    parseFeedTime(event.ValidFrom),
			"valid_to":      parseFeedTime(event.ValidTo),
			"published":     parseFeedTime(event.Published),
			"content":       event.Content,
			"comment":       event.Comment,
			"office":        event.Office,
		}
		if err := tx.Model(&w).Updates(updates).Error; err != nil {
			return err
		}

		// Membership is replaced wholesale, never incrementally diffed.
		if err := tx.Model(&w).Association("Districts").Clear(); err != nil {
			return err
		}
		districts, err := resolveDistricts(tx, event.Teryt)
		if err != nil {
			return err
		}
		if len(districts) == 0 {
			return nil
		}
		return tx.Model(&w).Association("Districts").Append(&districts)
	})
	if err != nil {
		log.Printf("[warnings] could not update warning %s: %v", event.ID, err)
	}
}

// resolveDistricts maps feed district codes to stored rows. Codes unknown to
// the district store are silently dropped; the association is the
// intersection, not an error.
func resolveDistricts(tx *gorm.DB, codes []string) ([]district.District, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var districts []district.District
	err := tx.Raw(
		"SELECT code FROM meteo.districts WHERE code = ANY($1)",
		pq.Array(codes),
	).Scan(&districts).Error
	if err != nil {
		return nil, err
	}
	return districts, nil
}

// hasChanged compares every scalar field plus the set of associated district
// codes against the feed event. Explicit field list, no reflection.
func hasChanged(existing *MeteoWarning, event FeedEvent) bool {
	current := make(map[string]struct{}, len(existing.Districts))
	for _, d := range existing.Districts {
		current[d.Code] = struct{}{}
	}
	incoming := make(map[string]struct{}, len(event.Teryt))
	for _, code := range event.Teryt {
		incoming[code] = struct{}{}
	}

	return existing.NameOfEvent != event.NameOfEvent ||
		existing.Grade != event.Grade ||
		existing.Probability != event.Probability ||
		!timesEqual(existing.ValidFrom, parseFeedTime(event.ValidFrom)) ||
		!timesEqual(existing.ValidTo, parseFeedTime(event.ValidTo)) ||
		!timesEqual(existing.Published, parseFeedTime(event.Published)) ||
		existing.Content != event.Content ||
		existing.Comment != event.Comment ||
		existing.Office != event.Office ||
		!codeSetsEqual(current, incoming)
}

// parseFeedTime parses a feed date-time leniently: absent or unparseable
// values become "no value", never an error.
func parseFeedTime(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func codeSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for code := range a {
		if _, ok := b[code]; !ok {
			return false
		}
	}
	return true
}

package warning_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MeteoWatch/MW-Backend/internal/db"
	"github.com/MeteoWatch/MW-Backend/internal/district"
	"github.com/MeteoWatch/MW-Backend/internal/geometry"
	"github.com/MeteoWatch/MW-Backend/internal/warning"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"gorm.io/gorm"
)

var dbAvailable bool

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if os.Getenv("DATABASE_URL") == "" {
		// No database available — skip all integration tests gracefully.
		os.Exit(m.Run())
	}

	db.Connect()
	dbAvailable = true
	district.Init()
	warning.Init()

	os.Exit(m.Run())
}

func requireDB(t *testing.T) {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
}

// feedStub feeds canned events to the reconciler.
type feedStub struct {
	events []warning.FeedEvent
}

func (f feedStub) Fetch(ctx context.Context) ([]warning.FeedEvent, error) {
	return f.events, nil
}

func createTestDistrict(t *testing.T, code string, minLon, minLat float64) {
	t.Helper()

	d := district.District{
		Code: code,
		Name: "powiat " + code,
		Type: "POW",
		Boundary: geometry.MultiPolygon{
			Geom: orb.MultiPolygon{{{
				{minLon, minLat}, {minLon + 0.2, minLat},
				{minLon + 0.2, minLat + 0.2}, {minLon, minLat + 0.2},
				{minLon, minLat},
			}}},
			SRID: geometry.WGS84,
		},
	}
	if err := db.DB.Create(&d).Error; err != nil {
		t.Fatalf("failed to create test district: %v", err)
	}

	t.Cleanup(func() {
		db.DB.Exec("DELETE FROM meteo.meteo_warning_districts WHERE district_code = ?", code)
		db.DB.Exec("DELETE FROM meteo.meteo_warning_archive_districts WHERE district_code = ?", code)
		db.DB.Where("code = ?", code).Delete(&district.District{})
	})
}

func cleanupWarning(t *testing.T, id string) {
	t.Helper()
	t.Cleanup(func() {
		db.DB.Exec("DELETE FROM meteo.meteo_warning_districts WHERE meteo_warning_id = ?", id)
		db.DB.Exec("DELETE FROM meteo.meteo_warning_archive_districts WHERE meteo_warning_archive_id = ?", id)
		db.DB.Where("id = ?", id).Delete(&warning.MeteoWarning{})
		db.DB.Where("id = ?", id).Delete(&warning.MeteoWarningArchive{})
	})
}

func testEvent(id string, teryt ...string) warning.FeedEvent {
	return warning.FeedEvent{
		ID:          id,
		NameOfEvent: "Storm",
		Grade:       "2",
		Probability: "80",
		ValidFrom:   "2024-06-01 10:00:00",
		ValidTo:     "2030-06-02 10:00:00",
		Published:   "2024-06-01 08:00:00",
		Content:     "Heavy storms expected.",
		Comment:     "none",
		Office:      "IMGW Krakow",
		Teryt:       teryt,
	}
}

func associatedCodes(t *testing.T, id string) []string {
	t.Helper()
	var codes []string
	err := db.DB.Raw(
		"SELECT district_code FROM meteo.meteo_warning_districts WHERE meteo_warning_id = ? ORDER BY district_code", id,
	).Scan(&codes).Error
	if err != nil {
		t.Fatalf("read associations: %v", err)
	}
	return codes
}

func TestReconcile_CreatesUnseenWarning(t *testing.T) {
	requireDB(t)
	createTestDistrict(t, "9911", 154.0, -40.0)

	id := uuid.New().String()
	cleanupWarning(t, id)

	r := warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{testEvent(id, "9911")}})
	r.Reconcile(context.Background())

	var w warning.MeteoWarning
	if err := db.DB.First(&w, "id = ?", id).Error; err != nil {
		t.Fatalf("warning was not created: %v", err)
	}
	if w.NameOfEvent != "Storm" || w.Grade != "2" || w.Probability != "80" {
		t.Errorf("fields not copied: %+v", w)
	}
	if w.ValidTo == nil || w.ValidTo.Year() != 2030 {
		t.Errorf("valid_to not parsed: %v", w.ValidTo)
	}

	codes := associatedCodes(t, id)
	if len(codes) != 1 || codes[0] != "9911" {
		t.Errorf("expected association to 9911, got %v", codes)
	}
}

func TestReconcile_UnknownTerytSilentlyDropped(t *testing.T) {
	requireDB(t)

	id := uuid.New().String()
	cleanupWarning(t, id)

	r := warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{testEvent(id, "0000")}})
	r.Reconcile(context.Background())

	var w warning.MeteoWarning
	if err := db.DB.First(&w, "id = ?", id).Error; err != nil {
		t.Fatalf("warning was not created: %v", err)
	}
	if codes := associatedCodes(t, id); len(codes) != 0 {
		t.Errorf("expected no associations, got %v", codes)
	}
}

func TestReconcile_SecondRunIsNoOp(t *testing.T) {
	requireDB(t)
	createTestDistrict(t, "9912", 155.0, -40.0)

	id := uuid.New().String()
	cleanupWarning(t, id)

	feed := feedStub{events: []warning.FeedEvent{testEvent(id, "9912")}}
	r := warning.NewReconciler(db.DB, feed)
	r.Reconcile(context.Background())

	var before warning.MeteoWarning
	if err := db.DB.First(&before, "id = ?", id).Error; err != nil {
		t.Fatalf("warning was not created: %v", err)
	}

	r.Reconcile(context.Background())

	var count int64
	db.DB.Model(&warning.MeteoWarning{}).Where("id = ?", id).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
	var after warning.MeteoWarning
	if err := db.DB.First(&after, "id = ?", id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.NameOfEvent != before.NameOfEvent || after.Content != before.Content {
		t.Errorf("no-op run changed fields: %+v vs %+v", before, after)
	}
	if codes := associatedCodes(t, id); len(codes) != 1 || codes[0] != "9912" {
		t.Errorf("no-op run changed associations: %v", codes)
	}
}

func TestReconcile_UpdatesChangedEvent(t *testing.T) {
	requireDB(t)
	createTestDistrict(t, "9913", 156.0, -40.0)
	createTestDistrict(t, "9914", 157.0, -40.0)

	id := uuid.New().String()
	cleanupWarning(t, id)

	r := warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{testEvent(id, "9913")}})
	r.Reconcile(context.Background())

	changed := testEvent(id, "9914")
	changed.NameOfEvent = "Frost"
	r = warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{changed}})
	r.Reconcile(context.Background())

	var w warning.MeteoWarning
	if err := db.DB.First(&w, "id = ?", id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if w.NameOfEvent != "Frost" {
		t.Errorf("name_of_event not updated: %q", w.NameOfEvent)
	}
	if codes := associatedCodes(t, id); len(codes) != 1 || codes[0] != "9914" {
		t.Errorf("association not replaced wholesale: %v", codes)
	}
}

func TestReconcile_BadEventDoesNotBlockOthers(t *testing.T) {
	requireDB(t)

	badID := uuid.New().String()
	goodID := uuid.New().String()
	cleanupWarning(t, badID)
	cleanupWarning(t, goodID)

	bad := testEvent(badID)
	bad.Grade = "overflowing" // exceeds varchar(3), fails its own transaction

	r := warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{bad, testEvent(goodID)}})
	r.Reconcile(context.Background())

	var w warning.MeteoWarning
	if err := db.DB.First(&w, "id = ?", goodID).Error; err != nil {
		t.Fatalf("valid event was not stored: %v", err)
	}
	err := db.DB.First(&warning.MeteoWarning{}, "id = ?", badID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected bad event to be absent, got err=%v", err)
	}
}

func TestArchiveExpired(t *testing.T) {
	requireDB(t)
	createTestDistrict(t, "9915", 158.0, -40.0)

	expiredID := uuid.New().String()
	liveID := uuid.New().String()
	cleanupWarning(t, expiredID)
	cleanupWarning(t, liveID)

	expired := testEvent(expiredID, "9915")
	expired.ValidTo = time.Now().UTC().Add(-time.Hour).Format("2006-01-02 15:04:05")

	r := warning.NewReconciler(db.DB, feedStub{events: []warning.FeedEvent{expired, testEvent(liveID, "9915")}})
	r.Reconcile(context.Background())

	a := warning.NewArchiver(db.DB, nil)
	a.ArchiveExpired(context.Background())

	// Expired: gone from live, present in archive with associations intact.
	err := db.DB.First(&warning.MeteoWarning{}, "id = ?", expiredID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected expired warning removed from live table, got err=%v", err)
	}
	var archived warning.MeteoWarningArchive
	if err := db.DB.First(&archived, "id = ?", expiredID).Error; err != nil {
		t.Fatalf("expired warning not archived: %v", err)
	}
	if archived.NameOfEvent != "Storm" || archived.Office != "IMGW Krakow" {
		t.Errorf("scalar fields not copied to archive: %+v", archived)
	}
	var archCodes []string
	err = db.DB.Raw(
		"SELECT district_code FROM meteo.meteo_warning_archive_districts WHERE meteo_warning_archive_id = ?", expiredID,
	).Scan(&archCodes).Error
	if err != nil || len(archCodes) != 1 || archCodes[0] != "9915" {
		t.Errorf("archive associations wrong: %v (err=%v)", archCodes, err)
	}

	// Live: untouched.
	if err := db.DB.First(&warning.MeteoWarning{}, "id = ?", liveID).Error; err != nil {
		t.Errorf("future warning should be untouched: %v", err)
	}

	// Re-running the sweep is safe.
	a.ArchiveExpired(context.Background())
	if err := db.DB.First(&warning.MeteoWarningArchive{}, "id = ?", expiredID).Error; err != nil {
		t.Errorf("archive row lost on re-run: %v", err)
	}
}

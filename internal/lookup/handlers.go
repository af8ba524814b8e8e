package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Finder is what the HTTP layer needs from the lookup service.
type Finder interface {
	Lookup(ctx context.Context, lon, lat float64) (*Result, error)
}

type Handler struct {
	service Finder
}

func NewHandler(service Finder) *Handler {
	return &Handler{service: service}
}

type warningOut struct {
	ID          string  `json:"id"`
	NameOfEvent string  `json:"name_of_event"`
	ValidFrom   *string `json:"valid_from"`
	ValidTo     *string `json:"valid_to"`
	Published   *string `json:"published"`
	Content     string  `json:"content"`
	Comment     string  `json:"comment"`
	Office      string  `json:"office"`
	Grade       string  `json:"grade"`
}

type districtOut struct {
	DistrictCode string       `json:"district_code"`
	Name         string       `json:"name"`
	Lon          float64      `json:"lon"`
	Lat          float64      `json:"lat"`
	Warnings     []warningOut `json:"warnings"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// MeteoWarningsHandler serves GET /meteo_warnings?lon=&lat=.
func (h *Handler) MeteoWarningsHandler(w http.ResponseWriter, r *http.Request) {
	lonParam := r.URL.Query().Get("lon")
	latParam := r.URL.Query().Get("lat")
	if lonParam == "" || latParam == "" {
		writeError(w, http.StatusBadRequest, "lon and lat are required")
		return
	}

	lon, lonErr := strconv.ParseFloat(lonParam, 64)
	lat, latErr := strconv.ParseFloat(latParam, 64)
	if lonErr != nil || latErr != nil {
		writeError(w, http.StatusBadRequest,
			"lon or lat or both are in incorrect format. Remember that both must be numbers.")
		return
	}

	result, err := h.service.Lookup(r.Context(), lon, lat)
	if errors.Is(err, ErrOutOfCoverage) {
		writeError(w, http.StatusNotFound, "location is outside the covered territory")
		return
	}
	if err != nil {
		log.Printf("[lookup] lookup (%f, %f) failed: %v", lon, lat, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := districtOut{
		DistrictCode: result.District.Code,
		Name:         result.District.Name,
		Lon:          lon,
		Lat:          lat,
		Warnings:     make([]warningOut, 0, len(result.Warnings)),
	}
	for _, warn := range result.Warnings {
		out.Warnings = append(out.Warnings, warningOut{
			ID:          warn.ID,
			NameOfEvent: warn.NameOfEvent,
			ValidFrom:   formatTime(warn.ValidFrom),
			ValidTo:     formatTime(warn.ValidTo),
			Published:   formatTime(warn.Published),
			Content:     warn.Content,
			Comment:     warn.Comment,
			Office:      warn.Office,
			Grade:       warn.Grade,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// formatTime renders warning timestamps at minute precision, null when absent.
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02 15:04")
	return &s
}

package search

import (
	"strings"

	"aircraft_logger/internal/models"
)

// Matches reports whether term is a case-insensitive substring of the record's
// A/C#, Monument# or MO#. A record without an MO# never matches on it. The
// empty term matches everything.
func Matches(rec *models.Record, term string) bool {
	needle := strings.ToLower(term)
	if needle == "" {
		return true
	}

	if strings.Contains(strings.ToLower(rec.ACNumber), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.MonumentNumber), needle) {
		return true
	}
	return rec.HasMONumber() && strings.Contains(strings.ToLower(rec.MONumber), needle)
}

// Filter returns the records matching term, keeping their order
func Filter(recs []*models.Record, term string) []*models.Record {
	out := make([]*models.Record, 0, len(recs))
	for _, rec := range recs {
		if Matches(rec, term) {
			out = append(out, rec)
		}
	}
	return out
}

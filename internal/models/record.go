package models

import (
	"fmt"
	"strings"
	"time"
)

// AircraftModel is the airframe family a record belongs to
type AircraftModel string

const (
	ModelGlobal     AircraftModel = "Global"
	ModelChallenger AircraftModel = "Challenger"
)

// AircraftModels lists the accepted models in display order
var AircraftModels = []AircraftModel{ModelGlobal, ModelChallenger}

// ParseAircraftModel accepts a model name, ignoring case and surrounding whitespace
func ParseAircraftModel(s string) (AircraftModel, error) {
	for _, m := range AircraftModels {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown aircraft model %q", s)
}

// Valid reports whether m is one of the known models
func (m AircraftModel) Valid() bool {
	for _, known := range AircraftModels {
		if m == known {
			return true
		}
	}
	return false
}

// DateLayout is the layout of StartDate and FinishDate
const DateLayout = "2006-01-02"

// Record is one aircraft maintenance/product entry
type Record struct {
	ID             string        `json:"id"`
	AircraftModel  AircraftModel `json:"aircraftModel"`
	ACNumber       string        `json:"acNumber"`           // A/C#
	MONumber       string        `json:"moNumber,omitempty"` // MO#, empty when absent
	MonumentNumber string        `json:"monumentNumber"`
	StartDate      string        `json:"startDate"`
	FinishDate     string        `json:"finishDate"`
	Issues         string        `json:"issues"`
	Pictures       []Picture     `json:"pictures"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// RecordFields is the editable part of a Record: everything except ID and CreatedAt
type RecordFields struct {
	AircraftModel  AircraftModel `json:"aircraftModel"`
	ACNumber       string        `json:"acNumber"`
	MONumber       string        `json:"moNumber,omitempty"`
	MonumentNumber string        `json:"monumentNumber"`
	StartDate      string        `json:"startDate"`
	FinishDate     string        `json:"finishDate"`
	Issues         string        `json:"issues"`
	Pictures       []Picture     `json:"pictures"`
	Notes          string        `json:"notes"`
}

// Fields returns a copy of the editable fields of r
func (r *Record) Fields() RecordFields {
	return RecordFields{
		AircraftModel:  r.AircraftModel,
		ACNumber:       r.ACNumber,
		MONumber:       r.MONumber,
		MonumentNumber: r.MonumentNumber,
		StartDate:      r.StartDate,
		FinishDate:     r.FinishDate,
		Issues:         r.Issues,
		Pictures:       ClonePictures(r.Pictures),
		Notes:          r.Notes,
	}
}

// Apply replaces every editable field of r. ID and CreatedAt are left alone.
func (r *Record) Apply(f RecordFields) {
	r.AircraftModel = f.AircraftModel
	r.ACNumber = f.ACNumber
	r.MONumber = f.MONumber
	r.MonumentNumber = f.MonumentNumber
	r.StartDate = f.StartDate
	r.FinishDate = f.FinishDate
	r.Issues = f.Issues
	r.Pictures = ClonePictures(f.Pictures)
	r.Notes = f.Notes
}

// NewRecord builds a record from fields with the given identity
func NewRecord(id string, createdAt time.Time, f RecordFields) *Record {
	r := &Record{
		ID:        id,
		CreatedAt: createdAt.Truncate(time.Millisecond),
	}
	r.Apply(f)
	return r
}

// HasMONumber reports whether a work-order number was recorded
func (r *Record) HasMONumber() bool {
	return r.MONumber != ""
}

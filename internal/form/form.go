// Package form implements the record entry form: field state, validation and
// the attached picture list, independent of how the form is rendered.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"aircraft_logger/internal/models"
)

// DefaultMaxPictures is the picture cap used when none is configured
const DefaultMaxPictures = 5

// State is the lifecycle position of a Form
type State int

const (
	StateNew State = iota
	StateEditing
	StateValidating
	StateError
	StateSubmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateError:
		return "error"
	case StateSubmitting:
		return "submitting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Field names a form input
type Field string

const (
	FieldAircraftModel  Field = "aircraftModel"
	FieldACNumber       Field = "acNumber"
	FieldMONumber       Field = "moNumber"
	FieldMonumentNumber Field = "monumentNumber"
	FieldStartDate      Field = "startDate"
	FieldFinishDate     Field = "finishDate"
	FieldIssues         Field = "issues"
	FieldNotes          Field = "notes"
)

// Fields lists every text field in form order
var Fields = []Field{
	FieldAircraftModel, FieldACNumber, FieldMONumber, FieldMonumentNumber,
	FieldStartDate, FieldFinishDate, FieldIssues, FieldNotes,
}

var ErrClosed = errors.New("form is closed")

// ValidationError maps each invalid field to the message shown next to it
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+e.Fields[Field(k)])
	}
	return "invalid record: " + strings.Join(msgs, "; ")
}

// Form holds the state of one add or edit session
type Form struct {
	state   State
	editing *models.Record
	fields  models.RecordFields
	errors  map[Field]string
	images  *ImageInput
}

// New returns an empty form for a new record
func New(maxPictures int) *Form {
	return &Form{
		state:  StateNew,
		fields: models.RecordFields{AircraftModel: models.ModelGlobal},
		errors: map[Field]string{},
		images: NewImageInput(nil, maxPictures),
	}
}

// Edit returns a form pre-filled from an existing record
func Edit(rec *models.Record, maxPictures int) *Form {
	fields := rec.Fields()
	return &Form{
		state:   StateNew,
		editing: rec,
		fields:  fields,
		errors:  map[Field]string{},
		images:  NewImageInput(fields.Pictures, maxPictures),
	}
}

func (f *Form) State() State { return f.state }

// IsEdit reports whether the form edits an existing record
func (f *Form) IsEdit() bool { return f.editing != nil }

// Editing returns the record being edited, or nil for a new record
func (f *Form) Editing() *models.Record { return f.editing }

// Images returns the picture list attached to the form
func (f *Form) Images() *ImageInput { return f.images }

// Errors returns the current per-field messages
func (f *Form) Errors() map[Field]string {
	out := make(map[Field]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Error returns the message for one field, or ""
func (f *Form) Error(field Field) string { return f.errors[field] }

// Value returns the current text of a field
func (f *Form) Value(field Field) string {
	switch field {
	case FieldAircraftModel:
		return string(f.fields.AircraftModel)
	case FieldACNumber:
		return f.fields.ACNumber
	case FieldMONumber:
		return f.fields.MONumber
	case FieldMonumentNumber:
		return f.fields.MonumentNumber
	case FieldStartDate:
		return f.fields.StartDate
	case FieldFinishDate:
		return f.fields.FinishDate
	case FieldIssues:
		return f.fields.Issues
	case FieldNotes:
		return f.fields.Notes
	}
	return ""
}

// Set changes one field and clears any message attached to it
func (f *Form) Set(field Field, value string) error {
	if f.state == StateClosed {
		return ErrClosed
	}

	switch field {
	case FieldAircraftModel:
		if m, err := models.ParseAircraftModel(value); err == nil {
			f.fields.AircraftModel = m
		} else {
			f.fields.AircraftModel = models.AircraftModel(value)
		}
	case FieldACNumber:
		f.fields.ACNumber = value
	case FieldMONumber:
		f.fields.MONumber = value
	case FieldMonumentNumber:
		f.fields.MonumentNumber = value
	case FieldStartDate:
		f.fields.StartDate = value
	case FieldFinishDate:
		f.fields.FinishDate = value
	case FieldIssues:
		f.fields.Issues = value
	case FieldNotes:
		f.fields.Notes = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	delete(f.errors, field)
	f.state = StateEditing
	return nil
}

// SetAll sets every field present in values; absent keys are left unchanged
func (f *Form) SetAll(values map[Field]string) error {
	for _, field := range Fields {
		v, ok := values[field]
		if !ok {
			continue
		}
		if err := f.Set(field, v); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates the form. On success it moves to submitting and returns the
// full field set for the caller to persist. On failure it returns a
// *ValidationError and the form stays open for editing.
func (f *Form) Submit() (models.RecordFields, error) {
	if f.state == StateClosed {
		return models.RecordFields{}, ErrClosed
	}

	f.state = StateValidating
	fields := f.fields
	fields.Pictures = f.images.Pictures()

	if errs := Validate(fields); len(errs) > 0 {
		f.errors = errs
		f.state = StateError
		return models.RecordFields{}, &ValidationError{Fields: f.Errors()}
	}

	f.errors = map[Field]string{}
	f.state = StateSubmitting
	return fields, nil
}

// Done reports the result of persisting a submitted form. A nil error closes
// the form; anything else returns it to editing so the user can retry.
func (f *Form) Done(err error) {
	if err == nil {
		f.state = StateClosed
		return
	}
	f.state = StateEditing
}

// Cancel discards the form
func (f *Form) Cancel() {
	f.state = StateClosed
}

// Validate checks the required fields and the date order of a field set
func Validate(fields models.RecordFields) map[Field]string {
	errs := map[Field]string{}

	if !fields.AircraftModel.Valid() {
		errs[FieldAircraftModel] = "Aircraft Model must be Global or Challenger."
	}
	if strings.TrimSpace(fields.ACNumber) == "" {
		errs[FieldACNumber] = "A/C# is required."
	}
	if strings.TrimSpace(fields.MonumentNumber) == "" {
		errs[FieldMonumentNumber] = "Monument# is required."
	}

	start, startOK := checkDate(errs, FieldStartDate, "Start Date", fields.StartDate)
	finish, finishOK := checkDate(errs, FieldFinishDate, "Finish Date", fields.FinishDate)
	if startOK && finishOK && finish.Before(start) {
		errs[FieldFinishDate] = "Finish Date cannot be before Start Date."
	}

	return errs
}

func checkDate(errs map[Field]string, field Field, label, value string) (time.Time, bool) {
	if value == "" {
		errs[field] = label + " is required."
		return time.Time{}, false
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		errs[field] = label + " must be a valid date (YYYY-MM-DD)."
		return time.Time{}, false
	}
	return t, true
}

// Package pipeline turns caller-supplied event fields into their canonical
// stored form, or rejects the record before any write is attempted.
//
// Checks run fail-fast in a fixed order: required-field presence, length
// bounds, mode enumeration, collection non-emptiness, then the derived
// slug, date and time fields. The first failure is returned as an
// *apperrors.ValidationError naming the field.
package pipeline

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
)

var validate = newValidator()

// newValidator registers "present", which only rejects a missing (nil) list.
// An empty list passes here and is reported by the collection phase.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("present", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Slice, reflect.Map, reflect.Ptr, reflect.Interface:
			return !f.IsNil()
		case reflect.Invalid:
			return false
		default:
			return true
		}
	}, true)
	return v
}

type rule struct {
	field   string
	tag     string
	message string
	value   func(*models.Event) any
}

func str(get func(*models.Event) string) func(*models.Event) any {
	return func(e *models.Event) any { return get(e) }
}

func list(get func(*models.Event) []string) func(*models.Event) any {
	return func(e *models.Event) any { return get(e) }
}

var (
	title       = str(func(e *models.Event) string { return e.Title })
	description = str(func(e *models.Event) string { return e.Description })
	overview    = str(func(e *models.Event) string { return e.Overview })
	image       = str(func(e *models.Event) string { return e.Image })
	venue       = str(func(e *models.Event) string { return e.Venue })
	location    = str(func(e *models.Event) string { return e.Location })
	date        = str(func(e *models.Event) string { return e.Date })
	timeOfDay   = str(func(e *models.Event) string { return e.Time })
	mode        = str(func(e *models.Event) string { return e.Mode })
	audience    = str(func(e *models.Event) string { return e.Audience })
	agenda      = list(func(e *models.Event) []string { return e.Agenda })
	organizer   = str(func(e *models.Event) string { return e.Organizer })
	tags        = list(func(e *models.Event) []string { return e.Tags })
)

// phases are evaluated in order; within a phase, in field declaration order
var phases = [][]rule{
	{
		{models.FieldTitle, "required", "Event title is required", title},
		{models.FieldDescription, "required", "Description is required", description},
		{models.FieldOverview, "required", "Overview is required", overview},
		{models.FieldImage, "required", "Image URL is required", image},
		{models.FieldVenue, "required", "Venue is required", venue},
		{models.FieldLocation, "required", "Location is required", location},
		{models.FieldDate, "required", "Date is required", date},
		{models.FieldTime, "required", "Time is required", timeOfDay},
		{models.FieldMode, "required", "Mode is required", mode},
		{models.FieldAudience, "required", "Audience is required", audience},
		{models.FieldAgenda, "present", "Agenda is required", agenda},
		{models.FieldOrganizer, "required", "Organizer is required", organizer},
		{models.FieldTags, "present", "At least one tag is required", tags},
	},
	{
		{models.FieldTitle, "max=100", "Title can not exceed 100 characters", title},
		{models.FieldDescription, "max=1000", "Description can not exceed 1000 characters", description},
		{models.FieldOverview, "max=500", "Overview can not exceed 500 characters", overview},
	},
	{
		{models.FieldMode, "oneof=online offline hybrid", "Mode must be either online, offline, or hybrid", mode},
	},
	{
		{models.FieldAgenda, "min=1", "Agenda must have at least one item", agenda},
		{models.FieldTags, "min=1", "There must be at least one tag", tags},
	},
}

// Normalize validates ev and returns a canonical copy of it. The slug is
// derived when the record is new or its title changed; date and time are
// re-derived when the record is new or the raw field changed. ev is never
// modified.
func Normalize(ev *models.Event, changed models.FieldSet, isNew bool) (*models.Event, error) {
	if ev == nil {
		return nil, apperrors.NewValidationError(models.FieldTitle, "Event title is required")
	}

	out := trimmed(ev)

	for _, phase := range phases {
		for _, r := range phase {
			if err := validate.Var(r.value(out), r.tag); err != nil {
				return nil, apperrors.NewValidationError(r.field, r.message)
			}
		}
	}

	if isNew || changed.Has(models.FieldTitle) {
		out.Slug = Slugify(out.Title)
		if out.Slug == "" {
			return nil, apperrors.NewValidationError(models.FieldSlug, "Title must contain at least one letter or digit")
		}
	}

	if isNew || changed.Has(models.FieldDate) {
		d, err := NormalizeDate(out.Date)
		if err != nil {
			return nil, err
		}
		out.Date = d
	}

	if isNew || changed.Has(models.FieldTime) {
		t, err := NormalizeTime(out.Time)
		if err != nil {
			return nil, err
		}
		out.Time = t
	}

	return out, nil
}

// trimmed copies ev with surrounding whitespace removed from every string
// field. Blank agenda items are dropped and tags are de-duplicated.
func trimmed(ev *models.Event) *models.Event {
	out := ev.Clone()
	out.Title = strings.TrimSpace(out.Title)
	out.Slug = strings.TrimSpace(strings.ToLower(out.Slug))
	out.Description = strings.TrimSpace(out.Description)
	out.Overview = strings.TrimSpace(out.Overview)
	out.Image = strings.TrimSpace(out.Image)
	out.Venue = strings.TrimSpace(out.Venue)
	out.Location = strings.TrimSpace(out.Location)
	out.Date = strings.TrimSpace(out.Date)
	out.Time = strings.TrimSpace(out.Time)
	out.Mode = strings.TrimSpace(out.Mode)
	out.Audience = strings.TrimSpace(out.Audience)
	out.Organizer = strings.TrimSpace(out.Organizer)
	out.Agenda = compact(out.Agenda, false)
	out.Tags = compact(out.Tags, true)
	return out
}

func compact(items []string, unique bool) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if unique {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

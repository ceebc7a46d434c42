package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
)

func validEvent() *models.Event {
	return &models.Event{
		Title:       "  Open Source Summit!! 2026  ",
		Description: "Three days of talks about open source.",
		Overview:    "The yearly open source gathering.",
		Image:       "/images/event-full.png",
		Venue:       "Convention Centre",
		Location:    "Vancouver, Canada",
		Date:        "May 12, 2026",
		Time:        "10:00 AM",
		Mode:        models.ModeHybrid,
		Audience:    "Developers",
		Agenda:      []string{"Keynote", "Workshops"},
		Organizer:   "Linux Foundation",
		Tags:        []string{"oss", "linux"},
	}
}

func requireValidationError(t *testing.T, err error, field, reason string) {
	t.Helper()
	require.Error(t, err)
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
	assert.Equal(t, field, verr.Field)
	assert.Equal(t, reason, verr.Reason)
}

func TestNormalize_NewRecord(t *testing.T) {
	in := validEvent()

	out, err := Normalize(in, nil, true)
	require.NoError(t, err)

	assert.Equal(t, "Open Source Summit!! 2026", out.Title)
	assert.Equal(t, "open-source-summit-2026", out.Slug)
	assert.Equal(t, "2026-05-12", out.Date)
	assert.Equal(t, "10:00", out.Time)

	// input is left untouched
	assert.Equal(t, "  Open Source Summit!! 2026  ", in.Title)
	assert.Empty(t, in.Slug)
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(validEvent(), nil, true)
	require.NoError(t, err)

	second, err := Normalize(first, nil, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalize_OnlyChangedFieldsAreRederived(t *testing.T) {
	stored, err := Normalize(validEvent(), nil, true)
	require.NoError(t, err)

	update := stored.Clone()
	update.Title = "Renamed Summit"
	update.Time = "2:30 PM"

	out, err := Normalize(update, models.ChangedFields(stored, update), false)
	require.NoError(t, err)
	assert.Equal(t, "renamed-summit", out.Slug)
	assert.Equal(t, "14:30", out.Time)
	assert.Equal(t, "2026-05-12", out.Date)

	// slug is kept when the title is unchanged
	noTitle := stored.Clone()
	noTitle.Slug = "custom-slug"
	noTitle.Venue = "Another Hall"

	out, err = Normalize(noTitle, models.NewFieldSet(models.FieldVenue), false)
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", out.Slug)
}

func TestNormalize_RequiredFieldOrder(t *testing.T) {
	ev := validEvent()
	ev.Title = "   "
	ev.Mode = "virtual"
	ev.Tags = nil

	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTitle, "Event title is required")
}

func TestNormalize_EachRequiredField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Event)
		field  string
		reason string
	}{
		{"description", func(e *models.Event) { e.Description = "" }, models.FieldDescription, "Description is required"},
		{"overview", func(e *models.Event) { e.Overview = " " }, models.FieldOverview, "Overview is required"},
		{"image", func(e *models.Event) { e.Image = "" }, models.FieldImage, "Image URL is required"},
		{"venue", func(e *models.Event) { e.Venue = "\t" }, models.FieldVenue, "Venue is required"},
		{"location", func(e *models.Event) { e.Location = "" }, models.FieldLocation, "Location is required"},
		{"date", func(e *models.Event) { e.Date = "" }, models.FieldDate, "Date is required"},
		{"time", func(e *models.Event) { e.Time = "" }, models.FieldTime, "Time is required"},
		{"mode", func(e *models.Event) { e.Mode = "" }, models.FieldMode, "Mode is required"},
		{"audience", func(e *models.Event) { e.Audience = "" }, models.FieldAudience, "Audience is required"},
		{"agenda", func(e *models.Event) { e.Agenda = nil }, models.FieldAgenda, "Agenda is required"},
		{"organizer", func(e *models.Event) { e.Organizer = "" }, models.FieldOrganizer, "Organizer is required"},
		{"tags", func(e *models.Event) { e.Tags = nil }, models.FieldTags, "At least one tag is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(ev)
			_, err := Normalize(ev, nil, true)
			requireValidationError(t, err, tt.field, tt.reason)
		})
	}
}

func TestNormalize_LengthBounds(t *testing.T) {
	ev := validEvent()
	ev.Title = strings.Repeat("a", 100)
	_, err := Normalize(ev, nil, true)
	require.NoError(t, err)

	ev.Title = strings.Repeat("a", 101)
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTitle, "Title can not exceed 100 characters")

	ev = validEvent()
	ev.Description = strings.Repeat("é", 1001)
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldDescription, "Description can not exceed 1000 characters")

	ev = validEvent()
	ev.Overview = strings.Repeat("o", 501)
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldOverview, "Overview can not exceed 500 characters")
}

func TestNormalize_LengthCheckedBeforeMode(t *testing.T) {
	ev := validEvent()
	ev.Overview = strings.Repeat("o", 501)
	ev.Mode = "virtual"

	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldOverview, "Overview can not exceed 500 characters")
}

func TestNormalize_Mode(t *testing.T) {
	for _, m := range []string{models.ModeOnline, models.ModeOffline, models.ModeHybrid} {
		ev := validEvent()
		ev.Mode = m
		_, err := Normalize(ev, nil, true)
		require.NoError(t, err, m)
	}

	ev := validEvent()
	ev.Mode = "Online"
	ev.Agenda = []string{}
	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldMode, "Mode must be either online, offline, or hybrid")
}

func TestNormalize_Collections(t *testing.T) {
	ev := validEvent()
	ev.Agenda = []string{"  ", ""}
	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldAgenda, "Agenda must have at least one item")

	ev = validEvent()
	ev.Tags = []string{}
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTags, "There must be at least one tag")

	ev = validEvent()
	ev.Tags = []string{" go ", "cloud", "go"}
	out, err := Normalize(ev, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "cloud"}, out.Tags)
}

func TestNormalize_CollectionsCheckedBeforeDerivedFields(t *testing.T) {
	ev := validEvent()
	ev.Tags = []string{}
	ev.Date = "not a date"

	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTags, "There must be at least one tag")
}

func TestNormalize_DerivedFieldErrors(t *testing.T) {
	ev := validEvent()
	ev.Title = "!!!"
	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldSlug, "Title must contain at least one letter or digit")

	ev = validEvent()
	ev.Date = "someday"
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldDate, "invalid date")

	ev = validEvent()
	ev.Time = "noon"
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTime, "invalid time format")

	ev = validEvent()
	ev.Time = "24:00"
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTime, "invalid time value")
}

func TestNormalize_UnchangedRawFieldsAreNotReparsed(t *testing.T) {
	ev := validEvent()
	ev.Slug = "kept"
	ev.Date = "2026-05-12"
	ev.Time = "10:00"

	out, err := Normalize(ev, models.NewFieldSet(models.FieldVenue), false)
	require.NoError(t, err)
	assert.Equal(t, "kept", out.Slug)
	assert.Equal(t, "2026-05-12", out.Date)
	assert.Equal(t, "10:00", out.Time)
}

func TestNormalize_Nil(t *testing.T) {
	_, err := Normalize(nil, nil, true)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNormalize_EmptyListsReachCollectionPhase(t *testing.T) {
	ev := validEvent()
	ev.Mode = "virtual"
	ev.Agenda = []string{}
	_, err := Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldMode, "Mode must be either online, offline, or hybrid")

	ev = validEvent()
	ev.Agenda = []string{}
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldAgenda, "Agenda must have at least one item")

	ev = validEvent()
	ev.Tags = []string{}
	_, err = Normalize(ev, nil, true)
	requireValidationError(t, err, models.FieldTags, "There must be at least one tag")
}

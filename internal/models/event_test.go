package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleEvent() *Event {
	return &Event{
		Title:     "Full-Stack Dev Meetup",
		Date:      "2024-08-20",
		Time:      "9:00 AM",
		Mode:      ModeOffline,
		Agenda:    []string{"Welcome", "Talks"},
		Organizer: "London Dev Community",
		Tags:      []string{"fullstack"},
	}
}

func TestChangedFields(t *testing.T) {
	prev := sampleEvent()
	next := prev.Clone()
	next.Time = "10:00 AM"
	next.Tags = append(next.Tags, "meetup")

	changed := ChangedFields(prev, next)

	assert.Len(t, changed, 2)
	assert.True(t, changed.Has(FieldTime))
	assert.True(t, changed.Has(FieldTags))
	assert.False(t, changed.Has(FieldTitle))
}

func TestChangedFields_NilPreviousMarksEverything(t *testing.T) {
	changed := ChangedFields(nil, sampleEvent())

	assert.True(t, changed.Has(FieldTitle))
	assert.True(t, changed.Has(FieldDate))
	assert.True(t, changed.Has(FieldAgenda))
	assert.False(t, changed.Has(FieldSlug), "the slug is derived, never supplied")
}

func TestClone_IsDeep(t *testing.T) {
	orig := sampleEvent()
	c := orig.Clone()
	c.Agenda[0] = "Changed"
	c.Tags[0] = "changed"

	assert.Equal(t, "Welcome", orig.Agenda[0])
	assert.Equal(t, "fullstack", orig.Tags[0])
	assert.Nil(t, (*Event)(nil).Clone())
}

func TestClone_KeepsEmptyListsDistinctFromMissing(t *testing.T) {
	ev := sampleEvent()
	ev.Agenda = []string{}
	ev.Tags = nil

	c := ev.Clone()

	assert.NotNil(t, c.Agenda)
	assert.Empty(t, c.Agenda)
	assert.Nil(t, c.Tags)
}

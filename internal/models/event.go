package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Event modes
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
	ModeHybrid  = "hybrid"
)

// Event is a catalog entry as stored in the events collection
type Event struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty" yaml:"-"`
	Title       string        `bson:"title" json:"title" yaml:"title"`
	Slug        string        `bson:"slug" json:"slug" yaml:"slug,omitempty"`
	Description string        `bson:"description" json:"description" yaml:"description"`
	Overview    string        `bson:"overview" json:"overview" yaml:"overview"`
	Image       string        `bson:"image" json:"image" yaml:"image"`
	Venue       string        `bson:"venue" json:"venue" yaml:"venue"`
	Location    string        `bson:"location" json:"location" yaml:"location"`
	Date        string        `bson:"date" json:"date" yaml:"date"`
	Time        string        `bson:"time" json:"time" yaml:"time"`
	Mode        string        `bson:"mode" json:"mode" yaml:"mode"`
	Audience    string        `bson:"audience" json:"audience" yaml:"audience"`
	Agenda      []string      `bson:"agenda" json:"agenda" yaml:"agenda"`
	Organizer   string        `bson:"organizer" json:"organizer" yaml:"organizer"`
	Tags        []string      `bson:"tags" json:"tags" yaml:"tags"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt" yaml:"-"`
}

// Clone returns a deep copy of the event. Nil and empty lists stay distinct.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Agenda = slices.Clone(e.Agenda)
	c.Tags = slices.Clone(e.Tags)
	return &c
}

// Field names as they appear in the stored document
const (
	FieldTitle       = "title"
	FieldSlug        = "slug"
	FieldDescription = "description"
	FieldOverview    = "overview"
	FieldImage       = "image"
	FieldVenue       = "venue"
	FieldLocation    = "location"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldMode        = "mode"
	FieldAudience    = "audience"
	FieldAgenda      = "agenda"
	FieldOrganizer   = "organizer"
	FieldTags        = "tags"
)

// FieldSet is the set of raw fields a write changes
type FieldSet map[string]struct{}

// NewFieldSet creates a field set from the given names
func NewFieldSet(fields ...string) FieldSet {
	fs := make(FieldSet, len(fields))
	for _, f := range fields {
		fs[f] = struct{}{}
	}
	return fs
}

// Has reports whether the set contains field
func (fs FieldSet) Has(field string) bool {
	_, ok := fs[field]
	return ok
}

// ChangedFields compares the caller-supplied fields of next against prev and
// returns the names that differ. A nil prev marks every field as changed.
func ChangedFields(prev, next *Event) FieldSet {
	all := []string{
		FieldTitle, FieldDescription, FieldOverview, FieldImage, FieldVenue,
		FieldLocation, FieldDate, FieldTime, FieldMode, FieldAudience,
		FieldAgenda, FieldOrganizer, FieldTags,
	}
	if prev == nil {
		return NewFieldSet(all...)
	}

	changed := NewFieldSet()
	scalar := map[string][2]string{
		FieldTitle:       {prev.Title, next.Title},
		FieldDescription: {prev.Description, next.Description},
		FieldOverview:    {prev.Overview, next.Overview},
		FieldImage:       {prev.Image, next.Image},
		FieldVenue:       {prev.Venue, next.Venue},
		FieldLocation:    {prev.Location, next.Location},
		FieldDate:        {prev.Date, next.Date},
		FieldTime:        {prev.Time, next.Time},
		FieldMode:        {prev.Mode, next.Mode},
		FieldAudience:    {prev.Audience, next.Audience},
		FieldOrganizer:   {prev.Organizer, next.Organizer},
	}
	for name, pair := range scalar {
		if pair[0] != pair[1] {
			changed[name] = struct{}{}
		}
	}
	if !slices.Equal(prev.Agenda, next.Agenda) {
		changed[FieldAgenda] = struct{}{}
	}
	if !slices.Equal(prev.Tags, next.Tags) {
		changed[FieldTags] = struct{}{}
	}
	return changed
}

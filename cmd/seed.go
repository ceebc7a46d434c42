package cmd

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/pipeline"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load events from a YAML file into the catalog",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(cmd.Context()); err != nil {
			log.Fatal().Err(err).Msg("Seeding failed")
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "config/seed_events.yaml", "YAML file with the events to load")
	rootCmd.AddCommand(seedCmd)
}

type seedFileContents struct {
	Events []*models.Event `yaml:"events"`
}

func readSeedFile(path string) ([]*models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read seed file %s", path)
	}

	var contents seedFileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, errors.Wrapf(err, "failed to parse seed file %s", path)
	}
	return contents.Events, nil
}

// eventWriter is the subset of the event service used for seeding
type eventWriter interface {
	CreateEvent(ctx context.Context, input *models.Event) (*models.Event, error)
	UpdateEvent(ctx context.Context, slug string, input *models.Event) (*models.Event, error)
}

// seedEvents replaces each event stored under the slug derived from its
// title, creating it when none exists. Events that fail validation are
// skipped; any other error stops the run.
func seedEvents(ctx context.Context, w eventWriter, events []*models.Event) (int, error) {
	loaded := 0
	for _, event := range events {
		var (
			saved *models.Event
			err   = apperrors.ErrNotFound
		)
		if key := pipeline.Slugify(event.Title); key != "" {
			input := event.Clone()
			input.Slug = ""
			saved, err = w.UpdateEvent(ctx, key, input)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			saved, err = w.CreateEvent(ctx, event.Clone())
		}

		switch {
		case err == nil:
			loaded++
			log.Info().Str("slug", saved.Slug).Msg("Event seeded")
		case apperrors.IsValidation(err):
			log.Warn().Err(err).Str("title", event.Title).Msg("Skipping invalid event")
		default:
			return loaded, err
		}
	}
	return loaded, nil
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	events, err := readSeedFile(seedFile)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureIndexes(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	loaded, err := seedEvents(ctx, a.events, events)
	if err != nil {
		return err
	}

	log.Info().Int("loaded", loaded).Int("total", len(events)).Str("file", seedFile).Msg("Seeding complete")
	return nil
}

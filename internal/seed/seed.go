// Package seed loads initial website content and sample events from YAML.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the seed document layout.
type File struct {
	Website types.WebsiteDetails `yaml:"website"`
	Events  []EventSeed          `yaml:"events"`
}

type EventSeed struct {
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Date           string `yaml:"date"`
	Time           string `yaml:"time"`
	Location       string `yaml:"location"`
	WaiverRequired bool   `yaml:"waiver_required"`
	WaiverURL      string `yaml:"waiver_url"`
}

type WebsiteStore interface {
	Details(ctx context.Context) (*types.WebsiteDetails, error)
	Upsert(ctx context.Context, details *types.WebsiteDetails) error
}

type EventStore interface {
	Events(ctx context.Context) ([]*types.Event, error)
	CreateEvent(ctx context.Context, event *types.Event) error
}

// Load reads the seed file at path, or the built in default when path is empty.
func Load(path string) (*File, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}

	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, e := range f.Events {
		if strings.TrimSpace(e.Title) == "" {
			return nil, fmt.Errorf("seed event %d has no title", i)
		}
		if _, err := time.Parse(types.DateLayout, e.Date); err != nil {
			return nil, fmt.Errorf("seed event %q: date must be YYYY-MM-DD: %w", e.Title, err)
		}
		if e.WaiverRequired && e.WaiverURL == "" {
			return nil, fmt.Errorf("seed event %q requires a waiver but has no waiver_url", e.Title)
		}
	}

	if f.Website.Leadership == nil {
		f.Website.Leadership = []types.Leader{}
	}

	return &f, nil
}

// SeedWebsite writes the website details. Existing details are only replaced
// when force is set.
func SeedWebsite(ctx context.Context, logger *logrus.Logger, repo WebsiteStore, details types.WebsiteDetails, force bool) error {
	existing, err := repo.Details(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch website details: %w", err)
	}

	if !existing.UpdatedAt.IsZero() && !force {
		logger.Info("website details already present, skipping (use --force to overwrite)")
		return nil
	}

	details.ID = types.WebsiteDetailsID
	if err := repo.Upsert(ctx, &details); err != nil {
		return fmt.Errorf("failed to upsert website details: %w", err)
	}

	logger.WithField("leaders", len(details.Leadership)).Info("website details seeded")
	return nil
}

// SeedEvents inserts every seed event that does not already exist with the
// same title and date.
func SeedEvents(ctx context.Context, logger *logrus.Logger, repo EventStore, seeds []EventSeed) (int, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	existing, err := repo.Events(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[eventKey(e.Title, e.Date)] = true
	}

	created := 0
	var errs []error
	for _, s := range seeds {
		date, err := time.Parse(types.DateLayout, s.Date)
		if err != nil {
			errs = append(errs, fmt.Errorf("seed event %q: %w", s.Title, err))
			continue
		}

		if known[eventKey(s.Title, date)] {
			continue
		}

		event := &types.Event{
			Title:          s.Title,
			Description:    s.Description,
			Date:           date,
			Time:           s.Time,
			Location:       s.Location,
			WaiverRequired: s.WaiverRequired,
		}
		if s.WaiverURL != "" {
			url := s.WaiverURL
			event.WaiverURL = &url
		}

		if err := repo.CreateEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("seed event %q: %w", s.Title, err))
			continue
		}
		known[eventKey(s.Title, date)] = true
		created++
	}

	logger.WithField("created", created).Info("events seeded")

	return created, errors.Join(errs...)
}

func eventKey(title string, date time.Time) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + date.Format(types.DateLayout)
}

package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"volunteerhub/pkg/types"

	"github.com/teambition/rrule-go"
)

// MaxOccurrences caps how many events one recurrence rule may create.
const MaxOccurrences = 52

// CreateRecurring inserts one event per occurrence of form.Recurrence, an
// RRULE such as "FREQ=WEEKLY;COUNT=6", starting at form.Date and bounded to
// one year. Files are uploaded once and shared by every occurrence.
func (s *Service) CreateRecurring(ctx context.Context, form *types.EventForm, waiver, image *Upload) ([]*types.Event, error) {
	form.ID = nil
	form.OriginalDate = ""

	start, err := s.validateForm(form, waiver)
	if err != nil {
		return nil, err
	}

	dates, err := Occurrences(form.Recurrence, start)
	if err != nil {
		return nil, err
	}

	base := eventFromForm(form, start)
	if err := s.attachFiles(ctx, base, waiver, image); err != nil {
		return nil, err
	}

	created := make([]*types.Event, 0, len(dates))
	for _, date := range dates {
		event := *base
		event.Date = date
		if err := s.store.CreateEvent(ctx, &event); err != nil {
			return created, fmt.Errorf("failed to create occurrence on %s: %w", date.Format(types.DateLayout), err)
		}
		created = append(created, &event)
	}

	s.logger.WithField("count", len(created)).WithField("title", base.Title).Info("created recurring events")

	return created, nil
}

// Occurrences expands rule from start, at most MaxOccurrences dates within
// one year of start.
func Occurrences(rule string, start time.Time) ([]time.Time, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return nil, types.NewValidationError("recurrence", "A recurrence rule is required.")
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, types.NewValidationError("recurrence", fmt.Sprintf("Invalid recurrence rule: %s", err))
	}

	start = types.DateOnly(start)
	r.DTStart(start)

	dates := r.Between(start, start.AddDate(1, 0, 0), true)
	if len(dates) == 0 {
		return nil, types.NewValidationError("recurrence", "The recurrence rule produces no dates within a year.")
	}
	if len(dates) > MaxOccurrences {
		dates = dates[:MaxOccurrences]
	}

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, types.DateOnly(d))
	}

	return out, nil
}

// Package events manages events together with the image and waiver files
// they reference in object storage.
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"volunteerhub/internal/storage"
	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	imagePrefix  = "events"
	waiverPrefix = "waivers"
)

type Store interface {
	Events(ctx context.Context) ([]*types.Event, error)
	Event(ctx context.Context, eventID int64) (*types.Event, error)
	CreateEvent(ctx context.Context, event *types.Event) error
	UpdateEvent(ctx context.Context, event *types.Event) (int64, error)
	DeleteEvent(ctx context.Context, eventID int64) error
	ClearEventFiles(ctx context.Context, eventID int64, image, waiver bool) error
	CleanupExpiredImages(ctx context.Context) error
}

type RosterStore interface {
	Roster(ctx context.Context, eventID int64) ([]*types.SignupRosterEntry, error)
}

// Upload is a file chosen in the event form.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type Service struct {
	logger   *logrus.Logger
	store    Store
	roster   RosterStore
	images   storage.Bucket
	waivers  storage.Bucket
	validate *validator.Validate
	now      func() time.Time
}

func NewService(logger *logrus.Logger, store Store, roster RosterStore, images, waivers storage.Bucket) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		roster:   roster,
		images:   images,
		waivers:  waivers,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ListEvents returns every event oldest first with image_url resolved and
// waiver_url dropped when its object is gone from the waiver bucket.
func (s *Service) ListEvents(ctx context.Context) ([]*types.Event, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return events, nil
	}

	images, waiverNames, err := s.fileIndex(ctx)
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.resolve(event, images, waiverNames)
	}

	return events, nil
}

func (s *Service) fileIndex(ctx context.Context) ([]storage.Object, map[string]bool, error) {
	images, err := s.images.List(ctx, imagePrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list event images: %w", err)
	}

	waivers, err := s.waivers.List(ctx, waiverPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list waivers: %w", err)
	}

	names := make(map[string]bool, len(waivers))
	for _, w := range waivers {
		names[w.Name] = true
	}

	return images, names, nil
}

func (s *Service) resolve(event *types.Event, images []storage.Object, waiverNames map[string]bool) {
	event.ImageURL = ""
	if id := utils.PtrString(event.ImageID); id != "" {
		if obj, ok := storage.FindByID(images, id); ok {
			event.ImageURL = s.images.PublicURL(obj.Name)
		}
	}

	if url := utils.PtrString(event.WaiverURL); url != "" {
		if name, ok := storage.ObjectNameFromURL(s.waivers, url); ok && !waiverNames[name] {
			event.WaiverURL = nil
		}
	}
}

// Event returns a single event with its files resolved.
func (s *Service) Event(ctx context.Context, eventID int64) (*types.Event, error) {
	event, err := s.store.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}

	images, names, err := s.fileIndex(ctx)
	if err != nil {
		return nil, err
	}
	s.resolve(event, images, names)

	return event, nil
}

// SaveResult reports what SaveEvent did. Warning is set when an update
// matched no row.
type SaveResult struct {
	Event   *types.Event
	Created bool
	Warning string
}

// SaveEvent validates form, uploads any chosen files and inserts or updates
// the event. Validation failures are returned as *types.ValidationError before
// storage or database are touched.
func (s *Service) SaveEvent(ctx context.Context, form *types.EventForm, waiver, image *Upload) (*SaveResult, error) {
	date, err := s.validateForm(form, waiver)
	if err != nil {
		return nil, err
	}

	event := eventFromForm(form, date)

	if err := s.attachFiles(ctx, event, waiver, image); err != nil {
		return nil, err
	}

	if form.ID == nil {
		if err := s.store.CreateEvent(ctx, event); err != nil {
			return nil, err
		}
		return &SaveResult{Event: event, Created: true}, nil
	}

	rows, err := s.store.UpdateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Event: event}
	if rows == 0 {
		result.Warning = fmt.Sprintf("No event with id %d was found, nothing was updated.", event.ID)
		s.logger.WithField("event_id", event.ID).Warn("event update matched no rows")
	}

	return result, nil
}

func (s *Service) validateForm(form *types.EventForm, waiver *Upload) (time.Time, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Location = strings.TrimSpace(form.Location)
	form.WaiverURL = strings.TrimSpace(form.WaiverURL)

	if err := s.validate.Struct(form); err != nil {
		return time.Time{}, validationError(err)
	}

	if form.WaiverRequired && waiver == nil && form.WaiverURL == "" {
		return time.Time{}, types.NewValidationError("waiver", "A waiver PDF is required for this event.")
	}

	date, err := time.Parse(types.DateLayout, form.Date)
	if err != nil {
		return time.Time{}, types.NewValidationError("date", "Enter the event date as YYYY-MM-DD.")
	}

	if form.ID != nil {
		if form.OriginalDate == "" {
			return time.Time{}, types.NewValidationError("original_date", "The original event date is missing, reload the event and try again.")
		}

		original, err := time.Parse(types.DateLayout, form.OriginalDate)
		if err != nil {
			return time.Time{}, types.NewValidationError("original_date", "The original event date is invalid.")
		}

		today := types.DateOnly(s.now())
		if original.Before(today) && !date.Before(today) {
			return time.Time{}, types.NewValidationError("date", "A past event cannot be moved to today or a future date.")
		}
	}

	return date, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewValidationError("", err.Error())
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return types.NewValidationError(field, fmt.Sprintf("%s is required.", fe.Field()))
	case "max":
		return types.NewValidationError(field, fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param()))
	case "datetime":
		return types.NewValidationError(field, fmt.Sprintf("%s must be a date in YYYY-MM-DD format.", fe.Field()))
	case "url":
		return types.NewValidationError(field, fmt.Sprintf("%s must be a valid URL.", fe.Field()))
	}
	return types.NewValidationError(field, fmt.Sprintf("%s is invalid.", fe.Field()))
}

func eventFromForm(form *types.EventForm, date time.Time) *types.Event {
	event := &types.Event{
		Title:          form.Title,
		Description:    form.Description,
		Date:           date,
		Time:           strings.TrimSpace(form.Time),
		Location:       form.Location,
		WaiverRequired: form.WaiverRequired,
		WaiverURL:      utils.NilIfBlank(form.WaiverURL),
		ImageID:        utils.NilIfBlank(form.ImageID),
	}
	if form.ID != nil {
		event.ID = *form.ID
	}
	return event
}

// attachFiles uploads the waiver first so its public URL lands on the row,
// then the image whose object id becomes image_id.
func (s *Service) attachFiles(ctx context.Context, event *types.Event, waiver, image *Upload) error {
	if waiver != nil {
		obj, err := s.waivers.Upload(ctx, utils.ObjectName(waiverPrefix, waiver.FileName), waiver.Body, waiver.ContentType)
		if err != nil {
			return fmt.Errorf("failed to upload waiver: %w", err)
		}
		event.WaiverURL = utils.StringPtr(s.waivers.PublicURL(obj.Name))
	}

	if image != nil {
		obj, err := s.images.Upload(ctx, utils.ObjectName(imagePrefix, image.FileName), image.Body, image.ContentType)
		if err != nil {
			return fmt.Errorf("failed to upload event image: %w", err)
		}
		event.ImageID = utils.StringPtr(obj.ID)
	}

	return nil
}

// DeleteEvent removes the event row, then its stored files on a best effort
// basis.
func (s *Service) DeleteEvent(ctx context.Context, eventID int64) error {
	event, err := s.store.Event(ctx, eventID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}

	if event.ImageID == nil && event.WaiverURL == nil {
		return nil
	}

	images, err := s.images.List(ctx, imagePrefix)
	if err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to list event images")
	}
	s.removeFiles(ctx, event, images, err == nil)

	return nil
}

func (s *Service) Signups(ctx context.Context, eventID int64) ([]*types.SignupRosterEntry, error) {
	return s.roster.Roster(ctx, eventID)
}

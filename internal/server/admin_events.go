package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"volunteerhub/internal/events"
	"volunteerhub/internal/roster"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

const maxEventUploadBytes = 10 << 20

func (s *Service) handleGetEventNew(w http.ResponseWriter, r *http.Request) {
	data := &types.EventEditorPageData{
		BasePageData: basePage(r, "New event"),
		IsNew:        true,
	}

	if err := s.renderTemplate(w, r, "page.admin.event", data); err != nil {
		s.logger.WithError(err).Error("failed to render event editor")
		s.internalServerError(w)
	}
}

func (s *Service) handleGetEventRecurring(w http.ResponseWriter, r *http.Request) {
	data := &types.EventEditorPageData{
		BasePageData: basePage(r, "New recurring event"),
		Form:         types.EventForm{Recurrence: "FREQ=WEEKLY;COUNT=4"},
		IsNew:        true,
		Recurring:    true,
	}

	if err := s.renderTemplate(w, r, "page.admin.event", data); err != nil {
		s.logger.WithError(err).Error("failed to render recurring event editor")
		s.internalServerError(w)
	}
}

func (s *Service) handleGetEventEdit(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	event, err := s.events.Event(ctx, eventID)
	if err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to load event for editing")
		s.internalServerError(w)
		return
	}

	data := &types.EventEditorPageData{
		BasePageData: basePage(r, "Edit event"),
		Form:         formFromEvent(event),
		ImageURL:     event.ImageURL,
	}

	if err := s.renderTemplate(w, r, "page.admin.event", data); err != nil {
		s.logger.WithError(err).Error("failed to render event editor")
		s.internalServerError(w)
	}
}

func formFromEvent(e *types.Event) types.EventForm {
	id := e.ID
	date := e.Date.Format(types.DateLayout)

	form := types.EventForm{
		ID:             &id,
		Title:          e.Title,
		Description:    e.Description,
		Date:           date,
		Time:           e.Time,
		Location:       e.Location,
		WaiverRequired: e.WaiverRequired,
		OriginalDate:   date,
	}
	if e.WaiverURL != nil {
		form.WaiverURL = *e.WaiverURL
	}
	if e.ImageID != nil {
		form.ImageID = *e.ImageID
	}

	return form
}

// eventRequest is a decoded event editor submission.
type eventRequest struct {
	form   types.EventForm
	waiver *events.Upload
	image  *events.Upload
	files  []multipart.File
}

func (er *eventRequest) close() {
	for _, f := range er.files {
		_ = f.Close()
	}
}

// parseEventRequest reads the multipart editor form. The returned request is
// non nil whenever the fields could be decoded, even if a file was rejected.
func (s *Service) parseEventRequest(w http.ResponseWriter, r *http.Request) (*eventRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventUploadBytes)
	if err := r.ParseMultipartForm(maxEventUploadBytes); err != nil {
		return nil, types.NewValidationError("", "The upload is too large or malformed. Files must be under 10 MB.")
	}

	req := &eventRequest{}
	if err := decoder.Decode(&req.form, nonEmpty(r.MultipartForm.Value)); err != nil {
		return nil, types.NewValidationError("", "The event form could not be read.")
	}

	var err error
	req.waiver, err = req.upload(r, "waiver_file", isPDF)
	if err != nil {
		req.close()
		return req, types.NewValidationError("waiver", "The waiver must be a PDF file.")
	}

	req.image, err = req.upload(r, "image_file", isImage)
	if err != nil {
		req.close()
		return req, types.NewValidationError("image", "The event image must be a PNG, JPEG, GIF or WebP file.")
	}

	return req, nil
}

var errUnsupportedFile = errors.New("unsupported file type")

func (er *eventRequest) upload(r *http.Request, field string, accept func(contentType, name string) bool) (*events.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	er.files = append(er.files, file)

	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if !accept(contentType, header.Filename) {
		return nil, errUnsupportedFile
	}

	return &events.Upload{FileName: header.Filename, ContentType: contentType, Body: file}, nil
}

func isPDF(contentType, name string) bool {
	return contentType == "application/pdf" || strings.EqualFold(filepath.Ext(name), ".pdf")
}

func isImage(contentType, name string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

func (s *Service) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseEventRequest(w, r)
	if err != nil {
		form := &types.EventForm{}
		if req != nil {
			form = &req.form
		}
		s.renderEventFormError(w, r, form, false, err)
		return
	}
	defer req.close()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.events.SaveEvent(ctx, &req.form, req.waiver, req.image)
	if err != nil {
		s.renderEventFormError(w, r, &req.form, false, err)
		return
	}

	back := adminURL(adminTabEvents, nil)
	if result.Warning != "" {
		s.redirectWithError(w, r, back, result.Warning)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"event_id": result.Event.ID,
		"created":  result.Created,
	}).Info("event saved")

	if result.Created {
		s.redirectWithNotice(w, r, back, "Event created.")
		return
	}
	s.redirectWithNotice(w, r, back, "Event updated.")
}

func (s *Service) handlePostEventRecurring(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseEventRequest(w, r)
	if err != nil {
		form := &types.EventForm{}
		if req != nil {
			form = &req.form
		}
		s.renderEventFormError(w, r, form, true, err)
		return
	}
	defer req.close()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	created, err := s.events.CreateRecurring(ctx, &req.form, req.waiver, req.image)
	if err != nil && len(created) == 0 {
		s.renderEventFormError(w, r, &req.form, true, err)
		return
	}

	back := adminURL(adminTabEvents, nil)
	if err != nil {
		s.logger.WithError(err).WithField("created", len(created)).Error("recurring event creation stopped early")
		s.redirectWithError(w, r, back, fmt.Sprintf("Only %d events were created before an error. Please review the list.", len(created)))
		return
	}

	s.redirectWithNotice(w, r, back, fmt.Sprintf("%d events created.", len(created)))
}

// renderEventFormError redisplays the editor for validation errors and logs
// backend failures.
func (s *Service) renderEventFormError(w http.ResponseWriter, r *http.Request, form *types.EventForm, recurring bool, err error) {
	data := &types.EventEditorPageData{
		BasePageData: basePage(r, "Event"),
		Form:         *form,
		IsNew:        form.ID == nil,
		Recurring:    recurring,
	}

	var verr *types.ValidationError
	if errors.As(err, &verr) {
		data.Error = verr.Message
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "page.admin.event", data)
		return
	}

	s.logger.WithError(err).Error("failed to save event")
	data.Error = "The event could not be saved. Please try again."
	s.renderStatus(w, r, http.StatusBadGateway, "page.admin.event", data)
}

func (s *Service) handlePostEventDelete(w http.ResponseWriter, r *http.Request) {
	back := adminURL(adminTabEvents, nil)

	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		s.redirectWithError(w, r, back, "Unknown event.")
		return
	}

	if r.FormValue("confirm") != "yes" {
		s.redirectWithError(w, r, back, "Confirm the deletion to remove an event.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			s.redirectWithError(w, r, back, "That event no longer exists.")
			return
		}
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to delete event")
		s.redirectWithError(w, r, back, "Unable to delete the event right now. Please try again.")
		return
	}

	s.redirectWithNotice(w, r, back, "Event deleted.")
}

func (s *Service) handleEventRoster(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	event, err := s.events.Event(ctx, eventID)
	if err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to load event for roster")
		s.internalServerError(w)
		return
	}

	entries, err := s.events.Signups(ctx, eventID)
	if err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to load roster")
		s.internalServerError(w)
		return
	}

	users := make([]*types.User, 0, len(entries))
	for _, e := range entries {
		users = append(users, &e.User)
	}

	data := &types.RosterPageData{
		BasePageData: basePage(r, "Roster: "+event.Title),
		Event:        event,
		Entries:      entries,
		Emails:       roster.GenerateBulkList(users, types.UserFieldEmail),
	}

	if err := s.renderTemplate(w, r, "page.admin.roster", data); err != nil {
		s.logger.WithError(err).Error("failed to render roster page")
		s.internalServerError(w)
	}
}

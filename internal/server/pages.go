package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"volunteerhub/internal/content"
	"volunteerhub/pkg/types"
)

const homeUpcomingLimit = 3

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := &types.HomePageData{
		BasePageData: basePage(r, ""),
	}

	details, err := s.website.Details(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load website details")
		s.internalServerError(w)
		return
	}
	data.Details = details

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load events for home page")
		data.Error = "Events could not be loaded right now."
		events = nil
	}

	upcoming := upcomingEvents(events, s.now())
	for _, e := range events {
		if details.FeaturedEventID != nil && e.ID == *details.FeaturedEventID {
			data.FeaturedEvent = e
		}
	}
	if len(upcoming) > homeUpcomingLimit {
		upcoming = upcoming[:homeUpcomingLimit]
	}
	data.UpcomingEvents = upcoming

	if err := s.renderTemplate(w, r, "page.home", data); err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
	}
}

func upcomingEvents(events []*types.Event, now time.Time) []*types.Event {
	out := make([]*types.Event, 0, len(events))
	for _, e := range events {
		if !e.IsPast(now) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) handleAbout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	details, err := s.website.Details(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load website details")
		s.internalServerError(w)
		return
	}

	data := &types.AboutPageData{
		BasePageData: basePage(r, "About"),
		About:        content.Markdown(details.AboutMarkdown),
		Leadership:   details.Leadership,
	}

	if err := s.renderTemplate(w, r, "page.about", data); err != nil {
		s.logger.WithError(err).Error("failed to render about page")
		s.internalServerError(w)
	}
}

func (s *Service) handleGallery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := &types.GalleryPageData{
		BasePageData: basePage(r, "Gallery"),
		Images:       []string{},
	}

	objects, err := s.gallery.List(ctx, "")
	if err != nil {
		s.logger.WithError(err).Error("failed to list gallery bucket")
		data.Error = "The gallery could not be loaded right now."
	}
	for _, obj := range objects {
		data.Images = append(data.Images, s.gallery.PublicURL(obj.Name))
	}

	if err := s.renderTemplate(w, r, "page.gallery", data); err != nil {
		s.logger.WithError(err).Error("failed to render gallery page")
		s.internalServerError(w)
	}
}

func (s *Service) handleGetContact(w http.ResponseWriter, r *http.Request) {
	data := &types.ContactPageData{
		BasePageData: basePage(r, "Contact"),
	}

	if err := s.renderTemplate(w, r, "page.contact", data); err != nil {
		s.logger.WithError(err).Error("failed to render contact page")
		s.internalServerError(w)
	}
}

func (s *Service) handlePostContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/contact", "invalid form payload")
		return
	}

	data := &types.ContactPageData{
		BasePageData: basePage(r, "Contact"),
		Name:         strings.TrimSpace(r.FormValue("name")),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Message:      strings.TrimSpace(r.FormValue("message")),
	}

	data.FieldErrors = validateContactInput(data.Name, data.Email, data.Message)
	if len(data.FieldErrors) > 0 {
		data.Error = "Please fix the highlighted fields."
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "page.contact", data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg := &types.ContactMessage{Name: data.Name, Email: data.Email, Message: data.Message}
	if err := s.website.CreateContactMessage(ctx, msg); err != nil {
		s.logger.WithError(err).Error("failed to store contact message")
		s.redirectWithError(w, r, "/contact", "Your message could not be sent. Please try again.")
		return
	}

	if err := s.notifier.ContactReceived(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("contact_id", msg.ID).Warn("failed to forward contact message")
	}

	s.redirectWithNotice(w, r, "/contact", "Thanks, your message was sent.")
}

func validateContactInput(name, email, message string) map[string]string {
	errs := map[string]string{}

	if name == "" {
		errs["name"] = "Name is required."
	}
	if err := validate.Var(email, "required,email"); err != nil {
		errs["email"] = "Enter a valid email address."
	}
	if message == "" {
		errs["message"] = "Message is required."
	} else if len(message) > 5000 {
		errs["message"] = "Message is too long."
	}

	return errs
}

func (s *Service) handlePending(w http.ResponseWriter, r *http.Request) {
	data := &types.StatusPageData{
		BasePageData: basePage(r, "Pending approval"),
		Message:      "Your account is waiting for approval by an administrator.",
	}

	if access := accessFromContext(r.Context()); access != nil && access.Status == types.UserStatusRejected {
		data.Message = "Your account request was not approved."
	}

	if err := s.renderTemplate(w, r, "page.status", data); err != nil {
		s.logger.WithError(err).Error("failed to render pending page")
		s.internalServerError(w)
	}
}

func (s *Service) handleNotAllowed(w http.ResponseWriter, r *http.Request) {
	data := &types.StatusPageData{
		BasePageData: basePage(r, "Not allowed"),
		Message:      "You do not have access to that page. Please log in with an approved account.",
	}

	if err := s.renderTemplate(w, r, "page.status", data); err != nil {
		s.logger.WithError(err).Error("failed to render not allowed page")
		s.internalServerError(w)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// parseEventID reads a positive event id route parameter.
func parseEventID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid event id")
	}
	return id, nil
}

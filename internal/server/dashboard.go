package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"volunteerhub/internal/content"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/hours"
	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := session.FromContext(ctx).UserID()
	period := hours.ParsePeriod(r.URL.Query().Get("period"))

	data := &types.DashboardPageData{
		BasePageData: basePage(r, "Dashboard"),
		Period:       string(period),
		MaxHours:     types.MaxHoursPerSave,
	}
	for _, p := range hours.Periods {
		data.Periods = append(data.Periods, string(p))
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load dashboard user")
		s.internalServerError(w)
		return
	}
	data.User = user

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load events for dashboard")
		data.Error = "Events could not be loaded. Please refresh to try again."
	}

	signedUp, err := s.signups.EventIDsByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load signups")
		data.Error = "Your signups could not be loaded. Please refresh to try again."
		signedUp = map[int64]bool{}
	}

	for _, e := range upcomingEvents(events, s.now()) {
		data.Events = append(data.Events, &types.DashboardEvent{
			Event:       e,
			Description: content.Markdown(e.Description),
			SignedUp:    signedUp[e.ID],
		})
	}

	records, err := s.hours.RecordsByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load hours")
		data.Error = "Your hours could not be loaded. Please refresh to try again."
	}

	now := s.now()
	for _, rec := range records {
		data.HoursRows = append(data.HoursRows, &types.HoursRow{
			EventID:   rec.EventID,
			Title:     rec.Title,
			EventDate: rec.EventDate.Format(types.DateLayout),
			Hours:     rec.Hours,
			Editable:  !types.DateOnly(rec.EventDate).After(types.DateOnly(now)),
		})
	}

	chart, total := chartFor(records, period)
	data.Chart = chart
	data.TotalHours = total

	chartJSON, err := json.Marshal(chart)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode chart data")
		chartJSON = []byte("[]")
	}
	data.ChartJSON = template.JS(chartJSON)

	if err := s.renderTemplate(w, r, "page.dashboard", data); err != nil {
		s.logger.WithError(err).Error("failed to render dashboard page")
		s.internalServerError(w)
	}
}

func chartFor(records []*types.HoursRecord, period hours.Period) ([]types.ChartBucket, float64) {
	entries := hours.FromRecords(records)

	buckets := hours.Aggregate(entries, period)
	chart := make([]types.ChartBucket, 0, len(buckets))
	for _, b := range buckets {
		chart = append(chart, types.ChartBucket{Label: b.Label, Hours: b.Hours})
	}

	return chart, hours.Total(entries)
}

type hoursResponse struct {
	Period     string              `json:"period"`
	Buckets    []types.ChartBucket `json:"buckets"`
	TotalHours float64             `json:"total_hours"`
}

func (s *Service) handleDashboardHoursJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := session.FromContext(ctx).UserID()
	period := hours.ParsePeriod(r.URL.Query().Get("period"))

	records, err := s.hours.RecordsByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load hours")
		http.Error(w, "failed to load hours", http.StatusBadGateway)
		return
	}

	chart, total := chartFor(records, period)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hoursResponse{Period: string(period), Buckets: chart, TotalHours: total}); err != nil {
		s.logger.WithError(err).Error("failed to encode hours response")
	}
}

func (s *Service) handlePostEventSignup(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		s.redirectWithError(w, r, gate.PathDashboard, "Unknown event.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := session.FromContext(ctx).UserID()

	event, err := s.events.Event(ctx, eventID)
	if err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			s.redirectWithError(w, r, gate.PathDashboard, "That event no longer exists.")
			return
		}
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to load event for signup")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to sign up right now. Please try again.")
		return
	}
	if event.IsPast(s.now()) {
		s.redirectWithError(w, r, gate.PathDashboard, "That event has already taken place.")
		return
	}

	created, err := s.signups.SignUp(ctx, userID, eventID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "event_id": eventID}).Error("failed to sign up for event")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to sign up right now. Please try again.")
		return
	}

	if !created {
		s.redirectWithNotice(w, r, gate.PathDashboard, "You are already signed up for "+event.Title+".")
		return
	}

	s.redirectWithNotice(w, r, gate.PathDashboard, "You are signed up for "+event.Title+".")
}

func (s *Service) handlePostEventCancel(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		s.redirectWithError(w, r, gate.PathDashboard, "Unknown event.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := session.FromContext(ctx).UserID()
	if err := s.signups.Cancel(ctx, userID, eventID); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "event_id": eventID}).Error("failed to cancel signup")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to cancel right now. Please try again.")
		return
	}

	s.redirectWithNotice(w, r, gate.PathDashboard, "Your signup was cancelled.")
}

// parseHours validates a submitted hours value before anything is stored.
func parseHours(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, types.NewValidationError("hours", "Enter the number of hours.")
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewValidationError("hours", "Hours must be a number.")
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > types.MaxHoursPerSave {
		return 0, types.NewValidationError("hours", fmt.Sprintf("Hours must be between 0 and %d.", types.MaxHoursPerSave))
	}

	return value, nil
}

func (s *Service) handlePostHours(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r.PathValue("eventID"))
	if err != nil {
		s.redirectWithError(w, r, gate.PathDashboard, "Unknown event.")
		return
	}

	value, err := parseHours(r.FormValue("hours"))
	if err != nil {
		s.redirectWithError(w, r, gate.PathDashboard, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := session.FromContext(ctx).UserID()
	logger := s.logger.WithFields(logrus.Fields{"user_id": userID, "event_id": eventID})

	signedUp, err := s.signups.IsSignedUp(ctx, userID, eventID)
	if err != nil {
		logger.WithError(err).Error("failed to check signup before logging hours")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to save hours right now. Please try again.")
		return
	}
	if !signedUp {
		s.redirectWithError(w, r, gate.PathDashboard, "You can only log hours for events you signed up for.")
		return
	}

	event, err := s.events.Event(ctx, eventID)
	if err != nil {
		logger.WithError(err).Error("failed to load event before logging hours")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to save hours right now. Please try again.")
		return
	}
	if types.DateOnly(event.Date).After(types.DateOnly(s.now())) {
		s.redirectWithError(w, r, gate.PathDashboard, "Hours can be logged once the event has taken place.")
		return
	}

	previous, err := s.hours.Upsert(ctx, &types.VolunteerHours{EventID: eventID, UserID: userID, Hours: value})
	if err != nil {
		logger.WithError(err).Error("failed to save hours")
		s.redirectWithError(w, r, gate.PathDashboard, "Unable to save hours right now. Please try again.")
		return
	}

	if previous != nil && *previous != value {
		logger.WithFields(logrus.Fields{
			"previous_hours": *previous,
			"hours":          value,
		}).Warn("volunteer hours overwritten")
	}

	s.redirectWithNotice(w, r, gate.PathDashboard, "Hours saved for "+event.Title+".")
}

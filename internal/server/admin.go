package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"volunteerhub/internal/gate"
	"volunteerhub/internal/roster"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	adminTabUsers   = "users"
	adminTabEvents  = "events"
	adminTabWebsite = "website"
)

const cleanupTimeout = 10 * time.Second

func adminTab(value string) string {
	switch value {
	case adminTabEvents, adminTabWebsite:
		return value
	}
	return adminTabUsers
}

func adminURL(tab string, extra url.Values) string {
	v := url.Values{}
	for k, vals := range extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	v.Set("tab", tab)
	return gate.PathAdmin + "?" + v.Encode()
}

func (s *Service) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.cleanupPastEvents(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	data := &types.AdminPageData{
		BasePageData: basePage(r, "Admin"),
		Tab:          adminTab(q.Get("tab")),
		RoleFilter:   roster.NormalizeFilter(q.Get("role")),
		StatusFilter: roster.NormalizeFilter(q.Get("status")),
		Roles:        types.Roles,
		Statuses:     types.UserStatuses,
	}

	var err error
	switch data.Tab {
	case adminTabUsers:
		err = s.loadAdminUsers(ctx, data)
	case adminTabEvents:
		err = s.loadAdminEvents(ctx, data)
	case adminTabWebsite:
		err = s.loadAdminWebsite(ctx, data)
	}
	if err != nil {
		s.logger.WithError(err).WithField("tab", data.Tab).Error("failed to load admin data")
		data.Error = "Some data could not be loaded. Please refresh to try again."
	}

	if err := s.renderTemplate(w, r, "page.admin", data); err != nil {
		s.logger.WithError(err).Error("failed to render admin page")
		s.internalServerError(w)
	}
}

// cleanupPastEvents sweeps stored files of past events. Failures are logged only.
func (s *Service) cleanupPastEvents(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	if _, err := s.events.CleanupPastEventFiles(ctx); err != nil {
		s.logger.WithError(err).Warn("past event file cleanup failed")
	}
}

func (s *Service) loadAdminUsers(ctx context.Context, data *types.AdminPageData) error {
	users, err := s.users.All(ctx)
	if err != nil {
		return err
	}

	filtered := roster.FilterUsers(users, data.RoleFilter, data.StatusFilter)
	for _, u := range filtered {
		row := &types.AdminUserRow{User: u}
		for _, f := range u.Role.ContactFields() {
			if v := u.Value(f); v != "" {
				row.ContactFields = append(row.ContactFields, types.AdminContactField{Label: fieldLabel(f), Value: v})
			}
		}
		data.Users = append(data.Users, row)
	}

	for _, f := range roster.BulkFields {
		data.BulkLists = append(data.BulkLists, types.BulkList{
			Field: f,
			Value: roster.GenerateBulkList(filtered, f),
		})
	}

	return nil
}

func fieldLabel(f types.UserField) string {
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (s *Service) loadAdminEvents(ctx context.Context, data *types.AdminPageData) error {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return err
	}

	counts, err := s.signups.Counts(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load signup counts")
		counts = map[int64]int{}
	}

	now := s.now()
	for _, e := range events {
		data.Events = append(data.Events, &types.AdminEventRow{
			Event:         e,
			Signups:       counts[e.ID],
			IsPast:        e.IsPast(now),
			MissingWaiver: e.MissingWaiver(now),
		})
	}

	return nil
}

func (s *Service) loadAdminWebsite(ctx context.Context, data *types.AdminPageData) error {
	details, err := s.website.Details(ctx)
	if err != nil {
		return err
	}
	data.Details = details

	return s.loadAdminEvents(ctx, data)
}

// filterParams carries the user list filters through a POST so the redirect
// lands on the same view.
func filterParams(r *http.Request) url.Values {
	v := url.Values{}
	if role := r.FormValue("role_filter"); role != "" {
		v.Set("role", role)
	}
	if status := r.FormValue("status_filter"); status != "" {
		v.Set("status", status)
	}
	return v
}

func (s *Service) handlePostUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	back := adminURL(adminTabUsers, filterParams(r))

	status := types.UserStatus(strings.ToUpper(strings.TrimSpace(r.FormValue("status"))))
	if status != types.UserStatusApproved && status != types.UserStatusRejected {
		s.redirectWithError(w, r, back, "Choose approve or reject.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	logger := s.logger.WithFields(logrus.Fields{"user_id": userID, "status": status})

	user, err := s.users.User(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.redirectWithError(w, r, back, "That user no longer exists.")
			return
		}
		logger.WithError(err).Error("failed to load user for status change")
		s.redirectWithError(w, r, back, "Unable to update the user right now. Please try again.")
		return
	}

	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		logger.WithError(err).Error("failed to update user status")
		s.redirectWithError(w, r, back, "Unable to update the user right now. Please try again.")
		return
	}

	logger.Info("user status changed")

	if err := s.notifier.UserStatusChanged(ctx, user, status); err != nil {
		logger.WithError(err).Warn("failed to send status notification")
	}

	s.redirectWithNotice(w, r, back, user.FullName+" is now "+strings.ToLower(string(status))+".")
}

func (s *Service) handlePostUserRole(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	back := adminURL(adminTabUsers, filterParams(r))

	role := types.Role(strings.ToUpper(strings.TrimSpace(r.FormValue("role"))))
	if !role.Valid() {
		s.redirectWithError(w, r, back, "Choose a valid role.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.redirectWithError(w, r, back, "That user no longer exists.")
			return
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to update user role")
		s.redirectWithError(w, r, back, "Unable to update the role right now. Please try again.")
		return
	}

	s.redirectWithNotice(w, r, back, "Role updated to "+role.Label()+".")
}

func (s *Service) handlePostWebsite(w http.ResponseWriter, r *http.Request) {
	back := adminURL(adminTabWebsite, nil)

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, back, "invalid form payload")
		return
	}

	var form types.WebsiteDetailsForm
	if err := decoder.Decode(&form, nonEmpty(r.PostForm)); err != nil {
		s.logger.WithError(err).Warn("failed to decode website form")
		s.redirectWithError(w, r, back, "Counters must be whole numbers.")
		return
	}

	if err := validate.Struct(&form); err != nil {
		s.redirectWithError(w, r, back, "Counters cannot be negative and the about text must be under 20000 characters.")
		return
	}

	details := &types.WebsiteDetails{
		ID:              types.WebsiteDetailsID,
		VolunteersCount: form.VolunteersCount,
		TrashRemovedLbs: form.TrashRemovedLbs,
		EventsHosted:    form.EventsHosted,
		Leadership:      leadersFromForm(&form),
		FeaturedEventID: form.FeaturedEventID,
		AboutMarkdown:   form.AboutMarkdown,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.website.Upsert(ctx, details); err != nil {
		s.logger.WithError(err).Error("failed to save website details")
		s.redirectWithError(w, r, back, "Unable to save website details right now. Please try again.")
		return
	}

	s.redirectWithNotice(w, r, back, "Website details saved.")
}

// leadersFromForm zips the parallel leader inputs, skipping rows without a name.
func leadersFromForm(form *types.WebsiteDetailsForm) []types.Leader {
	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}

	leaders := make([]types.Leader, 0, len(form.LeaderNames))
	for i := range form.LeaderNames {
		name := at(form.LeaderNames, i)
		if name == "" {
			continue
		}
		leaders = append(leaders, types.Leader{
			Name:     name,
			Role:     at(form.LeaderRoles, i),
			ImageURL: at(form.LeaderImageURLs, i),
		})
	}

	return leaders
}

// nonEmpty drops blank single values so optional numeric and pointer fields
// decode as unset.
func nonEmpty(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vals := range values {
		if len(vals) == 1 && strings.TrimSpace(vals[0]) == "" {
			continue
		}
		out[k] = vals
	}
	return out
}

package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/erazemk/atlas/internal/model"
	"github.com/erazemk/atlas/internal/panel"
)

type tabLink struct {
	Tab    panel.Tab
	Title  string
	Active bool
}

type listSection struct {
	Filter string
	Err    string
	Notice panel.Notice
	Table  panel.Table
}

type dashboardPage struct {
	PageData
	Tabs       []tabLink
	Active     panel.Tab
	List       listSection
	Detail     panel.DetailView
	Credential *model.Approval
	Statuses   []string
	MaxUpload  int64
}

// checkedPanel returns the caller's panel, running the session check first
// if the panel has not passed it yet. On failure it redirects to /login and
// returns nil.
func (s *Server) checkedPanel(w http.ResponseWriter, r *http.Request) *panel.Panel {
	p, ok := s.Sessions.Lookup(GetWebClaims(r.Context()).SessionID)
	if ok && p.Snapshot().Authenticated() {
		return p
	}
	return s.start(w, r)
}

// start runs the session check and returns the caller's panel. A panel is
// kept only for sessions that pass; otherwise it redirects to /login and
// returns nil.
func (s *Server) start(w http.ResponseWriter, r *http.Request) *panel.Panel {
	id := GetWebClaims(r.Context()).SessionID

	// Without backend cookies the check cannot pass.
	if len(backendCookies(r)) == 0 {
		s.Sessions.Drop(id)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil
	}

	p := s.Sessions.Get(id)
	err := p.Start(r.Context())
	switch {
	case errors.Is(err, panel.ErrUnauthenticated):
		s.Sessions.Drop(id)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil
	case err != nil:
		// The list error is part of the rendered state.
		slog.Warn("initial load failed", "error", err)
	}
	return p
}

// Dashboard handles GET /. A full page load always re-runs the session check.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	p := s.start(w, r)
	if p == nil {
		return
	}
	s.renderDashboard(w, r, p)
}

// TabPage handles GET /tabs/{tab}. It re-fetches the tab, applying the
// filter query parameter when present.
func (s *Server) TabPage(w http.ResponseWriter, r *http.Request) {
	tab, err := panel.ParseTab(r.PathValue("tab"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	if q := r.URL.Query(); q.Has("filter") {
		err = p.SetFilter(r.Context(), tab, q.Get("filter"))
	} else {
		err = p.Activate(r.Context(), tab)
	}
	if s.redirectIfSignedOut(w, r, err) {
		return
	}
	if err != nil {
		slog.Warn("tab load failed", "tab", tab, "error", err)
		if errors.Is(err, panel.ErrInvalidFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s.renderDashboard(w, r, p)
}

// ViewPage handles GET /view/{tab}: it shows the tab as last loaded. Action
// handlers redirect here after they have refreshed the affected views.
func (s *Server) ViewPage(w http.ResponseWriter, r *http.Request) {
	tab, err := panel.ParseTab(r.PathValue("tab"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	err = p.Show(r.Context(), tab)
	if s.redirectIfSignedOut(w, r, err) {
		return
	}
	if err != nil {
		slog.Warn("tab load failed", "tab", tab, "error", err)
	}
	s.renderDashboard(w, r, p)
}

// CloseDetail handles GET /detail/close.
func (s *Server) CloseDetail(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Sessions.Lookup(GetWebClaims(r.Context()).SessionID); ok {
		p.CloseSubmission()
	}
	http.Redirect(w, r, "/view/onboarding", http.StatusSeeOther)
}

// redirectIfSignedOut sends the caller to /login when err shows the backend
// session has ended.
func (s *Server) redirectIfSignedOut(w http.ResponseWriter, r *http.Request, err error) bool {
	if errors.Is(err, panel.ErrUnauthenticated) {
		slog.Info("backend session ended", "error", err)
		s.Sessions.Drop(GetWebClaims(r.Context()).SessionID)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return true
	}
	return false
}

// renderDashboard renders the panel state and drops its one-time parts.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, p *panel.Panel) {
	st := p.Present()

	page := &dashboardPage{
		PageData: PageData{
			Title:     st.Active.Title(),
			Email:     st.Email,
			CSRFToken: csrf.Token(r),
		},
		Active:     st.Active,
		List:       listFor(st),
		Detail:     st.Detail,
		Credential: st.Credential,
		Statuses:   model.OnboardingStatuses,
		MaxUpload:  s.MaxUpload,
	}
	for _, t := range panel.Tabs {
		page.Tabs = append(page.Tabs, tabLink{Tab: t, Title: t.Title(), Active: t == st.Active})
	}

	s.Templates.Render(w, "dashboard.html", page)
}

func listFor(st panel.State) listSection {
	l := listSection{Table: panel.TableFor(st, st.Active)}
	switch st.Active {
	case panel.TabOnboarding:
		l.Filter, l.Err, l.Notice = st.Onboarding.Filter, st.Onboarding.Err, st.Onboarding.Notice
	case panel.TabVault:
		l.Filter, l.Err, l.Notice = st.Vault.Filter, st.Vault.Err, st.Vault.Notice
	case panel.TabOwners:
		l.Err, l.Notice = st.Owners.Err, st.Owners.Notice
	case panel.TabAssets:
		l.Err, l.Notice = st.Assets.Err, st.Assets.Notice
	}
	return l
}

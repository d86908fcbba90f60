package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"

	"github.com/erazemk/atlas/internal/model"
	"github.com/erazemk/atlas/internal/panel"
)

type approvePage struct {
	PageData
	ID         string
	Submission *model.OnboardingSubmission
}

// SubmissionPage handles GET /onboarding/{id}.
func (s *Server) SubmissionPage(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	id := r.PathValue("id")
	err := p.OpenSubmission(r.Context(), id)
	if s.redirectIfSignedOut(w, r, err) {
		return
	}
	if err != nil {
		slog.Warn("submission load failed", "submission", id, "error", err)
	}
	s.renderDashboard(w, r, p)
}

// StatusSubmit handles POST /onboarding/{id}/status.
func (s *Server) StatusSubmit(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	id := r.PathValue("id")
	err := p.UpdateStatus(r.Context(), id, r.PostFormValue("status"), r.PostFormValue("notes"))
	if s.actionFailed(w, r, "update_status", err) {
		return
	}
	http.Redirect(w, r, "/view/onboarding", http.StatusSeeOther)
}

// ApprovePage handles GET /onboarding/{id}/approve: the confirmation step.
func (s *Server) ApprovePage(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	id := r.PathValue("id")
	st := p.Snapshot()
	page := &approvePage{
		PageData: PageData{Title: "Approve submission", Email: st.Email, CSRFToken: csrf.Token(r)},
		ID:       id,
	}
	if st.Detail.ID == id {
		page.Submission = st.Detail.Submission
	}
	s.Templates.Render(w, "approve.html", page)
}

// ApproveSubmit handles POST /onboarding/{id}/approve. Without confirm=yes
// nothing is sent to the backend.
func (s *Server) ApproveSubmit(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	id := r.PathValue("id")
	err := p.Approve(r.Context(), id, r.PostFormValue("confirm") == "yes")
	if errors.Is(err, panel.ErrNotConfirmed) {
		http.Redirect(w, r, "/onboarding/"+url.PathEscape(id)+"/approve", http.StatusSeeOther)
		return
	}
	if s.actionFailed(w, r, "approve", err) {
		return
	}
	http.Redirect(w, r, "/view/onboarding", http.StatusSeeOther)
}

// actionFailed handles the errors that stop an action from rendering the
// normal follow-up view. Backend failures are already recorded as inline
// notices and only logged here.
func (s *Server) actionFailed(w http.ResponseWriter, r *http.Request, action string, err error) bool {
	switch {
	case err == nil:
		return false
	case s.redirectIfSignedOut(w, r, err):
		return true
	case errors.Is(err, panel.ErrBusy):
		slog.Warn("duplicate submission ignored", "action", action)
		http.Error(w, "This action is already in progress.", http.StatusConflict)
		return true
	default:
		slog.Warn("action failed", "action", action, "error", err)
		return false
	}
}

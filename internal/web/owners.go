package web

import (
	"net/http"

	"github.com/erazemk/atlas/internal/model"
)

// OwnerCreateSubmit handles POST /owners.
func (s *Server) OwnerCreateSubmit(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	err := p.CreateOwner(r.Context(), model.OwnerInput{
		LegalName:    r.PostFormValue("legal_name"),
		EntityType:   r.PostFormValue("entity_type"),
		Jurisdiction: r.PostFormValue("jurisdiction"),
		Email:        r.PostFormValue("email"),
		Address:      r.PostFormValue("address"),
		Phone:        r.PostFormValue("phone"),
	})
	if s.actionFailed(w, r, "create_owner", err) {
		return
	}
	http.Redirect(w, r, "/view/owners", http.StatusSeeOther)
}

// AssetCreateSubmit handles POST /assets.
func (s *Server) AssetCreateSubmit(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	owner := r.PostFormValue("owner_id")
	err := p.CreateAsset(r.Context(), model.AssetInput{
		OwnerID:            &owner,
		Title:              r.PostFormValue("title"),
		AssetType:          r.PostFormValue("asset_type"),
		Jurisdictions:      r.PostFormValue("jurisdictions"),
		RegNo:              r.PostFormValue("reg_no"),
		Status:             r.PostFormValue("status"),
		PriorityDate:       r.PostFormValue("priority_date"),
		Inventors:          r.PostFormValue("inventors"),
		CurrentOwnerEntity: r.PostFormValue("current_owner_entity"),
		Encumbrances:       r.PostFormValue("encumbrances"),
		Description:        r.PostFormValue("description"),
		Targets:            r.PostFormValue("targets"),
	})
	if s.actionFailed(w, r, "create_asset", err) {
		return
	}
	http.Redirect(w, r, "/view/assets", http.StatusSeeOther)
}

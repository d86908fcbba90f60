package model

import (
	"bytes"
	"encoding/json"
)

// Onboarding statuses.
const (
	StatusSubmitted = "submitted"
	StatusNeedsMore = "needs_more"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// OnboardingStatuses lists the statuses an operator can assign, in display order.
var OnboardingStatuses = []string{StatusSubmitted, StatusNeedsMore, StatusApproved, StatusRejected}

// ValidOnboardingStatus reports whether s is one of OnboardingStatuses.
func ValidOnboardingStatus(s string) bool {
	for _, v := range OnboardingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// OnboardingSubmission is an applicant-provided record awaiting admin triage.
// The backend may return fields beyond the ones named here; Raw keeps the
// full object as received.
type OnboardingSubmission struct {
	ID            string `json:"id"`
	CreatedAt     string `json:"created_at"`
	Status        string `json:"status"`
	OwnerName     string `json:"owner_name"`
	OwnerEmail    string `json:"owner_email"`
	EntityType    string `json:"entity_type"`
	Jurisdiction  string `json:"jurisdiction"`
	IPAssetsCount *int   `json:"ip_assets_count"`
	Notes         string `json:"notes"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and retains the raw object.
func (s *OnboardingSubmission) UnmarshalJSON(data []byte) error {
	type plain OnboardingSubmission
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = OnboardingSubmission(p)
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Pretty returns the full record as indented JSON, or an empty string when
// no raw record is available.
func (s *OnboardingSubmission) Pretty() string {
	if len(s.Raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, s.Raw, "", "  "); err != nil {
		return string(s.Raw)
	}
	return buf.String()
}

// StatusUpdate is the body of POST /api/admin/onboarding/{id}/status.
type StatusUpdate struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Approval is the one-time credential returned when a submission is approved.
// It is shown to the operator once and never stored.
type Approval struct {
	UserEmail    string `json:"user_email"`
	TempPassword string `json:"temp_password"`
}

// Package panel implements the admin console controller.
//
// All console state lives in a State value that changes only through Reduce.
// A Panel owns one State, performs the backend calls, and feeds their
// results back through Reduce. List and detail requests are tagged with a
// generation number so that a response overtaken by a newer request is
// dropped instead of overwriting fresher data.
package panel

import (
	"fmt"

	"github.com/erazemk/atlas/internal/model"
)

// PageSize is the fixed number of rows requested per list.
const PageSize = 50

// Tab is one of the four console views.
type Tab string

// Tabs.
const (
	TabOnboarding Tab = "onboarding"
	TabVault      Tab = "vault"
	TabOwners     Tab = "owners"
	TabAssets     Tab = "assets"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabOnboarding, TabVault, TabOwners, TabAssets}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Title returns the tab label.
func (t Tab) Title() string {
	switch t {
	case TabOnboarding:
		return "Onboarding"
	case TabVault:
		return "Vault"
	case TabOwners:
		return "Owners"
	case TabAssets:
		return "Assets"
	default:
		return string(t)
	}
}

// Action is a mutating operation guarded against double submission.
type Action uint8

// Actions, usable as a bit set.
const (
	ActionUpdateStatus Action = 1 << iota
	ActionApprove
	ActionIngest
	ActionCreateOwner
	ActionCreateAsset
)

func (a Action) String() string {
	switch a {
	case ActionUpdateStatus:
		return "update_status"
	case ActionApprove:
		return "approve"
	case ActionIngest:
		return "ingest"
	case ActionCreateOwner:
		return "create_owner"
	case ActionCreateAsset:
		return "create_asset"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// NoticeKind selects how an inline notice is rendered.
type NoticeKind string

// Notice kinds.
const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is an inline alert attached to a view.
type Notice struct {
	Kind NoticeKind
	Text string
}

// IsZero reports whether there is nothing to show.
func (n Notice) IsZero() bool { return n.Text == "" }

// ListView is the state of one tab's list.
type ListView[T any] struct {
	Gen     uint64
	Filter  string
	Loading bool
	Loaded  bool
	Items   []T
	Err     string
	Notice  Notice
}

// DetailView is the state of the onboarding detail pane.
type DetailView struct {
	Gen        uint64
	ID         string
	Loading    bool
	Submission *model.OnboardingSubmission
	Err        string
	Notice     Notice
}

// Open reports whether a submission is selected.
func (d DetailView) Open() bool { return d.ID != "" }

// State is the complete console state for one operator session.
type State struct {
	Email  string
	Active Tab

	Onboarding ListView[model.OnboardingSubmission]
	Vault      ListView[model.VaultObject]
	Owners     ListView[model.Owner]
	Assets     ListView[model.Asset]
	Detail     DetailView

	// Credential is set after an approval and cleared once it has been shown.
	Credential *model.Approval

	Busy Action
}

// NewState returns the state of a console that has not yet passed the
// session check.
func NewState() State {
	s := State{}
	s.Onboarding.Filter = model.StatusSubmitted
	s.Vault.Filter = model.SourceAll
	return s
}

// Authenticated reports whether the session check has succeeded.
func (s State) Authenticated() bool { return s.Email != "" }

// IsBusy reports whether a is in flight.
func (s State) IsBusy(a Action) bool { return s.Busy&a != 0 }

// gen returns the current list generation of a tab.
func (s State) gen(t Tab) uint64 {
	switch t {
	case TabOnboarding:
		return s.Onboarding.Gen
	case TabVault:
		return s.Vault.Gen
	case TabOwners:
		return s.Owners.Gen
	case TabAssets:
		return s.Assets.Gen
	}
	return 0
}

// filter returns the current list filter of a tab.
func (s State) filter(t Tab) string {
	switch t {
	case TabOnboarding:
		return s.Onboarding.Filter
	case TabVault:
		return s.Vault.Filter
	}
	return ""
}

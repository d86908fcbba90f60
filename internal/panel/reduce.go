package panel

import "github.com/erazemk/atlas/internal/model"

// Event is a state transition input for Reduce.
type Event interface {
	event()
}

// Authenticated records a successful session check.
type Authenticated struct{ Email string }

// SignedOut resets the console to its initial state.
type SignedOut struct{}

// TabActivated makes a tab visible ahead of a full refresh. Activating the
// onboarding tab closes the detail pane.
type TabActivated struct{ Tab Tab }

// TabShown makes a tab visible without refreshing it.
type TabShown struct{ Tab Tab }

// FilterChanged sets the list filter of a tab.
type FilterChanged struct {
	Tab    Tab
	Filter string
}

// ListRequested starts a list fetch and bumps the tab's generation.
type ListRequested struct{ Tab Tab }

// ListLoaded delivers list rows fetched under generation Gen. The tab is
// implied by the row type.
type ListLoaded[T any] struct {
	Gen   uint64
	Items []T
}

// ListFailed delivers a list fetch error for generation Gen.
type ListFailed struct {
	Tab Tab
	Gen uint64
	Err string
}

// DetailRequested starts fetching a submission into the detail pane.
type DetailRequested struct{ ID string }

// DetailLoaded delivers the submission fetched under generation Gen.
type DetailLoaded struct {
	Gen        uint64
	Submission *model.OnboardingSubmission
}

// DetailFailed delivers a detail fetch error for generation Gen.
type DetailFailed struct {
	Gen uint64
	Err string
}

// DetailClosed hides the detail pane.
type DetailClosed struct{}

// NoticeRaised attaches an inline notice to a tab's list view.
type NoticeRaised struct {
	Tab    Tab
	Notice Notice
}

// DetailNoticeRaised attaches an inline notice to the detail pane.
type DetailNoticeRaised struct{ Notice Notice }

// ActionStarted marks an action as in flight.
type ActionStarted struct{ Action Action }

// ActionFinished clears an action's in-flight mark.
type ActionFinished struct{ Action Action }

// CredentialIssued holds an approval credential until it is presented.
type CredentialIssued struct{ Approval model.Approval }

// Presented marks the current state as shown to the operator, dropping
// notices and the one-time credential.
type Presented struct{}

func (Authenticated) event()      {}
func (SignedOut) event()          {}
func (TabActivated) event()       {}
func (TabShown) event()           {}
func (FilterChanged) event()      {}
func (ListRequested) event()      {}
func (ListLoaded[T]) event()      {}
func (ListFailed) event()         {}
func (DetailRequested) event()    {}
func (DetailLoaded) event()       {}
func (DetailFailed) event()       {}
func (DetailClosed) event()       {}
func (NoticeRaised) event()       {}
func (DetailNoticeRaised) event() {}
func (ActionStarted) event()      {}
func (ActionFinished) event()     {}
func (CredentialIssued) event()   {}
func (Presented) event()          {}

// Reduce applies ev to s and returns the new state. It performs no I/O and
// never modifies slices held by s.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case Authenticated:
		s.Email = ev.Email
	case SignedOut:
		return NewState()
	case TabActivated:
		s.Active = ev.Tab
		if ev.Tab == TabOnboarding {
			s.Detail = DetailView{Gen: s.Detail.Gen + 1}
		}
	case TabShown:
		s.Active = ev.Tab
	case FilterChanged:
		switch ev.Tab {
		case TabOnboarding:
			s.Onboarding.Filter = ev.Filter
		case TabVault:
			s.Vault.Filter = ev.Filter
		}
	case ListRequested:
		switch ev.Tab {
		case TabOnboarding:
			s.Onboarding = requested(s.Onboarding)
		case TabVault:
			s.Vault = requested(s.Vault)
		case TabOwners:
			s.Owners = requested(s.Owners)
		case TabAssets:
			s.Assets = requested(s.Assets)
		}
	case ListLoaded[model.OnboardingSubmission]:
		s.Onboarding = loaded(s.Onboarding, ev)
	case ListLoaded[model.VaultObject]:
		s.Vault = loaded(s.Vault, ev)
	case ListLoaded[model.Owner]:
		s.Owners = loaded(s.Owners, ev)
	case ListLoaded[model.Asset]:
		s.Assets = loaded(s.Assets, ev)
	case ListFailed:
		switch ev.Tab {
		case TabOnboarding:
			s.Onboarding = failed(s.Onboarding, ev)
		case TabVault:
			s.Vault = failed(s.Vault, ev)
		case TabOwners:
			s.Owners = failed(s.Owners, ev)
		case TabAssets:
			s.Assets = failed(s.Assets, ev)
		}
	case DetailRequested:
		d := DetailView{Gen: s.Detail.Gen + 1, ID: ev.ID, Loading: true}
		if ev.ID == s.Detail.ID {
			d.Notice = s.Detail.Notice
		}
		s.Detail = d
	case DetailLoaded:
		if ev.Gen == s.Detail.Gen {
			s.Detail.Loading = false
			s.Detail.Submission = ev.Submission
			s.Detail.Err = ""
		}
	case DetailFailed:
		if ev.Gen == s.Detail.Gen {
			s.Detail.Loading = false
			s.Detail.Submission = nil
			s.Detail.Err = ev.Err
		}
	case DetailClosed:
		s.Detail = DetailView{Gen: s.Detail.Gen + 1}
	case NoticeRaised:
		switch ev.Tab {
		case TabOnboarding:
			s.Onboarding.Notice = ev.Notice
		case TabVault:
			s.Vault.Notice = ev.Notice
		case TabOwners:
			s.Owners.Notice = ev.Notice
		case TabAssets:
			s.Assets.Notice = ev.Notice
		}
	case DetailNoticeRaised:
		s.Detail.Notice = ev.Notice
	case ActionStarted:
		s.Busy |= ev.Action
	case ActionFinished:
		s.Busy &^= ev.Action
	case CredentialIssued:
		a := ev.Approval
		s.Credential = &a
	case Presented:
		s.Credential = nil
		s.Onboarding.Notice = Notice{}
		s.Vault.Notice = Notice{}
		s.Owners.Notice = Notice{}
		s.Assets.Notice = Notice{}
		s.Detail.Notice = Notice{}
	}
	return s
}

// requested drops the previous rows: a list is rebuilt from scratch on
// every fetch.
func requested[T any](v ListView[T]) ListView[T] {
	v.Gen++
	v.Loading = true
	v.Items = nil
	v.Err = ""
	return v
}

func loaded[T any](v ListView[T], ev ListLoaded[T]) ListView[T] {
	if ev.Gen != v.Gen {
		return v
	}
	v.Loading = false
	v.Loaded = true
	v.Items = ev.Items
	v.Err = ""
	return v
}

func failed[T any](v ListView[T], ev ListFailed) ListView[T] {
	if ev.Gen != v.Gen {
		return v
	}
	v.Loading = false
	v.Loaded = true
	v.Items = nil
	v.Err = ev.Err
	return v
}

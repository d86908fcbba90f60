package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/model"
)

// Errors returned by Panel operations.
var (
	ErrUnauthenticated = errors.New("session is not authenticated")
	ErrBusy            = errors.New("action already in progress")
	ErrNotConfirmed    = errors.New("approval was not confirmed")
	ErrUnknownTab      = errors.New("unknown tab")
	ErrNoFile          = errors.New("no file attached")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// msgChooseFile is shown when an upload is submitted without a file.
const msgChooseFile = "Choose a file"

// Backend is the subset of the Atlas API the console uses.
type Backend interface {
	Me(ctx context.Context) (*model.Identity, error)
	ListOnboarding(ctx context.Context, status string, limit int) ([]model.OnboardingSubmission, error)
	GetOnboarding(ctx context.Context, id string) (*model.OnboardingSubmission, error)
	SetOnboardingStatus(ctx context.Context, id string, update model.StatusUpdate) error
	ApproveOnboarding(ctx context.Context, id string) (*model.Approval, error)
	Ingest(ctx context.Context, in model.IngestRequest) (*model.IngestResult, error)
	ListVaultObjects(ctx context.Context, sourceKey string, limit int) ([]model.VaultObject, error)
	ListOwners(ctx context.Context, limit int) ([]model.Owner, error)
	CreateOwner(ctx context.Context, in model.OwnerInput) (string, error)
	ListAssets(ctx context.Context, limit int) ([]model.Asset, error)
	CreateAsset(ctx context.Context, in model.AssetInput) (string, error)
}

// Panel drives one operator's console. It is safe for concurrent use;
// backend calls are made without holding the state lock.
type Panel struct {
	backend Backend

	mu    sync.Mutex
	state State
}

// New returns a panel that has not yet passed the session check.
func New(backend Backend) *Panel {
	return &Panel{backend: backend, state: NewState()}
}

func (p *Panel) dispatch(ev Event) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Reduce(p.state, ev)
	return p.state
}

// Snapshot returns the current state.
func (p *Panel) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Present returns the state to render and drops everything that must be
// shown only once: inline notices and the approval credential.
func (p *Panel) Present() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	p.state = Reduce(s, Presented{})
	return s
}

// begin marks a as in flight, or fails with ErrBusy if it already is.
// The returned func clears the mark.
func (p *Panel) begin(a Action) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if p.state.IsBusy(a) {
		return nil, fmt.Errorf("%s: %w", a, ErrBusy)
	}
	p.state = Reduce(p.state, ActionStarted{Action: a})
	return func() { p.dispatch(ActionFinished{Action: a}) }, nil
}

func (p *Panel) requireAuth() error {
	if !p.Snapshot().Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// checkSession resets the panel when err shows that the backend session has
// ended, so that the next request goes through the session check again.
func (p *Panel) checkSession(err error) error {
	if err != nil && atlas.IsUnauthorized(err) {
		p.dispatch(SignedOut{})
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return err
}

// verify confirms the backend session is still valid. Errors other than a
// rejected session are returned unchanged and leave the state alone.
func (p *Panel) verify(ctx context.Context) error {
	id, err := p.backend.Me(ctx)
	if err != nil {
		return p.checkSession(err)
	}
	if !id.Authenticated() {
		p.dispatch(SignedOut{})
		return ErrUnauthenticated
	}
	return nil
}

// Start runs the session check and, when it passes, activates the
// onboarding tab. Any failure of the check yields ErrUnauthenticated and
// resets the panel; there is no retry.
func (p *Panel) Start(ctx context.Context) error {
	id, err := p.backend.Me(ctx)
	if err != nil || !id.Authenticated() {
		p.dispatch(SignedOut{})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return ErrUnauthenticated
	}
	p.dispatch(Authenticated{Email: id.Email})
	return p.Activate(ctx, TabOnboarding)
}

// Activate makes tab the visible view and re-fetches its list. The
// returned error is the fetch error, which is also recorded in the view.
func (p *Panel) Activate(ctx context.Context, tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	if err := p.requireAuth(); err != nil {
		return err
	}
	p.dispatch(TabActivated{Tab: tab})
	return p.refresh(ctx, tab)
}

// Show makes tab the visible view without fetching its list, unless the
// tab has never been loaded. The backend session is re-checked first so that
// cached rows are never shown after it has ended.
func (p *Panel) Show(ctx context.Context, tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	if err := p.requireAuth(); err != nil {
		return err
	}
	err := p.verify(ctx)
	if errors.Is(err, ErrUnauthenticated) {
		return err
	}
	if err != nil {
		slog.Warn("session re-check failed", "error", err)
	}
	s := p.dispatch(TabShown{Tab: tab})
	if !listLoaded(s, tab) {
		return p.refresh(ctx, tab)
	}
	return nil
}

func listLoaded(s State, tab Tab) bool {
	switch tab {
	case TabOnboarding:
		return s.Onboarding.Loaded || s.Onboarding.Loading
	case TabVault:
		return s.Vault.Loaded || s.Vault.Loading
	case TabOwners:
		return s.Owners.Loaded || s.Owners.Loading
	case TabAssets:
		return s.Assets.Loaded || s.Assets.Loading
	}
	return false
}

// SetFilter changes the list filter of the onboarding (status) or vault
// (source key) tab and re-fetches it. An empty filter selects "all".
func (p *Panel) SetFilter(ctx context.Context, tab Tab, filter string) error {
	if err := p.requireAuth(); err != nil {
		return err
	}
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = "all"
	}
	switch tab {
	case TabOnboarding:
		if filter != "all" && !model.ValidOnboardingStatus(filter) {
			return fmt.Errorf("%w: status %q", ErrInvalidFilter, filter)
		}
	case TabVault:
	default:
		return fmt.Errorf("%w: tab %s has no filter", ErrInvalidFilter, tab)
	}
	p.dispatch(FilterChanged{Tab: tab, Filter: filter})
	p.dispatch(TabShown{Tab: tab})
	return p.refresh(ctx, tab)
}

// refresh re-fetches the list of tab.
func (p *Panel) refresh(ctx context.Context, tab Tab) error {
	switch tab {
	case TabOnboarding:
		return load(ctx, p, tab, func(ctx context.Context, filter string) ([]model.OnboardingSubmission, error) {
			return p.backend.ListOnboarding(ctx, filter, PageSize)
		})
	case TabVault:
		return load(ctx, p, tab, func(ctx context.Context, filter string) ([]model.VaultObject, error) {
			return p.backend.ListVaultObjects(ctx, filter, PageSize)
		})
	case TabOwners:
		return load(ctx, p, tab, func(ctx context.Context, _ string) ([]model.Owner, error) {
			return p.backend.ListOwners(ctx, PageSize)
		})
	case TabAssets:
		return load(ctx, p, tab, func(ctx context.Context, _ string) ([]model.Asset, error) {
			return p.backend.ListAssets(ctx, PageSize)
		})
	}
	return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
}

func load[T any](ctx context.Context, p *Panel, tab Tab, fetch func(context.Context, string) ([]T, error)) error {
	s := p.dispatch(ListRequested{Tab: tab})
	gen := s.gen(tab)

	items, err := fetch(ctx, s.filter(tab))
	if err != nil {
		p.dispatch(ListFailed{Tab: tab, Gen: gen, Err: err.Error()})
		return p.checkSession(fmt.Errorf("loading %s: %w", tab, err))
	}
	p.dispatch(ListLoaded[T]{Gen: gen, Items: items})
	return nil
}

// OpenSubmission loads a submission into the detail pane.
func (p *Panel) OpenSubmission(ctx context.Context, id string) error {
	if err := p.requireAuth(); err != nil {
		return err
	}
	p.dispatch(TabShown{Tab: TabOnboarding})
	return p.loadDetail(ctx, id)
}

func (p *Panel) loadDetail(ctx context.Context, id string) error {
	s := p.dispatch(DetailRequested{ID: id})
	gen := s.Detail.Gen

	sub, err := p.backend.GetOnboarding(ctx, id)
	if err != nil {
		p.dispatch(DetailFailed{Gen: gen, Err: err.Error()})
		return p.checkSession(fmt.Errorf("loading submission %s: %w", id, err))
	}
	p.dispatch(DetailLoaded{Gen: gen, Submission: sub})
	return nil
}

// CloseSubmission hides the detail pane.
func (p *Panel) CloseSubmission() {
	p.dispatch(DetailClosed{})
}

// refreshOnboarding re-fetches the onboarding list and the detail of id
// concurrently.
func (p *Panel) refreshOnboarding(ctx context.Context, id string) error {
	// A failed list fetch must not cancel the detail fetch, so the group
	// carries no derived context.
	var g errgroup.Group
	g.Go(func() error { return p.refresh(ctx, TabOnboarding) })
	g.Go(func() error { return p.loadDetail(ctx, id) })
	return g.Wait()
}

// UpdateStatus assigns a status and notes to a submission, then refreshes
// the onboarding list and the detail pane.
func (p *Panel) UpdateStatus(ctx context.Context, id, status, notes string) error {
	release, err := p.begin(ActionUpdateStatus)
	if err != nil {
		return err
	}
	defer release()

	update := model.StatusUpdate{Status: strings.TrimSpace(status), Notes: strings.TrimSpace(notes)}
	if err := p.backend.SetOnboardingStatus(ctx, id, update); err != nil {
		p.dispatch(DetailNoticeRaised{Notice: Notice{Kind: NoticeError, Text: err.Error()}})
		return p.checkSession(fmt.Errorf("updating status of %s: %w", id, err))
	}

	slog.Info("onboarding status updated", "submission", id, "status", update.Status)
	p.dispatch(DetailNoticeRaised{Notice: Notice{Kind: NoticeSuccess, Text: "Status set to " + update.Status + "."}})
	return p.refreshOnboarding(ctx, id)
}

// Approve approves a submission. It refuses to contact the backend unless
// confirmed is true. On success the one-time credential is held for the
// next Present and the list and detail are refreshed.
func (p *Panel) Approve(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	release, err := p.begin(ActionApprove)
	if err != nil {
		return err
	}
	defer release()

	approval, err := p.backend.ApproveOnboarding(ctx, id)
	if err != nil {
		p.dispatch(DetailNoticeRaised{Notice: Notice{Kind: NoticeError, Text: err.Error()}})
		return p.checkSession(fmt.Errorf("approving %s: %w", id, err))
	}

	slog.Info("onboarding approved", "submission", id, "user", approval.UserEmail)
	p.dispatch(CredentialIssued{Approval: *approval})
	p.dispatch(DetailNoticeRaised{Notice: Notice{Kind: NoticeSuccess, Text: "Submission approved."}})
	return p.refreshOnboarding(ctx, id)
}

// Ingest uploads a bundle to the vault and refreshes the object list.
// Without a file it records "Choose a file" and makes no backend call.
func (p *Panel) Ingest(ctx context.Context, in model.IngestRequest) error {
	if err := p.requireAuth(); err != nil {
		return err
	}
	if in.Bundle == nil {
		p.dispatch(NoticeRaised{Tab: TabVault, Notice: Notice{Kind: NoticeError, Text: msgChooseFile}})
		return ErrNoFile
	}

	in.SourceKey = strings.TrimSpace(in.SourceKey)
	if in.SourceKey == "" {
		in.SourceKey = model.SourceDossier
	}
	in.OrgID = strings.TrimSpace(in.OrgID)
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.SchemaVersion = strings.TrimSpace(in.SchemaVersion)

	release, err := p.begin(ActionIngest)
	if err != nil {
		return err
	}
	defer release()

	res, err := p.backend.Ingest(ctx, in)
	if err != nil {
		p.dispatch(NoticeRaised{Tab: TabVault, Notice: Notice{Kind: NoticeError, Text: err.Error()}})
		return p.checkSession(fmt.Errorf("ingesting %s: %w", in.Filename, err))
	}

	slog.Info("vault object ingested", "object", res.ObjectID, "source", in.SourceKey, "sha256", res.SHA256)
	p.dispatch(NoticeRaised{Tab: TabVault, Notice: Notice{
		Kind: NoticeSuccess,
		Text: fmt.Sprintf("Stored object %s (sha256 %s).", res.ObjectID, res.SHA256),
	}})
	return p.refresh(ctx, TabVault)
}

// CreateOwner trims the form, creates the owner and refreshes the list.
func (p *Panel) CreateOwner(ctx context.Context, in model.OwnerInput) error {
	release, err := p.begin(ActionCreateOwner)
	if err != nil {
		return err
	}
	defer release()

	in = trimOwner(in)
	id, err := p.backend.CreateOwner(ctx, in)
	if err != nil {
		p.dispatch(NoticeRaised{Tab: TabOwners, Notice: Notice{Kind: NoticeError, Text: err.Error()}})
		return p.checkSession(fmt.Errorf("creating owner: %w", err))
	}

	slog.Info("owner created", "owner", id, "legal_name", in.LegalName)
	p.dispatch(NoticeRaised{Tab: TabOwners, Notice: Notice{Kind: NoticeSuccess, Text: "Created owner " + id + "."}})
	return p.refresh(ctx, TabOwners)
}

// CreateAsset trims the form, creates the asset and refreshes the list.
// An empty owner id is sent as null.
func (p *Panel) CreateAsset(ctx context.Context, in model.AssetInput) error {
	release, err := p.begin(ActionCreateAsset)
	if err != nil {
		return err
	}
	defer release()

	in = trimAsset(in)
	id, err := p.backend.CreateAsset(ctx, in)
	if err != nil {
		p.dispatch(NoticeRaised{Tab: TabAssets, Notice: Notice{Kind: NoticeError, Text: err.Error()}})
		return p.checkSession(fmt.Errorf("creating asset: %w", err))
	}

	slog.Info("asset created", "asset", id, "title", in.Title)
	p.dispatch(NoticeRaised{Tab: TabAssets, Notice: Notice{Kind: NoticeSuccess, Text: "Created asset " + id + "."}})
	return p.refresh(ctx, TabAssets)
}

func trimOwner(in model.OwnerInput) model.OwnerInput {
	in.LegalName = strings.TrimSpace(in.LegalName)
	in.EntityType = strings.TrimSpace(in.EntityType)
	in.Jurisdiction = strings.TrimSpace(in.Jurisdiction)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func trimAsset(in model.AssetInput) model.AssetInput {
	if in.OwnerID != nil {
		owner := strings.TrimSpace(*in.OwnerID)
		if owner == "" {
			in.OwnerID = nil
		} else {
			in.OwnerID = &owner
		}
	}
	in.Title = strings.TrimSpace(in.Title)
	in.AssetType = strings.TrimSpace(in.AssetType)
	in.Jurisdictions = strings.TrimSpace(in.Jurisdictions)
	in.RegNo = strings.TrimSpace(in.RegNo)
	in.Status = strings.TrimSpace(in.Status)
	in.PriorityDate = strings.TrimSpace(in.PriorityDate)
	in.Inventors = strings.TrimSpace(in.Inventors)
	in.CurrentOwnerEntity = strings.TrimSpace(in.CurrentOwnerEntity)
	in.Encumbrances = strings.TrimSpace(in.Encumbrances)
	in.Description = strings.TrimSpace(in.Description)
	in.Targets = strings.TrimSpace(in.Targets)
	return in
}

// Notify attaches an inline notice to the list view of tab. The web layer
// uses it for request errors detected before an action reaches the panel.
func (p *Panel) Notify(tab Tab, kind NoticeKind, text string) {
	p.dispatch(NoticeRaised{Tab: tab, Notice: Notice{Kind: kind, Text: text}})
}

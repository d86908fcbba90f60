package panel

import (
	"context"
	"io"
	"sync"

	"github.com/erazemk/atlas/internal/model"
)

// fakeBackend records calls and returns canned data.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	identity *model.Identity
	meErr    error

	onboarding []model.OnboardingSubmission
	listErr    error
	submission *model.OnboardingSubmission
	getErr     error
	approval   *model.Approval
	approveErr error
	statusErr  error

	vault   []model.VaultObject
	owners  []model.Owner
	assets  []model.Asset
	ingest    *model.IngestResult
	ingestErr error
	created   string
	createErr error

	lastStatus   string
	lastUpdate   model.StatusUpdate
	lastIngest   model.IngestRequest
	lastIngested []byte
	lastOwner    model.OwnerInput
	lastAsset    model.AssetInput

	// block, when set, is received from before ApproveOnboarding returns.
	block chan struct{}
	// entered is signalled when ApproveOnboarding starts.
	entered chan struct{}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeBackend) Me(context.Context) (*model.Identity, error) {
	f.record("me")
	return f.identity, f.meErr
}

func (f *fakeBackend) ListOnboarding(_ context.Context, status string, _ int) ([]model.OnboardingSubmission, error) {
	f.record("list_onboarding")
	f.mu.Lock()
	f.lastStatus = status
	f.mu.Unlock()
	return f.onboarding, f.listErr
}

func (f *fakeBackend) GetOnboarding(context.Context, string) (*model.OnboardingSubmission, error) {
	f.record("get_onboarding")
	return f.submission, f.getErr
}

func (f *fakeBackend) SetOnboardingStatus(_ context.Context, _ string, u model.StatusUpdate) error {
	f.record("set_status")
	f.mu.Lock()
	f.lastUpdate = u
	f.mu.Unlock()
	return f.statusErr
}

func (f *fakeBackend) ApproveOnboarding(context.Context, string) (*model.Approval, error) {
	f.record("approve")
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.approval, f.approveErr
}

func (f *fakeBackend) Ingest(_ context.Context, in model.IngestRequest) (*model.IngestResult, error) {
	f.record("ingest")
	data, _ := io.ReadAll(in.Bundle)
	f.mu.Lock()
	f.lastIngest = in
	f.lastIngested = data
	f.mu.Unlock()
	return f.ingest, f.ingestErr
}

func (f *fakeBackend) ListVaultObjects(context.Context, string, int) ([]model.VaultObject, error) {
	f.record("list_vault")
	return f.vault, nil
}

func (f *fakeBackend) ListOwners(context.Context, int) ([]model.Owner, error) {
	f.record("list_owners")
	return f.owners, nil
}

func (f *fakeBackend) CreateOwner(_ context.Context, in model.OwnerInput) (string, error) {
	f.record("create_owner")
	f.mu.Lock()
	f.lastOwner = in
	f.mu.Unlock()
	return f.created, f.createErr
}

func (f *fakeBackend) ListAssets(context.Context, int) ([]model.Asset, error) {
	f.record("list_assets")
	return f.assets, nil
}

func (f *fakeBackend) CreateAsset(_ context.Context, in model.AssetInput) (string, error) {
	f.record("create_asset")
	f.mu.Lock()
	f.lastAsset = in
	f.mu.Unlock()
	return f.created, f.createErr
}

package panel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/model"
)

func signedIn(t *testing.T, f *fakeBackend) *Panel {
	t.Helper()
	if f.identity == nil {
		f.identity = &model.Identity{Email: "ops@example.com", Role: "admin"}
	}
	p := New(f)
	require.NoError(t, p.Start(context.Background()))
	return p
}

func TestStartUnauthenticated(t *testing.T) {
	f := &fakeBackend{meErr: errors.New("HTTP 401")}
	p := New(f)

	err := p.Start(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, p.Snapshot().Authenticated())
	assert.Zero(t, f.count("list_onboarding"))
}

func TestStartWithoutEmail(t *testing.T) {
	f := &fakeBackend{identity: &model.Identity{}}
	err := New(f).Start(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStartLoadsOnboarding(t *testing.T) {
	f := &fakeBackend{onboarding: []model.OnboardingSubmission{{ID: "s1"}}}
	p := signedIn(t, f)

	s := p.Snapshot()
	assert.Equal(t, "ops@example.com", s.Email)
	assert.Equal(t, TabOnboarding, s.Active)
	assert.Len(t, s.Onboarding.Items, 1)
	assert.Equal(t, model.StatusSubmitted, f.lastStatus)
}

func TestActionsRequireAuth(t *testing.T) {
	p := New(&fakeBackend{})
	ctx := context.Background()

	assert.ErrorIs(t, p.Activate(ctx, TabVault), ErrUnauthenticated)
	assert.ErrorIs(t, p.UpdateStatus(ctx, "s1", "approved", ""), ErrUnauthenticated)
	assert.ErrorIs(t, p.Approve(ctx, "s1", true), ErrUnauthenticated)
	assert.ErrorIs(t, p.CreateOwner(ctx, model.OwnerInput{}), ErrUnauthenticated)
}

func TestActivateRefetchesAndReplacesRows(t *testing.T) {
	f := &fakeBackend{owners: []model.Owner{{ID: "o1"}, {ID: "o2"}}}
	p := signedIn(t, f)
	ctx := context.Background()

	require.NoError(t, p.Activate(ctx, TabOwners))
	assert.Len(t, p.Snapshot().Owners.Items, 2)

	f.owners = []model.Owner{{ID: "o3"}}
	require.NoError(t, p.Activate(ctx, TabOwners))

	s := p.Snapshot()
	require.Len(t, s.Owners.Items, 1)
	assert.Equal(t, "o3", s.Owners.Items[0].ID)
	assert.Equal(t, 2, f.count("list_owners"))
}

func TestShowDoesNotRefetchLoadedTab(t *testing.T) {
	f := &fakeBackend{}
	p := signedIn(t, f)
	ctx := context.Background()

	require.NoError(t, p.Show(ctx, TabAssets))
	require.NoError(t, p.Show(ctx, TabAssets))
	assert.Equal(t, 1, f.count("list_assets"))
	assert.Equal(t, TabAssets, p.Snapshot().Active)
}

func TestActivateListError(t *testing.T) {
	f := &fakeBackend{}
	p := signedIn(t, f)
	f.listErr = errors.New("HTTP 500")

	err := p.Activate(context.Background(), TabOnboarding)
	require.Error(t, err)

	s := p.Snapshot()
	assert.Equal(t, "HTTP 500", s.Onboarding.Err)
	assert.Empty(t, s.Onboarding.Items)
}

func TestSetFilter(t *testing.T) {
	f := &fakeBackend{}
	p := signedIn(t, f)
	ctx := context.Background()

	require.NoError(t, p.SetFilter(ctx, TabOnboarding, ""))
	assert.Equal(t, "all", f.lastStatus)
	assert.ErrorIs(t, p.SetFilter(ctx, TabOnboarding, "bogus"), ErrInvalidFilter)
	assert.ErrorIs(t, p.SetFilter(ctx, TabOwners, "x"), ErrInvalidFilter)
}

func TestIngestWithoutFile(t *testing.T) {
	f := &fakeBackend{}
	p := signedIn(t, f)

	err := p.Ingest(context.Background(), model.IngestRequest{SourceKey: "dossier"})
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, f.count("ingest"))
	assert.Equal(t, "Choose a file", p.Present().Vault.Notice.Text)
}

func TestIngest(t *testing.T) {
	f := &fakeBackend{ingest: &model.IngestResult{ObjectID: "obj1", SHA256: "abc"}}
	p := signedIn(t, f)

	err := p.Ingest(context.Background(), model.IngestRequest{
		SourceKey: "  ",
		OrgID:     " org ",
		Filename:  "b.zip",
		Bundle:    strings.NewReader("payload"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SourceDossier, f.lastIngest.SourceKey)
	assert.Equal(t, "org", f.lastIngest.OrgID)
	assert.Equal(t, "payload", string(f.lastIngested))
	assert.Equal(t, 1, f.count("list_vault"))

	s := p.Present()
	assert.Equal(t, NoticeSuccess, s.Vault.Notice.Kind)
	assert.Contains(t, s.Vault.Notice.Text, "obj1")
	assert.True(t, p.Snapshot().Vault.Notice.IsZero())
}

func TestCreateAssetEmptyOwnerIsNull(t *testing.T) {
	f := &fakeBackend{created: "a1"}
	p := signedIn(t, f)
	blank := "   "

	require.NoError(t, p.CreateAsset(context.Background(), model.AssetInput{OwnerID: &blank, Title: " Patent "}))
	assert.Nil(t, f.lastAsset.OwnerID)
	assert.Equal(t, "Patent", f.lastAsset.Title)
	assert.Equal(t, 1, f.count("list_assets"))
}

func TestCreateOwnerTrims(t *testing.T) {
	f := &fakeBackend{created: "o1"}
	p := signedIn(t, f)

	require.NoError(t, p.CreateOwner(context.Background(), model.OwnerInput{LegalName: " Acme ", Email: " a@acme.test "}))
	assert.Equal(t, "Acme", f.lastOwner.LegalName)
	assert.Equal(t, "a@acme.test", f.lastOwner.Email)
	assert.Equal(t, "Created owner o1.", p.Present().Owners.Notice.Text)
}

func TestUpdateStatusRefreshesListAndDetail(t *testing.T) {
	f := &fakeBackend{submission: &model.OnboardingSubmission{ID: "s1", Status: "approved"}}
	p := signedIn(t, f)
	ctx := context.Background()

	require.NoError(t, p.UpdateStatus(ctx, "s1", " approved ", " ok "))
	assert.Equal(t, model.StatusUpdate{Status: "approved", Notes: "ok"}, f.lastUpdate)
	assert.Equal(t, 2, f.count("list_onboarding"))
	assert.Equal(t, 1, f.count("get_onboarding"))

	s := p.Snapshot()
	require.NotNil(t, s.Detail.Submission)
	assert.Equal(t, "approved", s.Detail.Submission.Status)
	assert.False(t, s.IsBusy(ActionUpdateStatus))
}

func TestUpdateStatusFailureKeepsDetail(t *testing.T) {
	f := &fakeBackend{submission: &model.OnboardingSubmission{ID: "s1"}}
	p := signedIn(t, f)
	ctx := context.Background()
	require.NoError(t, p.OpenSubmission(ctx, "s1"))

	f.statusErr = errors.New("invalid status")
	require.Error(t, p.UpdateStatus(ctx, "s1", "nope", ""))

	s := p.Snapshot()
	assert.Equal(t, "invalid status", s.Detail.Notice.Text)
	assert.NotNil(t, s.Detail.Submission)
}

func TestApproveRequiresConfirmation(t *testing.T) {
	f := &fakeBackend{}
	p := signedIn(t, f)

	err := p.Approve(context.Background(), "s1", false)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Zero(t, f.count("approve"))
}

func TestApproveShowsCredentialOnce(t *testing.T) {
	f := &fakeBackend{
		approval:   &model.Approval{UserEmail: "owner@acme.test", TempPassword: "s3cret"},
		submission: &model.OnboardingSubmission{ID: "s1", Status: "approved"},
	}
	p := signedIn(t, f)

	require.NoError(t, p.Approve(context.Background(), "s1", true))
	assert.Equal(t, 2, f.count("list_onboarding"))
	assert.Equal(t, 1, f.count("get_onboarding"))

	first := p.Present()
	require.NotNil(t, first.Credential)
	assert.Equal(t, "s3cret", first.Credential.TempPassword)

	second := p.Present()
	assert.Nil(t, second.Credential)
}

func TestApproveBusy(t *testing.T) {
	f := &fakeBackend{
		approval: &model.Approval{UserEmail: "u@x.test", TempPassword: "pw"},
		block:    make(chan struct{}),
		entered:  make(chan struct{}),
	}
	p := signedIn(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- p.Approve(ctx, "s1", true) }()

	select {
	case <-f.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("approve never reached the backend")
	}

	assert.ErrorIs(t, p.Approve(ctx, "s1", true), ErrBusy)
	assert.True(t, p.Snapshot().IsBusy(ActionApprove))

	close(f.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.count("approve"))
	assert.False(t, p.Snapshot().IsBusy(ActionApprove))
}

func TestOpenSubmissionError(t *testing.T) {
	f := &fakeBackend{getErr: errors.New("Not found")}
	p := signedIn(t, f)

	require.Error(t, p.OpenSubmission(context.Background(), "missing"))
	s := p.Snapshot()
	assert.True(t, s.Detail.Open())
	assert.Equal(t, "Not found", s.Detail.Err)

	p.CloseSubmission()
	assert.False(t, p.Snapshot().Detail.Open())
}

func TestCreateFailureShowsNotice(t *testing.T) {
	tests := []struct {
		name   string
		tab    Tab
		list   string
		create func(*Panel) error
	}{
		{
			name: "owner",
			tab:  TabOwners,
			list: "list_owners",
			create: func(p *Panel) error {
				return p.CreateOwner(context.Background(), model.OwnerInput{LegalName: "Acme"})
			},
		},
		{
			name: "asset",
			tab:  TabAssets,
			list: "list_assets",
			create: func(p *Panel) error {
				return p.CreateAsset(context.Background(), model.AssetInput{Title: "Patent"})
			},
		},
		{
			name: "ingest",
			tab:  TabVault,
			list: "list_vault",
			create: func(p *Panel) error {
				return p.Ingest(context.Background(), model.IngestRequest{Bundle: strings.NewReader("x")})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			badInput := &atlas.APIError{Status: 400, Detail: "bad input"}
			f := &fakeBackend{createErr: badInput, ingestErr: badInput}
			p := signedIn(t, f)

			err := tt.create(p)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrUnauthenticated)
			assert.Zero(t, f.count(tt.list), "no refresh after a failed create")

			s := p.Present()
			assert.True(t, s.Authenticated())
			var notice Notice
			switch tt.tab {
			case TabOwners:
				notice = s.Owners.Notice
			case TabAssets:
				notice = s.Assets.Notice
			case TabVault:
				notice = s.Vault.Notice
			}
			assert.Equal(t, Notice{Kind: NoticeError, Text: "bad input"}, notice)
		})
	}
}

func TestBackendRejectionSignsOut(t *testing.T) {
	expired := &atlas.APIError{Status: 401, Detail: "login required"}

	tests := []struct {
		name string
		run  func(*fakeBackend, *Panel) error
	}{
		{
			name: "list",
			run: func(f *fakeBackend, p *Panel) error {
				f.listErr = expired
				return p.Activate(context.Background(), TabOnboarding)
			},
		},
		{
			name: "detail",
			run: func(f *fakeBackend, p *Panel) error {
				f.getErr = expired
				return p.OpenSubmission(context.Background(), "s1")
			},
		},
		{
			name: "create",
			run: func(f *fakeBackend, p *Panel) error {
				f.createErr = expired
				return p.CreateOwner(context.Background(), model.OwnerInput{LegalName: "Acme"})
			},
		},
		{
			name: "show cached tab",
			run: func(f *fakeBackend, p *Panel) error {
				f.meErr = expired
				return p.Show(context.Background(), TabOnboarding)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBackend{onboarding: []model.OnboardingSubmission{{ID: "s1"}}}
			p := signedIn(t, f)

			err := tt.run(f, p)
			assert.ErrorIs(t, err, ErrUnauthenticated)

			s := p.Snapshot()
			assert.False(t, s.Authenticated())
			assert.Empty(t, s.Onboarding.Items)
		})
	}
}

func TestShowKeepsRowsWhenBackendUnreachable(t *testing.T) {
	f := &fakeBackend{onboarding: []model.OnboardingSubmission{{ID: "s1"}}}
	p := signedIn(t, f)
	f.meErr = errors.New("connection refused")

	require.NoError(t, p.Show(context.Background(), TabOnboarding))
	s := p.Snapshot()
	assert.True(t, s.Authenticated())
	assert.Len(t, s.Onboarding.Items, 1)
}

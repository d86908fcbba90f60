package panel

import (
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/model"
)

// Cell is one rendered table cell. A non-empty Href renders as a link.
type Cell struct {
	Text string
	Href string
	Mono bool
}

// Table is the projection of a list view onto fixed display columns.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// TableFor projects the list of tab in s.
func TableFor(s State, tab Tab) Table {
	switch tab {
	case TabOnboarding:
		return OnboardingTable(s.Onboarding.Items)
	case TabVault:
		return VaultTable(s.Vault.Items)
	case TabOwners:
		return OwnersTable(s.Owners.Items)
	case TabAssets:
		return AssetsTable(s.Assets.Items)
	}
	return Table{}
}

// OnboardingTable renders submissions.
func OnboardingTable(items []model.OnboardingSubmission) Table {
	t := Table{Columns: []string{"Created", "Status", "Owner", "Email", "Assets", ""}}
	for _, it := range items {
		t.Rows = append(t.Rows, []Cell{
			{Text: it.CreatedAt},
			{Text: it.Status},
			{Text: it.OwnerName},
			{Text: it.OwnerEmail},
			{Text: optInt(it.IPAssetsCount)},
			openCell("/onboarding/"+url.PathEscape(it.ID), it.ID),
		})
	}
	return t
}

// VaultTable renders vault objects with a download link per row.
func VaultTable(items []model.VaultObject) Table {
	t := Table{Columns: []string{"Created", "Source", "Org", "Tenant", "Schema", "File", "Size", "SHA-256", ""}}
	for _, it := range items {
		t.Rows = append(t.Rows, []Cell{
			{Text: it.CreatedAt},
			{Text: it.SourceKey},
			{Text: it.OrgID},
			{Text: it.TenantID},
			{Text: it.SchemaVersion},
			{Text: it.Filename},
			{Text: optBytes(it.ByteSize)},
			{Text: it.SHA256, Mono: true},
			downloadCell(it.ID),
		})
	}
	return t
}

// OwnersTable renders owners.
func OwnersTable(items []model.Owner) Table {
	t := Table{Columns: []string{"Created", "Legal name", "Entity type", "Jurisdiction", "Email", "ID"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []Cell{
			{Text: it.CreatedAt},
			{Text: it.LegalName},
			{Text: it.EntityType},
			{Text: it.Jurisdiction},
			{Text: it.Email},
			{Text: it.ID, Mono: true},
		})
	}
	return t
}

// AssetsTable renders assets.
func AssetsTable(items []model.Asset) Table {
	t := Table{Columns: []string{"Created", "Title", "Type", "Status", "Reg. no.", "Owner", "ID"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []Cell{
			{Text: it.CreatedAt},
			{Text: it.Title},
			{Text: it.AssetType},
			{Text: it.Status},
			{Text: it.RegNo},
			{Text: it.OwnerName},
			{Text: it.ID, Mono: true},
		})
	}
	return t
}

func openCell(href, id string) Cell {
	if id == "" {
		return Cell{}
	}
	return Cell{Text: "Open", Href: href}
}

func downloadCell(id string) Cell {
	if id == "" {
		return Cell{}
	}
	return Cell{Text: "Download", Href: atlas.DownloadPath(id)}
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optBytes(v *int64) string {
	if v == nil || *v < 0 {
		return ""
	}
	return humanize.Bytes(uint64(*v))
}

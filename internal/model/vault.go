package model

import (
	"encoding/json"
	"io"
)

// Vault source keys known to the backend out of the box.
const (
	SourceDossier = "dossier"
	SourceBridge  = "bridge"
	SourceAll     = "all"
)

// VaultObject is an immutable, hash-addressed bundle stored by the backend.
type VaultObject struct {
	ID            string          `json:"id"`
	CreatedAt     string          `json:"created_at"`
	SourceKey     string          `json:"source_key"`
	OrgID         string          `json:"org_id"`
	TenantID      string          `json:"tenant_id"`
	SchemaVersion string          `json:"schema_version"`
	Filename      string          `json:"filename"`
	ByteSize      *int64          `json:"byte_size"`
	SHA256        string          `json:"sha256"`
	Manifest      json.RawMessage `json:"manifest_json,omitempty"`
}

// IngestRequest is a vault upload: five text fields and one file.
// Bundle is nil when no file was attached.
type IngestRequest struct {
	SourceKey     string
	OrgID         string
	TenantID      string
	SchemaVersion string
	ManifestJSON  string

	Filename string
	Bundle   io.Reader
}

// IngestResult is the backend response to a vault upload.
type IngestResult struct {
	ObjectID string `json:"object_id"`
	SHA256   string `json:"sha256"`
	ByteSize int64  `json:"byte_size"`
}

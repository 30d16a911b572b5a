package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetDocType tags every document stored on a ledger.
const AssetDocType = "asset"

// ModificationTimeFormat is the UTC layout of Asset.LastModification.
const ModificationTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Asset is a shared document as it lives in a channel's world state, keyed by
// DocumentNo.
type Asset struct {
	DocType          string `json:"docType,omitempty"`
	DocumentNo       string `json:"documentNo"`
	DocumentName     string `json:"documentName,omitempty"`
	DocumentType     string `json:"documentType,omitempty"`
	DocumentSize     string `json:"documentSize"`
	DocumentLink     string `json:"documentLink"`
	LastModification string `json:"lastModification,omitempty"`
	OwnedBy          string `json:"ownedBy,omitempty"`
}

// Touch stamps LastModification with t in ModificationTimeFormat.
func (a *Asset) Touch(t time.Time) {
	a.LastModification = t.UTC().Format(ModificationTimeFormat)
}

// DeletedAsset records a document removed from a ledger.
type DeletedAsset struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Namespace  string    `json:"namespace" db:"namespace"`
	DocumentNo string    `json:"documentNo" db:"document_no"`
	Asset      *Asset    `json:"asset" db:"-"`
	DeletedBy  string    `json:"deletedBy" db:"deleted_by"`
	DeletedAt  time.Time `json:"deletedAt" db:"deleted_at"`
}

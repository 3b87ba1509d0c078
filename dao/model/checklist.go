package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChecklistItem is one required document within a checklist template.
// VaultKey optionally links the item to the submitter's document vault so
// previously uploaded evidence can prefill the slot URL at submission.
type ChecklistItem struct {
	Name     string `json:"name"`
	Note     string `json:"note"`
	VaultKey string `json:"vaultKey"`
}

// ChecklistTemplate is the static category -> required-documents table.
// Submission forms derive the initial DocumentSlot list from the template
// matching the request type and sub-category; the engine itself only ever
// sees the resulting slots.
type ChecklistTemplate struct {
	gorm.Model
	Type        RequestType                          `gorm:"type:varchar(32);not null;uniqueIndex:idx_checklist_key"`
	SubCategory string                               `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_checklist_key"`
	Items       datatypes.JSONSlice[ChecklistItem]   `gorm:"comment:required documents in requirement order"`
}

// VaultDocument is one previously uploaded piece of evidence in a user's
// personal document vault, keyed for reuse across requests. Slots created
// from the vault are snapshots: later vault changes do not propagate.
type VaultDocument struct {
	gorm.Model
	UserID uint   `gorm:"not null;uniqueIndex:idx_vault_key;comment:vault owner"`
	Key    string `gorm:"type:varchar(64);not null;uniqueIndex:idx_vault_key;comment:stable lookup key"`
	Name   string `gorm:"type:varchar(128);not null;comment:human label"`
	URL    string `gorm:"type:varchar(512);not null;comment:storage link"`
}

package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestType enumerates the supported personnel request categories.
type RequestType string

const (
	RequestTypePromotion  RequestType = "promotion"
	RequestTypeTransfer   RequestType = "transfer"
	RequestTypeRetirement RequestType = "retirement"
	RequestTypeLeave      RequestType = "leave"
)

// RequestStatus is the service request lifecycle state.
// Transitions between statuses are owned by pkg/workflow; nothing else
// may write this column.
type RequestStatus string

const (
	RequestStatusSubmitted         RequestStatus = "submitted"
	RequestStatusUnderReviewUnit   RequestStatus = "under_review_unit"
	RequestStatusReturnedToUser    RequestStatus = "returned_to_user"
	RequestStatusApprovedByUnit    RequestStatus = "approved_by_unit"
	RequestStatusUnderReviewCentral RequestStatus = "under_review_central"
	RequestStatusApprovedFinal     RequestStatus = "approved_final"
	RequestStatusRejected          RequestStatus = "rejected"
)

// IsTerminal reports whether no further transitions are permitted.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApprovedFinal || s == RequestStatusRejected
}

// RequestContent carries the type-specific payload filled by the
// submission form. Only the fields matching the request type are set.
type RequestContent struct {
	SubCategory    string  `json:"subCategory"`              // e.g. promotion sub-category keying the checklist
	Reason         string  `json:"reason"`                   // free-text justification
	TargetGrade    *string `json:"targetGrade,omitempty"`    // promotion
	TargetUnitID   *uint   `json:"targetUnitID,omitempty"`   // transfer
	LeaveFrom      *string `json:"leaveFrom,omitempty"`      // leave, ISO date
	LeaveTo        *string `json:"leaveTo,omitempty"`        // leave, ISO date
	RetirementDate *string `json:"retirementDate,omitempty"` // retirement, ISO date
}

// ServiceRequest is a personnel HR request routed through the two-tier
// review hierarchy. Requests are never physically deleted; the rejected
// status is the soft-delete terminal state.
type ServiceRequest struct {
	gorm.Model
	RefCode string      `gorm:"uniqueIndex;type:varchar(16);not null;comment:human-facing reference code"`
	Type    RequestType `gorm:"type:varchar(32);not null;comment:request category"`
	Status RequestStatus `gorm:"type:varchar(32);not null;default:submitted;comment:lifecycle state"`

	// Immutable after submission.
	SubmitterID uint `gorm:"not null;index;comment:owning user"`
	Submitter   User `gorm:"foreignKey:SubmitterID"`
	UnitID      uint `gorm:"not null;index;comment:owning unit"`
	Unit        Unit `gorm:"foreignKey:UnitID"`

	Content datatypes.JSONType[RequestContent] `gorm:"comment:type-specific payload"`

	Documents []DocumentSlot `gorm:"foreignKey:RequestID"`

	ApprovedAt *time.Time `gorm:"comment:set when the request reaches approved_final"`
}

// VerificationStatus is the per-document checklist sub-state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending_review"
	VerificationVerified VerificationStatus = "verified"
	VerificationNeedsFix VerificationStatus = "needs_fix"
)

// DocumentSlot is one required piece of evidence attached to a request.
// Slots are owned exclusively by one request and ordered by insertion,
// which is the requirement order of the checklist.
//
// A slot with an empty URL is "not provided" regardless of its
// verification status and never counts toward the approval gate.
type DocumentSlot struct {
	gorm.Model
	RequestID uint   `gorm:"not null;index;comment:owning request"`
	Position  int    `gorm:"not null;comment:requirement order within the checklist"`
	Name      string `gorm:"type:varchar(128);not null;comment:human label"`
	URL       string `gorm:"type:varchar(512);comment:evidence link, empty until provided"`
	Note      string `gorm:"type:varchar(512);comment:guidance shown to the submitter"`

	VerificationStatus VerificationStatus `gorm:"type:varchar(32);not null;default:pending_review"`
	VerificationNote   string             `gorm:"type:varchar(512);comment:reviewer note, shown to submitter on needs_fix"`
}

// Provided reports whether the submitter attached evidence to the slot.
func (d *DocumentSlot) Provided() bool {
	return d.URL != ""
}

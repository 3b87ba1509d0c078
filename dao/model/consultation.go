package model

import (
	"time"

	"gorm.io/gorm"
)

// ConsultationStatus is the consultation lifecycle state.
type ConsultationStatus string

const (
	ConsultationSubmitted          ConsultationStatus = "submitted"
	ConsultationUnderReview        ConsultationStatus = "under_review"
	ConsultationResponded          ConsultationStatus = "responded"
	ConsultationFollowUpRequested  ConsultationStatus = "follow_up_requested"
	ConsultationEscalated          ConsultationStatus = "escalated"
	ConsultationEscalatedResponded ConsultationStatus = "escalated_responded"
	ConsultationResolved           ConsultationStatus = "resolved"
	ConsultationClosed             ConsultationStatus = "closed"
)

// IsTerminal reports whether the consultation accepts no further writes.
func (s ConsultationStatus) IsTerminal() bool {
	return s == ConsultationResolved || s == ConsultationClosed
}

// ConsultationPriority enumerates urgency levels.
type ConsultationPriority string

const (
	PriorityLow    ConsultationPriority = "low"
	PriorityMedium ConsultationPriority = "medium"
	PriorityHigh   ConsultationPriority = "high"
)

// Consultation is an advisory question routed to the review hierarchy,
// with a one-way escalation path from unit to central review.
type Consultation struct {
	gorm.Model
	Subject     string               `gorm:"type:varchar(256);not null;comment:short subject line"`
	Description string               `gorm:"type:text;comment:full question text"`
	Category    string               `gorm:"type:varchar(64);comment:free-form category label"`
	Priority    ConsultationPriority `gorm:"type:varchar(16);not null;default:medium"`
	Status      ConsultationStatus   `gorm:"type:varchar(32);not null;default:submitted"`

	SubmitterID uint `gorm:"not null;index;comment:owning user"`
	Submitter   User `gorm:"foreignKey:SubmitterID"`
	UnitID      uint `gorm:"not null;index;comment:owning unit"`
	Unit        Unit `gorm:"foreignKey:UnitID"`

	// IsEscalated is monotonic: it moves false to true exactly once and
	// is never reversed. Once true, unit reviewers are read-only.
	IsEscalated bool `gorm:"not null;default:false"`

	// CurrentHandlerID is the reviewer who sent the latest answer.
	CurrentHandlerID uint `gorm:"comment:reviewer currently responsible, 0 before first answer"`

	Messages []ConsultationMessage `gorm:"foreignKey:ConsultationID"`

	ResolvedAt *time.Time `gorm:"comment:set when the consultation is resolved"`
}

// MessageType distinguishes submitter questions from reviewer answers.
type MessageType string

const (
	MessageQuestion MessageType = "question"
	MessageAnswer   MessageType = "answer"
)

// ConsultationMessage is one entry in a consultation thread.
// Messages are immutable once created; there are no edits or deletes.
type ConsultationMessage struct {
	gorm.Model
	ConsultationID uint        `gorm:"not null;index;comment:owning consultation"`
	SenderID       uint        `gorm:"not null;comment:author user id"`
	SenderRole     Role        `gorm:"not null;comment:author role at send time"`
	Content        string      `gorm:"type:text;not null"`
	MessageType    MessageType `gorm:"type:varchar(16);not null"`
	FromCentral    bool        `gorm:"not null;default:false;comment:true when sent by a central reviewer"`
}

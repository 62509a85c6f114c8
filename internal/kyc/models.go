package kyc

import (
	"time"

	"github.com/google/uuid"
)

// Status is the verification lifecycle state of a record
type Status string

const (
	StatusNotStarted           Status = "not_started"
	StatusInProgress           Status = "in_progress"
	StatusSubmitted            Status = "submitted"
	StatusUnderReview          Status = "under_review"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
	StatusResubmissionRequired Status = "resubmission_required"
)

// IDType is the kind of government identity document supplied
type IDType string

const (
	IDTypeDriversLicense IDType = "drivers_license"
	IDTypePassport       IDType = "passport"
	IDTypeNationalID     IDType = "national_id"
)

// Disclosure is the expert's criminal-history disclosure choice
type Disclosure string

const (
	DisclosureNone      Disclosure = "none"
	DisclosureDisclosed Disclosure = "disclosed"
)

// DocumentSlot is a named upload position holding at most one active reference
type DocumentSlot string

const (
	SlotBusinessLicense      DocumentSlot = "business_license"
	SlotInsuranceCertificate DocumentSlot = "insurance_certificate"
	SlotIDFront              DocumentSlot = "id_front"
	SlotIDBack               DocumentSlot = "id_back"
)

// Section groups record fields for completion reporting
type Section string

const (
	SectionBusiness   Section = "business"
	SectionIdentity   Section = "identity"
	SectionInsurance  Section = "insurance"
	SectionBackground Section = "background_check"
	SectionBanking    Section = "banking"
)

// DocumentSlots lists every slot in wizard order.
var DocumentSlots = []DocumentSlot{
	SlotBusinessLicense,
	SlotInsuranceCertificate,
	SlotIDFront,
	SlotIDBack,
}

// ValidSlot reports whether s names a known document slot.
func ValidSlot(s DocumentSlot) bool {
	for _, slot := range DocumentSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// Record is the per-expert verification record. Banking account number and
// tax id are held only as vault ciphertext; the plaintext never reaches this
// struct or any log line.
type Record struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ExpertID uuid.UUID `json:"expert_id" db:"expert_id"`

	// Business
	LicenseNumber string     `json:"license_number" db:"license_number"`
	LicenseExpiry *time.Time `json:"license_expiry" db:"license_expiry"`

	// Identity
	IDType   IDType `json:"id_type" db:"id_type"`
	IDNumber string `json:"id_number" db:"id_number"`

	// Insurance
	InsurancePolicyNumber string     `json:"insurance_policy_number" db:"insurance_policy_number"`
	InsuranceProvider     string     `json:"insurance_provider" db:"insurance_provider"`
	InsuranceExpiry       *time.Time `json:"insurance_expiry" db:"insurance_expiry"`

	// Background check
	BackgroundCheckConsent bool       `json:"background_check_consent" db:"background_check_consent"`
	CriminalDisclosure     Disclosure `json:"criminal_disclosure" db:"criminal_disclosure"`
	CriminalDetails        string     `json:"criminal_details" db:"criminal_details"`

	// Banking (sensitive)
	BankName                string `json:"bank_name" db:"bank_name"`
	AccountHolderName       string `json:"account_holder_name" db:"account_holder_name"`
	AccountNumberCiphertext string `json:"-" db:"account_number_ciphertext"`
	RoutingNumber           string `json:"routing_number" db:"routing_number"`
	TaxIDCiphertext         string `json:"-" db:"tax_id_ciphertext"`

	// Workflow
	Status                    Status     `json:"status" db:"status"`
	CurrentStep               int        `json:"current_step" db:"current_step"`
	CompletionPercentage      int        `json:"completion_percentage" db:"completion_percentage"`
	RequiredDocumentsUploaded bool       `json:"required_documents_uploaded" db:"required_documents_uploaded"`
	SubmittedAt               *time.Time `json:"submitted_at" db:"submitted_at"`
	ReviewedAt                *time.Time `json:"reviewed_at" db:"reviewed_at"`
	ApprovedAt                *time.Time `json:"approved_at" db:"approved_at"`
	RejectionReason           string     `json:"rejection_reason" db:"rejection_reason"`
	AdminNotes                string     `json:"admin_notes" db:"admin_notes"`

	Version   int       `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Documents is keyed by slot; loaded from the kyc_documents table.
	Documents map[DocumentSlot]*DocumentRef `json:"documents" db:"-"`
}

// DocumentRef points at an uploaded document in object storage
type DocumentRef struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	RecordID    uuid.UUID    `json:"-" db:"record_id"`
	Slot        DocumentSlot `json:"slot" db:"slot"`
	StorageKey  string       `json:"-" db:"storage_key"`
	URL         string       `json:"url" db:"url"`
	FileName    string       `json:"file_name" db:"file_name"`
	ContentType string       `json:"content_type" db:"content_type"`
	FileSize    int64        `json:"file_size" db:"file_size"`
	UploadedAt  time.Time    `json:"uploaded_at" db:"uploaded_at"`
}

// NewRecord creates the empty record opened the first time an expert enters
// the verification flow.
func NewRecord(expertID uuid.UUID, now time.Time) *Record {
	return &Record{
		ID:          uuid.New(),
		ExpertID:    expertID,
		Status:      StatusNotStarted,
		CurrentStep: 1,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Documents:   make(map[DocumentSlot]*DocumentRef),
	}
}

// HasDocument reports whether a slot holds an active reference.
func (r *Record) HasDocument(slot DocumentSlot) bool {
	return r.Documents[slot] != nil
}

// Document returns the active reference for a slot, or nil.
func (r *Record) Document(slot DocumentSlot) *DocumentRef {
	return r.Documents[slot]
}

// Editable reports whether the expert may currently mutate the record.
func (r *Record) Editable() bool {
	switch r.Status {
	case StatusNotStarted, StatusInProgress, StatusRejected, StatusResubmissionRequired:
		return true
	}
	return false
}

// Clone returns a deep copy, used by the in-memory store so callers never
// share the stored instance.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Documents = make(map[DocumentSlot]*DocumentRef, len(r.Documents))
	for slot, ref := range r.Documents {
		refCopy := *ref
		clone.Documents[slot] = &refCopy
	}
	if r.LicenseExpiry != nil {
		t := *r.LicenseExpiry
		clone.LicenseExpiry = &t
	}
	if r.InsuranceExpiry != nil {
		t := *r.InsuranceExpiry
		clone.InsuranceExpiry = &t
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		clone.SubmittedAt = &t
	}
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		clone.ReviewedAt = &t
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		clone.ApprovedAt = &t
	}
	return &clone
}

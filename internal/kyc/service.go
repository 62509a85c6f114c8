package kyc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/pkg/vault"
)

// ErrReasonRequired guards the two negative review outcomes.
var ErrReasonRequired = errors.New("kyc: a non-empty reason is required")

// ProfileVerifier is the expert-profile collaborator updated on approval.
type ProfileVerifier interface {
	MarkVerificationApproved(ctx context.Context, expertID uuid.UUID, verifiedAt time.Time) error
}

// Notifier delivers status-change notifications. Delivery is best effort;
// failures never roll back a transition.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, expertID uuid.UUID, from, to Status, reason string) error
}

// Service owns every mutation of a verification record. Each public method
// is one discrete command validated and applied atomically through the
// repository's version check, so a concurrent expert edit and admin decision
// cannot race past each other's precondition checks.
type Service struct {
	repo     Repository
	docs     *DocumentManager
	vault    vault.Vault
	profiles ProfileVerifier
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, docs *DocumentManager, v vault.Vault, profiles ProfileVerifier, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		docs:     docs,
		vault:    v,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SensitiveField is the only rendering of a vaulted value: presence,
// availability, and the masked form. A decryption failure renders as
// unavailable, never as empty.
type SensitiveField struct {
	Present   bool   `json:"present"`
	Available bool   `json:"available"`
	Masked    string `json:"masked,omitempty"`
}

// Snapshot is the expert-facing view of a record.
type Snapshot struct {
	Status                    Status     `json:"status"`
	CurrentStep               int        `json:"current_step"`
	CompletionPercentage      int        `json:"completion_percentage"`
	RequiredDocumentsUploaded bool       `json:"required_documents_uploaded"`
	BankingComplete           bool       `json:"banking_complete"`
	SubmittedAt               *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt                *time.Time `json:"reviewed_at,omitempty"`
	ApprovedAt                *time.Time `json:"approved_at,omitempty"`
	RejectionReason           string     `json:"rejection_reason,omitempty"`

	LicenseNumber string     `json:"license_number,omitempty"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`

	IDType   IDType `json:"id_type,omitempty"`
	IDNumber string `json:"id_number,omitempty"`

	InsurancePolicyNumber string     `json:"insurance_policy_number,omitempty"`
	InsuranceProvider     string     `json:"insurance_provider,omitempty"`
	InsuranceExpiry       *time.Time `json:"insurance_expiry,omitempty"`

	BackgroundCheckConsent bool       `json:"background_check_consent"`
	CriminalDisclosure     Disclosure `json:"criminal_disclosure,omitempty"`
	CriminalDetails        string     `json:"criminal_details,omitempty"`

	BankName          string         `json:"bank_name,omitempty"`
	AccountHolderName string         `json:"account_holder_name,omitempty"`
	AccountNumber     SensitiveField `json:"account_number"`
	RoutingNumber     string         `json:"routing_number,omitempty"`
	TaxID             SensitiveField `json:"tax_id"`

	Documents map[DocumentSlot]*DocumentRef `json:"documents"`
}

// AdminSnapshot adds the review surface: notes and the full completion
// breakdown corroborating the self-reported score. Sensitive values stay
// masked even for admins.
type AdminSnapshot struct {
	Snapshot
	ExpertID   uuid.UUID  `json:"expert_id"`
	AdminNotes string     `json:"admin_notes,omitempty"`
	Completion Completion `json:"completion"`
}

// StepOutcome is the result of a step write: the updated (or, on validation
// failure, unchanged) snapshot plus field-level errors and warnings.
type StepOutcome struct {
	Snapshot *Snapshot    `json:"record"`
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []FieldError `json:"warnings,omitempty"`
}

// GetRecord returns the expert's record, creating the empty not_started
// record the first time the expert opens the flow.
func (s *Service) GetRecord(ctx context.Context, expertID uuid.UUID) (*Snapshot, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(rec), nil
}

// SubmitStep validates one step's delta, applies the accepted fields, and
// recomputes the completion score. Validation failures leave the record
// untouched and come back as field errors, not as a Go error.
func (s *Service) SubmitStep(ctx context.Context, expertID uuid.UUID, step int, payload StepPayload) (*StepOutcome, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !rec.Editable() {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "update"}
	}

	result, err := ValidateStep(s.now(), rec, step, payload)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return &StepOutcome{Snapshot: s.snapshot(rec), Errors: result.Errors, Warnings: result.Warnings}, nil
	}

	if err := s.applyStep(rec, step, payload); err != nil {
		return nil, err
	}
	s.touchInProgress(rec)
	if step < StepCount && step >= rec.CurrentStep {
		rec.CurrentStep = step + 1
	}
	Rescore(rec)

	if err := s.update(ctx, rec, "update"); err != nil {
		return nil, err
	}
	return &StepOutcome{Snapshot: s.snapshot(rec), Warnings: result.Warnings}, nil
}

// AttachDocument uploads a file into a slot. The write also counts as a
// field write: it moves a fresh record into in_progress and rescores.
func (s *Service) AttachDocument(ctx context.Context, expertID uuid.UUID, slot DocumentSlot, upload DocumentUpload) (*Snapshot, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !rec.Editable() {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "upload document"}
	}
	if _, err := s.docs.Attach(ctx, rec, slot, upload); err != nil {
		return nil, err
	}
	s.touchInProgress(rec)
	Rescore(rec)
	if err := s.update(ctx, rec, "upload document"); err != nil {
		return nil, err
	}
	return s.snapshot(rec), nil
}

// RemoveDocument clears a slot and requests deletion upstream.
func (s *Service) RemoveDocument(ctx context.Context, expertID uuid.UUID, slot DocumentSlot) (*Snapshot, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !rec.Editable() {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "remove document"}
	}
	if err := s.docs.Remove(ctx, rec, slot); err != nil {
		return nil, err
	}
	Rescore(rec)
	if err := s.update(ctx, rec, "remove document"); err != nil {
		return nil, err
	}
	return s.snapshot(rec), nil
}

// DocumentURL derives a fresh retrievable URL for a slot's stored document.
// Presigned URLs are short-lived, so clients re-request them on render.
func (s *Service) DocumentURL(ctx context.Context, expertID uuid.UUID, slot DocumentSlot) (string, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return "", err
	}
	ref := rec.Document(slot)
	if ref == nil {
		return "", &UploadRejectedError{Reason: fmt.Sprintf("no document in slot %q", slot)}
	}
	return s.docs.RefreshURL(ctx, ref)
}

// Submit moves the record to submitted once the four mandatory sections are
// complete, the required documents are uploaded, and consent was given.
// On failure it reports the exact missing items and mutates nothing.
func (s *Service) Submit(ctx context.Context, expertID uuid.UUID) (*Snapshot, error) {
	rec, err := s.getOrCreate(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, StatusSubmitted) {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "submit"}
	}

	completion := Evaluate(rec)
	if !completion.MandatoryComplete || !completion.RequiredDocumentsUploaded || !rec.BackgroundCheckConsent {
		return nil, &IncompleteApplicationError{Missing: completion.Missing}
	}

	from := rec.Status
	now := s.now()
	rec.Status = StatusSubmitted
	rec.SubmittedAt = &now
	rec.RejectionReason = ""
	Rescore(rec)

	if err := s.update(ctx, rec, "submit"); err != nil {
		return nil, err
	}
	s.notify(ctx, rec.ExpertID, from, rec.Status, "")
	return s.snapshot(rec), nil
}

// ClaimReview moves a submitted record under review. Re-claiming a record
// that is already under review is allowed and changes nothing.
func (s *Service) ClaimReview(ctx context.Context, expertID uuid.UUID) (*AdminSnapshot, error) {
	rec, err := s.mustGet(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusUnderReview {
		return s.adminSnapshot(rec), nil
	}
	if !CanTransition(rec.Status, StatusUnderReview) {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "claim review"}
	}
	rec.Status = StatusUnderReview
	if err := s.update(ctx, rec, "claim review"); err != nil {
		return nil, err
	}
	return s.adminSnapshot(rec), nil
}

// Approve finishes the review positively: the record becomes terminal and
// the expert profile's verification flag is flipped. If the profile update
// fails after the record transition committed, the caller receives a
// PartialApprovalError so an operator can reconcile.
func (s *Service) Approve(ctx context.Context, expertID uuid.UUID, notes string) (*AdminSnapshot, error) {
	rec, err := s.mustGet(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, StatusApproved) {
		return nil, &InvalidTransitionError{From: rec.Status, Action: "approve"}
	}

	from := rec.Status
	now := s.now()
	rec.Status = StatusApproved
	rec.ApprovedAt = &now
	rec.ReviewedAt = &now
	rec.RejectionReason = ""
	if notes != "" {
		rec.AdminNotes = notes
	}

	if err := s.update(ctx, rec, "approve"); err != nil {
		return nil, err
	}

	if err := s.profiles.MarkVerificationApproved(ctx, rec.ExpertID, now); err != nil {
		s.logger.Error("Profile verification flag update failed after approval",
			zap.String("expert_id", rec.ExpertID.String()), zap.Error(err))
		return s.adminSnapshot(rec), &PartialApprovalError{ExpertID: rec.ExpertID.String(), Cause: err}
	}

	s.notify(ctx, rec.ExpertID, from, rec.Status, "")
	return s.adminSnapshot(rec), nil
}

// Reject finishes the review negatively. The reason is mandatory and is the
// text the expert sees.
func (s *Service) Reject(ctx context.Context, expertID uuid.UUID, reason, notes string) (*AdminSnapshot, error) {
	return s.decline(ctx, expertID, StatusRejected, "reject", reason, notes)
}

// RequestResubmission sends the record back to the expert to fix specific
// items; the expert keeps their data and resubmits.
func (s *Service) RequestResubmission(ctx context.Context, expertID uuid.UUID, reason, notes string) (*AdminSnapshot, error) {
	return s.decline(ctx, expertID, StatusResubmissionRequired, "request resubmission", reason, notes)
}

func (s *Service) decline(ctx context.Context, expertID uuid.UUID, to Status, action, reason, notes string) (*AdminSnapshot, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	rec, err := s.mustGet(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, to) {
		return nil, &InvalidTransitionError{From: rec.Status, Action: action}
	}

	from := rec.Status
	now := s.now()
	rec.Status = to
	rec.ReviewedAt = &now
	rec.RejectionReason = reason
	if notes != "" {
		rec.AdminNotes = notes
	}

	if err := s.update(ctx, rec, action); err != nil {
		return nil, err
	}
	s.notify(ctx, rec.ExpertID, from, rec.Status, reason)
	return s.adminSnapshot(rec), nil
}

// AdminGetRecord returns the full review view for an expert's record.
func (s *Service) AdminGetRecord(ctx context.Context, expertID uuid.UUID) (*AdminSnapshot, error) {
	rec, err := s.mustGet(ctx, expertID)
	if err != nil {
		return nil, err
	}
	return s.adminSnapshot(rec), nil
}

// ListByStatus returns the admin queue for one status.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*AdminSnapshot, error) {
	recs, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]*AdminSnapshot, len(recs))
	for i, rec := range recs {
		out[i] = s.adminSnapshot(rec)
	}
	return out, nil
}

func (s *Service) getOrCreate(ctx context.Context, expertID uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByExpertID(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	rec = NewRecord(expertID, s.now())
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) mustGet(ctx context.Context, expertID uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByExpertID(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &InvalidTransitionError{From: StatusNotStarted, Action: "review"}
	}
	return rec, nil
}

// touchInProgress applies the first-field-write transition. A no-op when the
// record is already in progress.
func (s *Service) touchInProgress(rec *Record) {
	if rec.Status != StatusInProgress && CanTransition(rec.Status, StatusInProgress) {
		rec.Status = StatusInProgress
	}
}

// update persists the record; a failed version check surfaces as an invalid
// transition so a stale client refreshes.
func (s *Service) update(ctx context.Context, rec *Record, action string) error {
	err := s.repo.Update(ctx, rec)
	if errors.Is(err, ErrStaleRecord) {
		return &InvalidTransitionError{From: rec.Status, Action: action}
	}
	return err
}

func (s *Service) applyStep(rec *Record, step int, p StepPayload) error {
	switch step {
	case StepBusiness:
		if p.LicenseNumber != nil {
			rec.LicenseNumber = *p.LicenseNumber
		}
		if p.LicenseExpiry != nil {
			rec.LicenseExpiry = parseDate(*p.LicenseExpiry)
		}
	case StepIdentity:
		if p.IDType != nil {
			rec.IDType = IDType(*p.IDType)
		}
		if p.IDNumber != nil {
			rec.IDNumber = *p.IDNumber
		}
	case StepInsurance:
		if p.InsurancePolicyNumber != nil {
			rec.InsurancePolicyNumber = *p.InsurancePolicyNumber
		}
		if p.InsuranceProvider != nil {
			rec.InsuranceProvider = *p.InsuranceProvider
		}
		if p.InsuranceExpiry != nil {
			rec.InsuranceExpiry = parseDate(*p.InsuranceExpiry)
		}
	case StepBanking:
		if p.BankName != nil {
			rec.BankName = *p.BankName
		}
		if p.AccountHolderName != nil {
			rec.AccountHolderName = *p.AccountHolderName
		}
		if p.RoutingNumber != nil {
			rec.RoutingNumber = *p.RoutingNumber
		}
		if p.AccountNumber != nil {
			ciphertext, err := s.vault.Encrypt(*p.AccountNumber)
			if err != nil {
				return err
			}
			rec.AccountNumberCiphertext = ciphertext
		}
		if p.TaxID != nil {
			ciphertext, err := s.vault.Encrypt(*p.TaxID)
			if err != nil {
				return err
			}
			rec.TaxIDCiphertext = ciphertext
		}
	case StepBackground:
		if p.BackgroundCheckConsent != nil {
			rec.BackgroundCheckConsent = *p.BackgroundCheckConsent
		}
		if p.CriminalDisclosure != nil {
			rec.CriminalDisclosure = Disclosure(*p.CriminalDisclosure)
		}
		if p.CriminalDetails != nil {
			rec.CriminalDetails = *p.CriminalDetails
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, expertID uuid.UUID, from, to Status, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStatusChange(ctx, expertID, from, to, reason); err != nil {
		s.logger.Error("Failed to send status-change notification",
			zap.String("expert_id", expertID.String()),
			zap.String("status", string(to)),
			zap.Error(err))
	}
}

func (s *Service) snapshot(rec *Record) *Snapshot {
	return &Snapshot{
		Status:                    rec.Status,
		CurrentStep:               rec.CurrentStep,
		CompletionPercentage:      rec.CompletionPercentage,
		RequiredDocumentsUploaded: rec.RequiredDocumentsUploaded,
		BankingComplete:           Evaluate(rec).BankingComplete,
		SubmittedAt:               rec.SubmittedAt,
		ReviewedAt:                rec.ReviewedAt,
		ApprovedAt:                rec.ApprovedAt,
		RejectionReason:           rec.RejectionReason,
		LicenseNumber:             rec.LicenseNumber,
		LicenseExpiry:             rec.LicenseExpiry,
		IDType:                    rec.IDType,
		IDNumber:                  rec.IDNumber,
		InsurancePolicyNumber:     rec.InsurancePolicyNumber,
		InsuranceProvider:         rec.InsuranceProvider,
		InsuranceExpiry:           rec.InsuranceExpiry,
		BackgroundCheckConsent:    rec.BackgroundCheckConsent,
		CriminalDisclosure:        rec.CriminalDisclosure,
		CriminalDetails:           rec.CriminalDetails,
		BankName:                  rec.BankName,
		AccountHolderName:         rec.AccountHolderName,
		AccountNumber:             s.sensitive(rec.AccountNumberCiphertext),
		RoutingNumber:             rec.RoutingNumber,
		TaxID:                     s.sensitive(rec.TaxIDCiphertext),
		Documents:                 rec.Documents,
	}
}

func (s *Service) adminSnapshot(rec *Record) *AdminSnapshot {
	return &AdminSnapshot{
		Snapshot:   *s.snapshot(rec),
		ExpertID:   rec.ExpertID,
		AdminNotes: rec.AdminNotes,
		Completion: Evaluate(rec),
	}
}

// sensitive renders a vaulted value for display. Decryption failure is
// reported as unavailable, which callers must not confuse with "not yet
// provided".
func (s *Service) sensitive(ciphertext string) SensitiveField {
	if ciphertext == "" {
		return SensitiveField{}
	}
	plaintext, ok := s.vault.Decrypt(ciphertext)
	if !ok {
		return SensitiveField{Present: true}
	}
	return SensitiveField{Present: true, Available: true, Masked: vault.Mask(plaintext)}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

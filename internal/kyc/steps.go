package kyc

import (
	"fmt"
	"time"
)

// StepCount is the number of wizard steps.
const StepCount = 6

const (
	StepBusiness   = 1
	StepIdentity   = 2
	StepInsurance  = 3
	StepBanking    = 4
	StepBackground = 5
	StepReview     = 6
)

// DateLayout is the wire format for date-only fields.
const DateLayout = "2006-01-02"

// expiringSoonWindow flags insurance policies lapsing shortly after submission.
const expiringSoonWindow = 30 * 24 * time.Hour

// StepPayload carries one step's proposed field delta. Pointer fields
// distinguish "not sent" from "sent empty". Banking values arrive here in
// plaintext and go straight through the vault on apply; they are never
// persisted in this form.
type StepPayload struct {
	// Step 1: business documents
	LicenseNumber *string `json:"license_number,omitempty"`
	LicenseExpiry *string `json:"license_expiry,omitempty"`

	// Step 2: identity
	IDType   *string `json:"id_type,omitempty"`
	IDNumber *string `json:"id_number,omitempty"`

	// Step 3: insurance
	InsurancePolicyNumber *string `json:"insurance_policy_number,omitempty"`
	InsuranceProvider     *string `json:"insurance_provider,omitempty"`
	InsuranceExpiry       *string `json:"insurance_expiry,omitempty"`

	// Step 4: banking
	BankName          *string `json:"bank_name,omitempty"`
	AccountHolderName *string `json:"account_holder_name,omitempty"`
	AccountNumber     *string `json:"account_number,omitempty"`
	RoutingNumber     *string `json:"routing_number,omitempty"`
	TaxID             *string `json:"tax_id,omitempty"`

	// Step 5: background check
	BackgroundCheckConsent *bool   `json:"background_check_consent,omitempty"`
	CriminalDisclosure     *string `json:"criminal_disclosure,omitempty"`
	CriminalDetails        *string `json:"criminal_details,omitempty"`
}

// StepResult is the outcome of validating one step. Warnings never block.
type StepResult struct {
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []FieldError `json:"warnings,omitempty"`
}

// OK reports whether the step passed validation.
func (r StepResult) OK() bool {
	return len(r.Errors) == 0
}

func (r *StepResult) addError(field, code, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Code: code, Message: message})
}

func (r *StepResult) addWarning(field, code, message string) {
	r.Warnings = append(r.Warnings, FieldError{Field: field, Code: code, Message: message})
}

// ValidateStep checks one step's proposed delta against the current record
// snapshot. It performs no I/O and mutates nothing; the caller applies the
// payload only when the result has no errors. Client-side step gating is a
// UX convenience — Submit revalidates the union of all steps server-side.
func ValidateStep(now time.Time, r *Record, step int, p StepPayload) (StepResult, error) {
	switch step {
	case StepBusiness:
		return validateBusiness(now, r, p), nil
	case StepIdentity:
		return validateIdentity(r, p), nil
	case StepInsurance:
		return validateInsurance(now, r, p), nil
	case StepBanking:
		return validateBanking(r, p), nil
	case StepBackground:
		return validateBackground(r, p), nil
	case StepReview:
		return validateReview(r), nil
	}
	return StepResult{}, fmt.Errorf("kyc: unknown step %d", step)
}

func stringOr(p *string, current string) string {
	if p != nil {
		return *p
	}
	return current
}

// dateOr resolves a date field from the delta or the record. A malformed
// delta value yields ok=false with present=true so the validator can report
// a format error rather than a missing-field error.
func dateOr(p *string, current *time.Time) (value *time.Time, present, ok bool) {
	if p == nil {
		return current, current != nil, true
	}
	if *p == "" {
		return nil, false, true
	}
	t, err := time.Parse(DateLayout, *p)
	if err != nil {
		return nil, true, false
	}
	return &t, true, true
}

func validateBusiness(now time.Time, r *Record, p StepPayload) StepResult {
	var res StepResult

	if stringOr(p.LicenseNumber, r.LicenseNumber) == "" {
		res.addError("license_number", "required", "business license number is required")
	}

	expiry, present, ok := dateOr(p.LicenseExpiry, r.LicenseExpiry)
	switch {
	case !ok:
		res.addError("license_expiry", "invalid_date", "license expiry must be a YYYY-MM-DD date")
	case !present:
		res.addError("license_expiry", "required", "license expiry date is required")
	case expiry.Before(startOfDay(now)):
		// An expired license is flagged but does not block data entry.
		res.addWarning("license_expiry", "expired", "business license has expired")
	}

	if !r.HasDocument(SlotBusinessLicense) {
		res.addError("license_document", "required", "business license document must be uploaded")
	}

	return res
}

func validateIdentity(r *Record, p StepPayload) StepResult {
	var res StepResult

	idType := IDType(stringOr(p.IDType, string(r.IDType)))
	switch idType {
	case "":
		res.addError("id_type", "required", "id type is required")
	case IDTypeDriversLicense, IDTypePassport, IDTypeNationalID:
	default:
		res.addError("id_type", "invalid", "id type must be drivers_license, passport or national_id")
	}

	if stringOr(p.IDNumber, r.IDNumber) == "" {
		res.addError("id_number", "required", "id number is required")
	}

	if !r.HasDocument(SlotIDFront) {
		res.addError("id_front_document", "required", "front of id document must be uploaded")
	}
	if idType != "" && idType != IDTypePassport && !r.HasDocument(SlotIDBack) {
		res.addError("id_back_document", "required", "back of id document must be uploaded")
	}

	return res
}

func validateInsurance(now time.Time, r *Record, p StepPayload) StepResult {
	var res StepResult

	if stringOr(p.InsurancePolicyNumber, r.InsurancePolicyNumber) == "" {
		res.addError("insurance_policy_number", "required", "insurance policy number is required")
	}
	if stringOr(p.InsuranceProvider, r.InsuranceProvider) == "" {
		res.addError("insurance_provider", "required", "insurance provider is required")
	}

	expiry, present, ok := dateOr(p.InsuranceExpiry, r.InsuranceExpiry)
	switch {
	case !ok:
		res.addError("insurance_expiry", "invalid_date", "insurance expiry must be a YYYY-MM-DD date")
	case !present:
		res.addError("insurance_expiry", "required", "insurance expiry date is required")
	case !expiry.After(startOfDay(now)):
		res.addError("insurance_expiry", "expired", "insurance policy must not be expired")
	case expiry.Before(now.Add(expiringSoonWindow)):
		res.addWarning("insurance_expiry", "expiring_soon", "insurance policy expires within 30 days")
	}

	if !r.HasDocument(SlotInsuranceCertificate) {
		res.addError("insurance_certificate", "required", "insurance certificate must be uploaded")
	}

	return res
}

func validateBanking(r *Record, p StepPayload) StepResult {
	var res StepResult

	if stringOr(p.BankName, r.BankName) == "" {
		res.addError("bank_name", "required", "bank name is required")
	}
	if stringOr(p.AccountHolderName, r.AccountHolderName) == "" {
		res.addError("account_holder_name", "required", "account holder name is required")
	}

	if p.AccountNumber != nil {
		if len(*p.AccountNumber) < 8 {
			res.addError("account_number", "too_short", "account number must be at least 8 characters")
		}
	} else if r.AccountNumberCiphertext == "" {
		res.addError("account_number", "required", "account number is required")
	}

	routing := stringOr(p.RoutingNumber, r.RoutingNumber)
	switch {
	case routing == "":
		res.addError("routing_number", "required", "routing number is required")
	case !isDigits(routing) || len(routing) != 9:
		res.addError("routing_number", "invalid", "routing number must be exactly 9 digits")
	}

	if p.TaxID != nil {
		if *p.TaxID == "" {
			res.addError("tax_id", "required", "tax id is required")
		}
	} else if r.TaxIDCiphertext == "" {
		res.addError("tax_id", "required", "tax id is required")
	}

	return res
}

func validateBackground(r *Record, p StepPayload) StepResult {
	var res StepResult

	consent := r.BackgroundCheckConsent
	if p.BackgroundCheckConsent != nil {
		consent = *p.BackgroundCheckConsent
	}
	if !consent {
		res.addError("background_check_consent", "required", "background check consent must be given")
	}

	disclosure := Disclosure(stringOr(p.CriminalDisclosure, string(r.CriminalDisclosure)))
	switch disclosure {
	case "":
		res.addError("criminal_disclosure", "required", "a disclosure choice is required")
	case DisclosureNone:
	case DisclosureDisclosed:
		if stringOr(p.CriminalDetails, r.CriminalDetails) == "" {
			res.addError("criminal_details", "required", "disclosure details are required")
		}
	default:
		res.addError("criminal_disclosure", "invalid", "disclosure must be none or disclosed")
	}

	return res
}

// validateReview aggregates steps 1-5, mirroring the submit precondition
// detail so the wizard's final page can show exactly what is incomplete.
func validateReview(r *Record) StepResult {
	var res StepResult
	c := Evaluate(r)
	for _, m := range c.Missing {
		res.addError(m.Field, "incomplete", fmt.Sprintf("%s section is missing %s", m.Section, m.Field))
	}
	for _, m := range c.MissingBanking {
		// Banking does not gate submission but is flagged for payout setup.
		res.addWarning(m.Field, "incomplete", fmt.Sprintf("banking section is missing %s", m.Field))
	}
	return res
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

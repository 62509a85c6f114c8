package kyc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func dateStr(t time.Time) string { return t.Format(DateLayout) }

func recordWithDocs(slots ...DocumentSlot) *Record {
	rec := NewRecord(uuid.New(), time.Now())
	for _, slot := range slots {
		rec.Documents[slot] = &DocumentRef{ID: uuid.New(), RecordID: rec.ID, Slot: slot}
	}
	return rec
}

func fieldCodes(errs []FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Code
	}
	return out
}

func TestValidateBusinessStep(t *testing.T) {
	now := time.Now()
	rec := recordWithDocs(SlotBusinessLicense)

	res, err := ValidateStep(now, rec, StepBusiness, StepPayload{
		LicenseNumber: strPtr("LIC-1"),
		LicenseExpiry: strPtr(dateStr(now.AddDate(1, 0, 0))),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Empty(t, res.Warnings)
}

func TestValidateBusinessStepMissingFields(t *testing.T) {
	res, err := ValidateStep(time.Now(), NewRecord(uuid.New(), time.Now()), StepBusiness, StepPayload{})
	require.NoError(t, err)

	codes := fieldCodes(res.Errors)
	assert.Equal(t, "required", codes["license_number"])
	assert.Equal(t, "required", codes["license_expiry"])
	assert.Equal(t, "required", codes["license_document"])
}

func TestExpiredLicenseIsWarningNotBlock(t *testing.T) {
	now := time.Now()
	rec := recordWithDocs(SlotBusinessLicense)

	res, err := ValidateStep(now, rec, StepBusiness, StepPayload{
		LicenseNumber: strPtr("LIC-1"),
		LicenseExpiry: strPtr(dateStr(now.AddDate(-1, 0, 0))),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "expired", fieldCodes(res.Warnings)["license_expiry"])
}

func TestValidateIdentityStepPassportSkipsBack(t *testing.T) {
	rec := recordWithDocs(SlotIDFront)

	res, err := ValidateStep(time.Now(), rec, StepIdentity, StepPayload{
		IDType:   strPtr(string(IDTypePassport)),
		IDNumber: strPtr("P123456"),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = ValidateStep(time.Now(), rec, StepIdentity, StepPayload{
		IDType:   strPtr(string(IDTypeDriversLicense)),
		IDNumber: strPtr("D123456"),
	})
	require.NoError(t, err)
	assert.Equal(t, "required", fieldCodes(res.Errors)["id_back_document"])
}

func TestValidateIdentityStepRejectsUnknownType(t *testing.T) {
	rec := recordWithDocs(SlotIDFront, SlotIDBack)
	res, err := ValidateStep(time.Now(), rec, StepIdentity, StepPayload{
		IDType:   strPtr("library_card"),
		IDNumber: strPtr("X1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "invalid", fieldCodes(res.Errors)["id_type"])
}

func TestValidateInsuranceStepExpiry(t *testing.T) {
	now := time.Now()
	rec := recordWithDocs(SlotInsuranceCertificate)
	base := StepPayload{
		InsurancePolicyNumber: strPtr("POL-1"),
		InsuranceProvider:     strPtr("Acme Mutual"),
	}

	// Expired policy blocks.
	p := base
	p.InsuranceExpiry = strPtr(dateStr(now.AddDate(0, 0, -1)))
	res, err := ValidateStep(now, rec, StepInsurance, p)
	require.NoError(t, err)
	assert.Equal(t, "expired", fieldCodes(res.Errors)["insurance_expiry"])

	// Expiring within 30 days validates with a warning.
	p = base
	p.InsuranceExpiry = strPtr(dateStr(now.AddDate(0, 0, 10)))
	res, err = ValidateStep(now, rec, StepInsurance, p)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "expiring_soon", fieldCodes(res.Warnings)["insurance_expiry"])

	// Comfortably in the future is clean.
	p = base
	p.InsuranceExpiry = strPtr(dateStr(now.AddDate(1, 0, 0)))
	res, err = ValidateStep(now, rec, StepInsurance, p)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Empty(t, res.Warnings)
}

func TestValidateBankingStep(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())

	res, err := ValidateStep(time.Now(), rec, StepBanking, StepPayload{
		BankName:          strPtr("First National"),
		AccountHolderName: strPtr("Jordan Smith"),
		AccountNumber:     strPtr("12345678"),
		RoutingNumber:     strPtr("021000021"),
		TaxID:             strPtr("12-3456789"),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateBankingStepRules(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())

	res, err := ValidateStep(time.Now(), rec, StepBanking, StepPayload{
		BankName:          strPtr("First National"),
		AccountHolderName: strPtr("Jordan Smith"),
		AccountNumber:     strPtr("1234567"),   // 7 chars
		RoutingNumber:     strPtr("02100002a"), // non-digit
		TaxID:             strPtr(""),
	})
	require.NoError(t, err)

	codes := fieldCodes(res.Errors)
	assert.Equal(t, "too_short", codes["account_number"])
	assert.Equal(t, "invalid", codes["routing_number"])
	assert.Equal(t, "required", codes["tax_id"])
}

func TestValidateBankingAcceptsStoredValues(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())
	rec.BankName = "First National"
	rec.AccountHolderName = "Jordan Smith"
	rec.AccountNumberCiphertext = "sealed"
	rec.RoutingNumber = "021000021"
	rec.TaxIDCiphertext = "sealed"

	res, err := ValidateStep(time.Now(), rec, StepBanking, StepPayload{})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateBackgroundStep(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())

	res, err := ValidateStep(time.Now(), rec, StepBackground, StepPayload{
		BackgroundCheckConsent: boolPtr(false),
		CriminalDisclosure:     strPtr(string(DisclosureDisclosed)),
	})
	require.NoError(t, err)

	codes := fieldCodes(res.Errors)
	assert.Equal(t, "required", codes["background_check_consent"])
	assert.Equal(t, "required", codes["criminal_details"])

	res, err = ValidateStep(time.Now(), rec, StepBackground, StepPayload{
		BackgroundCheckConsent: boolPtr(true),
		CriminalDisclosure:     strPtr(string(DisclosureNone)),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateReviewAggregatesMissingSections(t *testing.T) {
	rec := completeRecord()
	delete(rec.Documents, SlotInsuranceCertificate)
	rec.BankName = ""

	res, err := ValidateStep(time.Now(), rec, StepReview, StepPayload{})
	require.NoError(t, err)

	assert.Contains(t, fieldCodes(res.Errors), "insurance_certificate")
	// Banking gaps surface as warnings only.
	assert.Contains(t, fieldCodes(res.Warnings), "bank_name")

	rec.Documents[SlotInsuranceCertificate] = &DocumentRef{ID: uuid.New(), Slot: SlotInsuranceCertificate}
	res, err = ValidateStep(time.Now(), rec, StepReview, StepPayload{})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateUnknownStep(t *testing.T) {
	_, err := ValidateStep(time.Now(), NewRecord(uuid.New(), time.Now()), 7, StepPayload{})
	assert.Error(t, err)
}

package kyc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// completeRecord builds a record with every scored field present.
func completeRecord() *Record {
	now := time.Now()
	future := now.AddDate(1, 0, 0)
	rec := NewRecord(uuid.New(), now)

	rec.LicenseNumber = "LIC-12345"
	rec.LicenseExpiry = &future
	rec.IDType = IDTypeDriversLicense
	rec.IDNumber = "D1234567"
	rec.InsurancePolicyNumber = "POL-99"
	rec.InsuranceProvider = "Acme Mutual"
	rec.InsuranceExpiry = &future
	rec.BackgroundCheckConsent = true
	rec.CriminalDisclosure = DisclosureNone
	rec.BankName = "First National"
	rec.AccountHolderName = "Jordan Smith"
	rec.AccountNumberCiphertext = "sealed-account"
	rec.RoutingNumber = "021000021"
	rec.TaxIDCiphertext = "sealed-tax"

	for _, slot := range DocumentSlots {
		rec.Documents[slot] = &DocumentRef{
			ID:         uuid.New(),
			RecordID:   rec.ID,
			Slot:       slot,
			StorageKey: "experts/x/" + string(slot),
			UploadedAt: now,
		}
	}
	return rec
}

func TestWeightsSumToOneHundred(t *testing.T) {
	total := 0
	for _, fw := range fieldWeights {
		total += fw.weight
	}
	assert.Equal(t, 100, total)
}

func TestEvaluateEmptyRecord(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())
	c := Evaluate(rec)

	assert.Equal(t, 0, c.Score)
	assert.False(t, c.RequiredDocumentsUploaded)
	assert.False(t, c.MandatoryComplete)
	assert.False(t, c.BankingComplete)
	assert.NotEmpty(t, c.Missing)
}

func TestEvaluateCompleteRecord(t *testing.T) {
	rec := completeRecord()
	c := Evaluate(rec)

	assert.Equal(t, 100, c.Score)
	assert.True(t, c.RequiredDocumentsUploaded)
	assert.True(t, c.MandatoryComplete)
	assert.True(t, c.BankingComplete)
	assert.Empty(t, c.Missing)
	assert.Empty(t, c.MissingBanking)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	rec := completeRecord()
	rec.InsuranceProvider = ""

	first := Evaluate(rec)
	second := Evaluate(rec)
	assert.Equal(t, first, second)
}

func TestConsentMustBeExactlyTrue(t *testing.T) {
	rec := completeRecord()
	rec.BackgroundCheckConsent = false

	c := Evaluate(rec)
	assert.Equal(t, 90, c.Score)
	assert.Contains(t, c.Missing, MissingItem{Section: SectionBackground, Field: "background_check_consent"})
}

func TestNoPartialCredit(t *testing.T) {
	rec := NewRecord(uuid.New(), time.Now())
	rec.LicenseNumber = "LIC-1"

	c := Evaluate(rec)
	assert.Equal(t, 5, c.Score)

	// A second field contributes its full weight, nothing in between.
	rec.IDNumber = "D99"
	c = Evaluate(rec)
	assert.Equal(t, 10, c.Score)
}

func TestRequiredDocumentsDerivation(t *testing.T) {
	rec := completeRecord()
	delete(rec.Documents, SlotIDBack)
	assert.True(t, Evaluate(rec).RequiredDocumentsUploaded, "id_back is not a required document")

	delete(rec.Documents, SlotInsuranceCertificate)
	c := Evaluate(rec)
	assert.False(t, c.RequiredDocumentsUploaded)
	assert.Contains(t, c.Missing, MissingItem{Section: SectionInsurance, Field: "insurance_certificate"})
}

func TestIDBackRequiredUnlessPassport(t *testing.T) {
	rec := completeRecord()
	delete(rec.Documents, SlotIDBack)

	rec.IDType = IDTypeNationalID
	c := Evaluate(rec)
	assert.Contains(t, c.Missing, MissingItem{Section: SectionIdentity, Field: "id_back_document"})

	rec.IDType = IDTypePassport
	c = Evaluate(rec)
	assert.True(t, c.MandatoryComplete)
	assert.Equal(t, 100, c.Score)
}

func TestDisclosureDetailsRequiredWhenDisclosed(t *testing.T) {
	rec := completeRecord()
	rec.CriminalDisclosure = DisclosureDisclosed

	c := Evaluate(rec)
	assert.Contains(t, c.Missing, MissingItem{Section: SectionBackground, Field: "criminal_details"})

	rec.CriminalDetails = "Minor traffic offence in 2019."
	c = Evaluate(rec)
	assert.True(t, c.MandatoryComplete)
}

func TestBankingTrackedSeparately(t *testing.T) {
	rec := completeRecord()
	rec.BankName = ""
	rec.TaxIDCiphertext = ""

	c := Evaluate(rec)
	assert.Equal(t, 90, c.Score)
	assert.True(t, c.MandatoryComplete, "banking gaps must not block the mandatory sections")
	assert.False(t, c.BankingComplete)
	assert.Len(t, c.MissingBanking, 2)
}

func TestRescoreWritesDerivedFields(t *testing.T) {
	rec := completeRecord()
	rec.CompletionPercentage = 0
	rec.RequiredDocumentsUploaded = false

	Rescore(rec)
	assert.Equal(t, 100, rec.CompletionPercentage)
	assert.True(t, rec.RequiredDocumentsUploaded)
}

package kyc

// fieldWeight pairs one scored field with its fixed contribution.
// The weights sum to exactly 100; a field earns its full weight or nothing.
type fieldWeight struct {
	section Section
	field   string
	weight  int
	present func(r *Record) bool
}

var fieldWeights = []fieldWeight{
	{SectionBusiness, "license_number", 5, func(r *Record) bool { return r.LicenseNumber != "" }},
	{SectionBusiness, "license_document", 10, func(r *Record) bool { return r.HasDocument(SlotBusinessLicense) }},
	{SectionBusiness, "license_expiry", 5, func(r *Record) bool { return r.LicenseExpiry != nil }},

	{SectionIdentity, "id_type", 5, func(r *Record) bool { return r.IDType != "" }},
	{SectionIdentity, "id_number", 5, func(r *Record) bool { return r.IDNumber != "" }},
	{SectionIdentity, "id_front_document", 10, func(r *Record) bool { return r.HasDocument(SlotIDFront) }},

	{SectionInsurance, "insurance_policy_number", 5, func(r *Record) bool { return r.InsurancePolicyNumber != "" }},
	{SectionInsurance, "insurance_certificate", 10, func(r *Record) bool { return r.HasDocument(SlotInsuranceCertificate) }},
	{SectionInsurance, "insurance_expiry", 5, func(r *Record) bool { return r.InsuranceExpiry != nil }},
	{SectionInsurance, "insurance_provider", 5, func(r *Record) bool { return r.InsuranceProvider != "" }},

	{SectionBackground, "background_check_consent", 10, func(r *Record) bool { return r.BackgroundCheckConsent }},

	{SectionBanking, "bank_name", 5, func(r *Record) bool { return r.BankName != "" }},
	{SectionBanking, "account_holder_name", 5, func(r *Record) bool { return r.AccountHolderName != "" }},
	{SectionBanking, "account_number", 5, func(r *Record) bool { return r.AccountNumberCiphertext != "" }},
	{SectionBanking, "routing_number", 5, func(r *Record) bool { return r.RoutingNumber != "" }},
	{SectionBanking, "tax_id", 5, func(r *Record) bool { return r.TaxIDCiphertext != "" }},
}

// Completion is the derived completeness view of a record
type Completion struct {
	Score                     int           `json:"score"`
	RequiredDocumentsUploaded bool          `json:"required_documents_uploaded"`
	MandatoryComplete         bool          `json:"mandatory_complete"`
	BankingComplete           bool          `json:"banking_complete"`
	Missing                   []MissingItem `json:"missing,omitempty"`
	MissingBanking            []MissingItem `json:"missing_banking,omitempty"`
}

// Evaluate computes the weighted completion of a record. It is a pure
// function of the record's current field values: running it twice on
// unchanged data yields the same result.
//
// Missing covers the four mandatory sections (business, identity, insurance,
// background check) including conditional requirements that carry no weight:
// the id-back document for non-passport id types, the disclosure choice, and
// disclosure details when a disclosure was made. Banking completeness is
// tracked separately and does not gate submission.
func Evaluate(r *Record) Completion {
	c := Completion{}

	for _, fw := range fieldWeights {
		if fw.present(r) {
			c.Score += fw.weight
			continue
		}
		item := MissingItem{Section: fw.section, Field: fw.field}
		if fw.section == SectionBanking {
			c.MissingBanking = append(c.MissingBanking, item)
		} else {
			c.Missing = append(c.Missing, item)
		}
	}

	if r.IDType != "" && r.IDType != IDTypePassport && !r.HasDocument(SlotIDBack) {
		c.Missing = append(c.Missing, MissingItem{Section: SectionIdentity, Field: "id_back_document"})
	}
	if r.CriminalDisclosure == "" {
		c.Missing = append(c.Missing, MissingItem{Section: SectionBackground, Field: "criminal_disclosure"})
	}
	if r.CriminalDisclosure == DisclosureDisclosed && r.CriminalDetails == "" {
		c.Missing = append(c.Missing, MissingItem{Section: SectionBackground, Field: "criminal_details"})
	}

	c.RequiredDocumentsUploaded = r.HasDocument(SlotBusinessLicense) &&
		r.HasDocument(SlotInsuranceCertificate) &&
		r.HasDocument(SlotIDFront)
	c.MandatoryComplete = len(c.Missing) == 0
	c.BankingComplete = len(c.MissingBanking) == 0

	return c
}

// Rescore writes the derived completion values back onto the record.
// This is the only code path allowed to set completion_percentage.
func Rescore(r *Record) Completion {
	c := Evaluate(r)
	r.CompletionPercentage = c.Score
	r.RequiredDocumentsUploaded = c.RequiredDocumentsUploaded
	return c
}

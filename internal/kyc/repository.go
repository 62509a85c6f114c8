package kyc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists verification records and their document references.
// Records are an audit trail and are never deleted.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByExpertID(ctx context.Context, expertID uuid.UUID) (*Record, error)
	// Update applies the record as a single read-modify-write guarded by the
	// record's version. It returns ErrStaleRecord when the persisted version
	// no longer matches, and bumps the version on success.
	Update(ctx context.Context, r *Record) error
	ListByStatus(ctx context.Context, status Status) ([]*Record, error)

	UpsertDocument(ctx context.Context, ref *DocumentRef) error
	DeleteDocument(ctx context.Context, recordID uuid.UUID, slot DocumentSlot) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO kyc_records (
			id, expert_id, license_number, license_expiry, id_type, id_number,
			insurance_policy_number, insurance_provider, insurance_expiry,
			background_check_consent, criminal_disclosure, criminal_details,
			bank_name, account_holder_name, account_number_ciphertext,
			routing_number, tax_id_ciphertext,
			status, current_step, completion_percentage, required_documents_uploaded,
			submitted_at, reviewed_at, approved_at, rejection_reason, admin_notes,
			version, created_at, updated_at
		) VALUES (
			:id, :expert_id, :license_number, :license_expiry, :id_type, :id_number,
			:insurance_policy_number, :insurance_provider, :insurance_expiry,
			:background_check_consent, :criminal_disclosure, :criminal_details,
			:bank_name, :account_holder_name, :account_number_ciphertext,
			:routing_number, :tax_id_ciphertext,
			:status, :current_step, :completion_percentage, :required_documents_uploaded,
			:submitted_at, :reviewed_at, :approved_at, :rejection_reason, :admin_notes,
			:version, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to create kyc record: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByExpertID(ctx context.Context, expertID uuid.UUID) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM kyc_records WHERE expert_id = $1", expertID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kyc record: %w", err)
	}
	if err := r.loadDocuments(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *postgresRepository) loadDocuments(ctx context.Context, rec *Record) error {
	var refs []DocumentRef
	err := r.db.SelectContext(ctx, &refs,
		"SELECT * FROM kyc_documents WHERE record_id = $1", rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load kyc documents: %w", err)
	}
	rec.Documents = make(map[DocumentSlot]*DocumentRef, len(refs))
	for i := range refs {
		rec.Documents[refs[i].Slot] = &refs[i]
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, rec *Record) error {
	currentVersion := rec.Version
	rec.Version++
	rec.UpdatedAt = time.Now()

	query := `
		UPDATE kyc_records SET
			license_number = :license_number,
			license_expiry = :license_expiry,
			id_type = :id_type,
			id_number = :id_number,
			insurance_policy_number = :insurance_policy_number,
			insurance_provider = :insurance_provider,
			insurance_expiry = :insurance_expiry,
			background_check_consent = :background_check_consent,
			criminal_disclosure = :criminal_disclosure,
			criminal_details = :criminal_details,
			bank_name = :bank_name,
			account_holder_name = :account_holder_name,
			account_number_ciphertext = :account_number_ciphertext,
			routing_number = :routing_number,
			tax_id_ciphertext = :tax_id_ciphertext,
			status = :status,
			current_step = :current_step,
			completion_percentage = :completion_percentage,
			required_documents_uploaded = :required_documents_uploaded,
			submitted_at = :submitted_at,
			reviewed_at = :reviewed_at,
			approved_at = :approved_at,
			rejection_reason = :rejection_reason,
			admin_notes = :admin_notes,
			version = :version,
			updated_at = :updated_at
		WHERE id = :id AND version = ` + fmt.Sprintf("%d", currentVersion)

	result, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		rec.Version = currentVersion
		return fmt.Errorf("failed to update kyc record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		rec.Version = currentVersion
		return ErrStaleRecord
	}
	return nil
}

func (r *postgresRepository) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	var recs []Record
	err := r.db.SelectContext(ctx, &recs,
		"SELECT * FROM kyc_records WHERE status = $1 ORDER BY submitted_at ASC NULLS LAST", status)
	if err != nil {
		return nil, fmt.Errorf("failed to list kyc records: %w", err)
	}
	out := make([]*Record, len(recs))
	for i := range recs {
		if err := r.loadDocuments(ctx, &recs[i]); err != nil {
			return nil, err
		}
		out[i] = &recs[i]
	}
	return out, nil
}

func (r *postgresRepository) UpsertDocument(ctx context.Context, ref *DocumentRef) error {
	query := `
		INSERT INTO kyc_documents (
			id, record_id, slot, storage_key, url, file_name, content_type, file_size, uploaded_at
		) VALUES (
			:id, :record_id, :slot, :storage_key, :url, :file_name, :content_type, :file_size, :uploaded_at
		)
		ON CONFLICT (record_id, slot) DO UPDATE SET
			id = EXCLUDED.id,
			storage_key = EXCLUDED.storage_key,
			url = EXCLUDED.url,
			file_name = EXCLUDED.file_name,
			content_type = EXCLUDED.content_type,
			file_size = EXCLUDED.file_size,
			uploaded_at = EXCLUDED.uploaded_at`
	if _, err := r.db.NamedExecContext(ctx, query, ref); err != nil {
		return fmt.Errorf("failed to upsert kyc document: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteDocument(ctx context.Context, recordID uuid.UUID, slot DocumentSlot) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM kyc_documents WHERE record_id = $1 AND slot = $2", recordID, slot)
	if err != nil {
		return fmt.Errorf("failed to delete kyc document: %w", err)
	}
	return nil
}

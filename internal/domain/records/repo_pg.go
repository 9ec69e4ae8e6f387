package records

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const recordCols = `record_id, user_id, file_url, file_name, file_type, description, uploaded_at`

const documentCols = `document_id, doctor_id, document_type, file_url, verified, uploaded_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	if err := row.Scan(&m.RecordID, &m.UserID, &m.FileURL, &m.FileName, &m.FileType,
		&m.Description, &m.UploadedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanDocument(row pgx.Row) (*DoctorDocument, error) {
	var d DoctorDocument
	err := row.Scan(&d.DocumentID, &d.DoctorID, &d.DocumentType, &d.FileURL, &d.Verified, &d.UploadedAt)
	if db.IsNoRows(err) {
		return nil, errDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) CreateRecord(ctx context.Context, m *MedicalRecord) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (user_id, file_url, file_name, file_type, description)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING record_id, uploaded_at`,
		m.UserID, m.FileURL, m.FileName, m.FileType, m.Description,
	).Scan(&m.RecordID, &m.UploadedAt)
}

func (r *repoPG) ListRecords(ctx context.Context, userID int64, limit, offset int) ([]*MedicalRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM medical_records
		WHERE user_id = $1 ORDER BY uploaded_at DESC, record_id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CreateDocument(ctx context.Context, d *DoctorDocument) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_documents (doctor_id, document_type, file_url, verified)
		VALUES ($1,$2,$3,$4)
		RETURNING document_id, uploaded_at`,
		d.DoctorID, d.DocumentType, d.FileURL, d.Verified,
	).Scan(&d.DocumentID, &d.UploadedAt)
}

func (r *repoPG) GetDocument(ctx context.Context, id int64) (*DoctorDocument, error) {
	return scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM doctor_documents WHERE document_id = $1`, id))
}

func (r *repoPG) ListDocuments(ctx context.Context, doctorID int64, limit, offset int) ([]*DoctorDocument, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_documents WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+documentCols+` FROM doctor_documents
		WHERE doctor_id = $1 ORDER BY uploaded_at DESC, document_id DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetVerified(ctx context.Context, id int64, verified bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor_documents SET verified = $2 WHERE document_id = $1`, id, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errDocumentNotFound
	}
	return nil
}

package records

import "context"

type Repository interface {
	CreateRecord(ctx context.Context, r *MedicalRecord) error
	ListRecords(ctx context.Context, userID int64, limit, offset int) ([]*MedicalRecord, int, error)

	CreateDocument(ctx context.Context, d *DoctorDocument) error
	GetDocument(ctx context.Context, id int64) (*DoctorDocument, error)
	ListDocuments(ctx context.Context, doctorID int64, limit, offset int) ([]*DoctorDocument, int, error)
	SetVerified(ctx context.Context, id int64, verified bool) error
}

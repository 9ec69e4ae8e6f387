package records

import (
	"io"
	"time"

	"github.com/medbook/medbook/internal/platform/apperr"
)

// FileType classifies a patient medical record.
type FileType string

const (
	FilePrescription   FileType = "PRESCRIPTION"
	FileLabReport      FileType = "LAB_REPORT"
	FileScan           FileType = "SCAN"
	FileMedicalHistory FileType = "MEDICAL_HISTORY"
	FileOther          FileType = "OTHER"
)

func (t FileType) Valid() bool {
	switch t {
	case FilePrescription, FileLabReport, FileScan, FileMedicalHistory, FileOther:
		return true
	}
	return false
}

var errDocumentNotFound = apperr.NotFound("Document not found")

// MedicalRecord is a file a patient uploaded to their own record.
type MedicalRecord struct {
	RecordID    int64     `db:"record_id" json:"record_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileType    FileType  `db:"file_type" json:"file_type"`
	Description *string   `db:"description" json:"description,omitempty"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// DoctorDocument is a credential a doctor submitted for moderation.
type DoctorDocument struct {
	DocumentID   int64     `db:"document_id" json:"document_id"`
	DoctorID     int64     `db:"doctor_id" json:"doctor_id"`
	DocumentType string    `db:"document_type" json:"document_type"`
	FileURL      string    `db:"file_url" json:"file_url"`
	Verified     bool      `db:"verified" json:"verified"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Upload is an incoming file as received from a multipart form.
type Upload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

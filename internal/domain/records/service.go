package records

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/blobstore"
)

// URLPrefix is where stored blobs are served from.
const URLPrefix = "/uploads/"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type Service struct {
	repo   Repository
	store  blobstore.BlobStore
	policy blobstore.Policy
	logger zerolog.Logger
	now    func() time.Time
	suffix func() string
}

// shortID disambiguates uploads made by the same owner within one second.
func shortID() string { return uuid.NewString()[:8] }

func NewService(repo Repository, store blobstore.BlobStore, policy blobstore.Policy, logger zerolog.Logger) *Service {
	return &Service{repo: repo, store: store, policy: policy, logger: logger, now: time.Now, suffix: shortID}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithNameSuffix(suffix func() string) *Service {
	s.suffix = suffix
	return s
}

// put validates an upload and stores it under name + "." + ext.
func (s *Service) put(ctx context.Context, base string, up Upload) (string, error) {
	ext, err := s.policy.Check(up.FileName, up.Size)
	if err != nil {
		return "", apperr.BadInput(err.Error())
	}
	name := base + "." + ext
	if _, err := s.store.Put(ctx, name, up.Content); err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) {
			return "", apperr.BadInput(err.Error())
		}
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	return name, nil
}

// discard removes a blob whose row could not be written.
func (s *Service) discard(ctx context.Context, name string) {
	if err := s.store.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("remove orphaned upload")
	}
}

// -- Doctor documents --

func (s *Service) UploadDocument(ctx context.Context, doctorID int64, documentType string, up Upload) (*DoctorDocument, error) {
	documentType = strings.TrimSpace(documentType)
	if documentType == "" {
		return nil, apperr.BadInput("document_type is required")
	}
	safeType := unsafeNameChars.ReplaceAllString(documentType, "_")
	base := fmt.Sprintf("doctor_%d_%s_%d_%s", doctorID, safeType, s.now().Unix(), s.suffix())

	name, err := s.put(ctx, base, up)
	if err != nil {
		return nil, err
	}
	doc := &DoctorDocument{
		DoctorID:     doctorID,
		DocumentType: documentType,
		FileURL:      URLPrefix + name,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.discard(ctx, name)
		return nil, err
	}
	s.logger.Info().Int64("doctor_id", doctorID).Str("file", name).Msg("doctor document uploaded")
	return doc, nil
}

func (s *Service) Documents(ctx context.Context, doctorID int64, limit, offset int) ([]*DoctorDocument, int, error) {
	return s.repo.ListDocuments(ctx, doctorID, limit, offset)
}

// VerifyDocument marks a credential as checked by an admin. The stored file
// and its URL are left untouched.
func (s *Service) VerifyDocument(ctx context.Context, id int64) (*DoctorDocument, error) {
	if err := s.repo.SetVerified(ctx, id, true); err != nil {
		return nil, err
	}
	return s.repo.GetDocument(ctx, id)
}

// -- Medical records --

func (s *Service) UploadRecord(ctx context.Context, userID int64, fileType FileType, description string, up Upload) (*MedicalRecord, error) {
	if fileType == "" {
		fileType = FileOther
	}
	if !fileType.Valid() {
		return nil, apperr.BadInput("invalid file_type")
	}
	base := fmt.Sprintf("user_%d_%d_%s", userID, s.now().Unix(), s.suffix())

	name, err := s.put(ctx, base, up)
	if err != nil {
		return nil, err
	}
	rec := &MedicalRecord{
		UserID:   userID,
		FileURL:  URLPrefix + name,
		FileName: up.FileName,
		FileType: fileType,
	}
	if d := strings.TrimSpace(description); d != "" {
		rec.Description = &d
	}
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		s.discard(ctx, name)
		return nil, err
	}
	return rec, nil
}

func (s *Service) Records(ctx context.Context, userID int64, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.ListRecords(ctx, userID, limit, offset)
}

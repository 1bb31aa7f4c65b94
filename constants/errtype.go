package constants

// ErrorType is the machine-readable failure class recorded on a session.
type ErrorType string

const (
	ErrTypeOCRFailed              ErrorType = "ocr-failed"
	ErrTypeOCRTimeout             ErrorType = "ocr-timeout"
	ErrTypeExtractionFailed       ErrorType = "extraction-failed"
	ErrTypeDocumentEntityMismatch ErrorType = "document-entity-mismatch"
	ErrTypeIdentityNotFound       ErrorType = "identity-not-found"
	ErrTypeMissingRequiredFields  ErrorType = "missing-required-fields"
	ErrTypeDuplicateDriver        ErrorType = "duplicate-driver"
	ErrTypeDriverNotFound         ErrorType = "driver-not-found"
	ErrTypeStorageFailed          ErrorType = "storage-failed"
	ErrTypePersistenceFailed      ErrorType = "persistence-failed"
	ErrTypeInternal               ErrorType = "internal"
)

// IsCritical reports whether the failure signals a possible data-integrity
// violation rather than a transient fault.
func (e ErrorType) IsCritical() bool {
	return e == ErrTypeDocumentEntityMismatch || e == ErrTypeIdentityNotFound
}

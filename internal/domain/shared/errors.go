package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrDataValidation       = NewDomainError("DATA_VALIDATION", "Data contract violation")
	ErrReferentialViolation = NewDomainError("REFERENTIAL_VIOLATION", "Fact references a missing dimension key")
	ErrQualityGateFailed    = NewDomainError("QUALITY_GATE_FAILED", "Quality gate failed for fact table")
	ErrWatermarkRegression  = NewDomainError("WATERMARK_REGRESSION", "Watermark must never move backwards")
	ErrUpstreamUnavailable  = NewDomainError("UPSTREAM_UNAVAILABLE", "Source system request failed")
)

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with user-friendly error messages. It integrates
// with the dashboard API's error format for consistent error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion matching the dashboard API's error format
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type RestoreRequest struct {
//	    RecordID int64  `validate:"required,gt=0"`
//	    DestPath string `validate:"required,min=1,max=4096"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req RestoreRequest
//	    if err := json.Decode(r.Body, &req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//
// Numeric validations:
//   - gte=n: Greater than or equal to n
//   - lte=n: Less than or equal to n
//   - gt=n: Greater than n
//   - lt=n: Less than n
//   - min=n: Minimum value n
//   - max=n: Maximum value n
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "100" for max=100)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to API error format
//	}
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the dashboard API's format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "DestPath is required",
//	    "details": {"field": "DestPath", "tag": "required", "value": ""}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "RecordID: RecordID must be greater than 0; DestPath: DestPath is required",
//	    "details": {
//	        "fields": [
//	            {"field": "RecordID", "tag": "gt", "message": "..."},
//	            {"field": "DestPath", "tag": "required", "message": "..."}
//	        ]
//	    }
//	}
//
// # Error Message Translation
//
// Human-readable messages are generated for common validation tags:
//
//	required   -> "FilePath is required"
//	min=1      -> "Query must be at least 1 characters"
//	max=256    -> "Query must be at most 256 characters"
//	gte=1      -> "Limit must be greater than or equal to 1"
//	lte=500    -> "Limit must be less than or equal to 500"
//	gt=0       -> "RecordID must be greater than 0"
//
// # Struct Tag Examples
//
// Dashboard API request validation:
//
//	type SearchQuery struct {
//	    Query string `validate:"required,min=1,max=256"`
//	    Limit int    `validate:"omitempty,gte=1,lte=500"`
//	}
//
//	type RestoreRequest struct {
//	    RecordID int64  `validate:"required,gt=0"`
//	    DestPath string `validate:"required,min=1,max=4096"`
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # Performance
//
// The validator caches struct reflection information:
//   - First validation of a struct type: ~1ms (reflection + caching)
//   - Subsequent validations: ~10us (cached)
//   - Memory: ~500 bytes per cached struct type
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
package validation

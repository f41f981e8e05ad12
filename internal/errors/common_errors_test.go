package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{
			name:     "network error type",
			errType:  ErrTypeNetwork,
			expected: "NETWORK",
		},
		{
			name:     "parsing error type",
			errType:  ErrTypeParsing,
			expected: "PARSING",
		},
		{
			name:     "storage error type",
			errType:  ErrTypeStorage,
			expected: "STORAGE",
		},
		{
			name:     "validation error type",
			errType:  ErrTypeValidation,
			expected: "VALIDATION",
		},
		{
			name:     "not found error type",
			errType:  ErrTypeNotFound,
			expected: "NOT_FOUND",
		},
		{
			name:     "export error type",
			errType:  ErrTypeExport,
			expected: "EXPORT",
		},
		{
			name:     "config error type",
			errType:  ErrTypeConfig,
			expected: "CONFIG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "Failed to parse complaints CSV",
				Cause:   fmt.Errorf("unexpected column count"),
			},
			wantMessage: "[PARSING] Failed to parse complaints CSV: unexpected column count",
		},
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeExport,
				Message: "Workbook generation failed",
			},
			wantMessage: "[EXPORT] Workbook generation failed",
		},
		{
			name: "network error with cause",
			appError: &AppError{
				Type:    ErrTypeNetwork,
				Message: "Dataset download failed",
				Cause:   fmt.Errorf("connection refused"),
			},
			wantMessage: "[NETWORK] Dataset download failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		wantErr  error
	}{
		{
			name: "unwrap with cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "Storage error",
				Cause:   fmt.Errorf("original error"),
			},
			wantErr: fmt.Errorf("original error"),
		},
		{
			name: "unwrap without cause",
			appError: &AppError{
				Type:    ErrTypeNetwork,
				Message: "Network error",
				Cause:   nil,
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Unwrap()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr.Error(), got.Error())
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	tests := []struct {
		name          string
		appError      *AppError
		key           string
		value         interface{}
		expectedValue interface{}
	}{
		{
			name: "add string context",
			appError: &AppError{
				Type:    ErrTypeExport,
				Message: "Export error",
			},
			key:           "format",
			value:         "xlsx",
			expectedValue: "xlsx",
		},
		{
			name: "add integer context",
			appError: &AppError{
				Type:    ErrTypeNetwork,
				Message: "Network error",
			},
			key:           "retry_count",
			value:         3,
			expectedValue: 3,
		},
		{
			name: "add complex object context",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "Parsing error",
			},
			key:           "row",
			value:         map[string]string{"product": "Mortgage", "company": "Acme Bank"},
			expectedValue: map[string]string{"product": "Mortgage", "company": "Acme Bank"},
		},
		{
			name: "add context to error with existing context",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "Validation error",
				Context: map[string]interface{}{"field": "years"},
			},
			key:           "value",
			value:         "20xx",
			expectedValue: "20xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.WithContext(tt.key, tt.value)

			// Should return the same instance
			assert.Same(t, tt.appError, result)

			require.Contains(t, result.Context, tt.key)
			assert.Equal(t, tt.expectedValue, result.Context[tt.key])
			assert.NotNil(t, result.Context)
		})
	}
}

func TestAppError_WithContext_NilContext(t *testing.T) {
	appError := &AppError{
		Type:    ErrTypeConfig,
		Message: "Test error",
		Context: nil,
	}

	result := appError.WithContext("test_key", "test_value")

	assert.NotNil(t, result.Context)
	assert.Equal(t, "test_value", result.Context["test_key"])
}

func TestNewAppError(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		message  string
		cause    error
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "create storage error",
			errType:  ErrTypeStorage,
			message:  "Failed to write export file",
			cause:    fmt.Errorf("disk full"),
			wantType: ErrTypeStorage,
			wantMsg:  "Failed to write export file",
		},
		{
			name:     "create validation error without cause",
			errType:  ErrTypeValidation,
			message:  "Unknown granularity",
			cause:    nil,
			wantType: ErrTypeValidation,
			wantMsg:  "Unknown granularity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAppError(tt.errType, tt.message, tt.cause)

			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.Equal(t, tt.cause, got.Cause)
			assert.NotNil(t, got.Context)
		})
	}
}

func TestNewNetworkError(t *testing.T) {
	cause := fmt.Errorf("timeout")
	got := NewNetworkError("Dataset download failed", cause)

	assert.Equal(t, ErrTypeNetwork, got.Type)
	assert.Equal(t, "Dataset download failed", got.Message)
	assert.Equal(t, cause, got.Cause)
}

func TestNewParsingError(t *testing.T) {
	cause := fmt.Errorf("bad quoting")
	got := NewParsingError("Failed to parse row", cause)

	assert.Equal(t, ErrTypeParsing, got.Type)
	assert.Equal(t, "Failed to parse row", got.Message)
	assert.Equal(t, cause, got.Cause)
}

func TestNewStorageError(t *testing.T) {
	got := NewStorageError("Failed to create exports directory", nil)

	assert.Equal(t, ErrTypeStorage, got.Type)
	assert.Nil(t, got.Cause)
}

func TestNewAppValidationError(t *testing.T) {
	got := NewAppValidationError("top_n out of range")

	assert.Equal(t, ErrTypeValidation, got.Type)
	assert.Equal(t, "top_n out of range", got.Message)
	assert.Nil(t, got.Cause)
}

func TestNewNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		wantMsg  string
	}{
		{
			name:     "export file not found",
			resource: "export file",
			wantMsg:  "export file not found",
		},
		{
			name:     "dataset not found",
			resource: "dataset",
			wantMsg:  "dataset not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewNotFoundError(tt.resource)

			assert.Equal(t, ErrTypeNotFound, got.Type)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestNewExportError(t *testing.T) {
	cause := fmt.Errorf("sheet limit exceeded")
	got := NewExportError("Workbook generation failed", cause)

	assert.Equal(t, ErrTypeExport, got.Type)
	assert.Equal(t, "Workbook generation failed", got.Message)
	assert.Equal(t, cause, got.Cause)
}

func TestNewConfigError(t *testing.T) {
	got := NewConfigError("invalid analytics thresholds", fmt.Errorf("critical below watch"))

	assert.Equal(t, ErrTypeConfig, got.Type)
	assert.Contains(t, got.Error(), "[CONFIG]")
	assert.Contains(t, got.Error(), "critical below watch")
}

func TestAppError_ErrorsIntegration(t *testing.T) {
	t.Run("errors.Is works with AppError", func(t *testing.T) {
		originalErr := fmt.Errorf("original error")
		appErr := NewExportError("Export failed", originalErr)

		assert.True(t, errors.Is(appErr, originalErr))

		otherErr := fmt.Errorf("other error")
		assert.False(t, errors.Is(appErr, otherErr))
	})

	t.Run("errors.As works with AppError", func(t *testing.T) {
		originalErr := &AppError{
			Type:    ErrTypeNetwork,
			Message: "Network error",
		}
		wrappedErr := fmt.Errorf("wrapped: %w", originalErr)

		var appErr *AppError
		assert.True(t, errors.As(wrappedErr, &appErr))
		assert.Equal(t, ErrTypeNetwork, appErr.Type)
		assert.Equal(t, "Network error", appErr.Message)
	})
}

func TestAppError_ContextChaining(t *testing.T) {
	t.Run("chain multiple context values", func(t *testing.T) {
		appErr := NewExportError("Workbook generation failed", nil)

		result := appErr.
			WithContext("format", "xlsx").
			WithContext("sheet", "Company Performance").
			WithContext("attempt", 3)

		assert.Same(t, appErr, result)
		assert.Equal(t, "xlsx", result.Context["format"])
		assert.Equal(t, "Company Performance", result.Context["sheet"])
		assert.Equal(t, 3, result.Context["attempt"])
	})

	t.Run("overwrite existing context value", func(t *testing.T) {
		appErr := NewNetworkError("Connection failed", nil)

		result := appErr.
			WithContext("retry_count", 1).
			WithContext("retry_count", 2)

		assert.Equal(t, 2, result.Context["retry_count"])
	})
}

func TestAppError_ComplexScenarios(t *testing.T) {
	t.Run("nested error unwrapping", func(t *testing.T) {
		rootErr := fmt.Errorf("root cause")
		storageErr := NewStorageError("Write failed", rootErr)
		networkErr := NewNetworkError("Sync failed", storageErr)

		assert.True(t, errors.Is(networkErr, storageErr))
		assert.True(t, errors.Is(networkErr, rootErr))

		// errors.As stops at the outermost AppError in the chain.
		var appErr *AppError
		assert.True(t, errors.As(networkErr, &appErr))
		assert.Equal(t, ErrTypeNetwork, appErr.Type)
	})

	t.Run("error with rich context", func(t *testing.T) {
		appErr := NewParsingError("Failed to parse complaints CSV", fmt.Errorf("invalid syntax")).
			WithContext("file_path", "/data/complaints.csv").
			WithContext("line_number", 42).
			WithContext("column", "Date received")

		expected := "[PARSING] Failed to parse complaints CSV: invalid syntax"
		assert.Equal(t, expected, appErr.Error())

		assert.Equal(t, "/data/complaints.csv", appErr.Context["file_path"])
		assert.Equal(t, 42, appErr.Context["line_number"])
		assert.Equal(t, "Date received", appErr.Context["column"])
	})
}

func TestAppError_EdgeCases(t *testing.T) {
	t.Run("nil cause unwrap", func(t *testing.T) {
		appErr := &AppError{
			Type:    ErrTypeValidation,
			Message: "Validation failed",
			Cause:   nil,
		}

		assert.Nil(t, appErr.Unwrap())
	})

	t.Run("empty context handling", func(t *testing.T) {
		appErr := &AppError{
			Type:    ErrTypeConfig,
			Message: "Config error",
			Context: make(map[string]interface{}),
		}

		result := appErr.WithContext("key", "value")
		assert.Equal(t, "value", result.Context["key"])
	})

	t.Run("context with nil values", func(t *testing.T) {
		appErr := NewExportError("Export error", nil)

		result := appErr.WithContext("nullable_field", nil)
		assert.Contains(t, result.Context, "nullable_field")
		assert.Nil(t, result.Context["nullable_field"])
	})
}

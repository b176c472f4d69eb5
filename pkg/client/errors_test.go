package client

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection refused"),
			},
			expected: "companies house server error (status 500): internal server error: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
				Err:        nil,
			},
			expected: "companies house client error (status 404): not found",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "rate limit exceeded",
				Err:        nil,
			},
			expected: "companies house rate_limit error (status 429): rate limit exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apiError.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	unwrapped := apiError.Unwrap()
	if unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}

	// Test errors.Is
	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestAPIError_UnwrapNil(t *testing.T) {
	apiError := &APIError{
		StatusCode: 404,
		ErrorClass: ErrorClassClient,
		Message:    "not found",
		Err:        nil,
	}

	unwrapped := apiError.Unwrap()
	if unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

package certs

import (
	"crypto/tls"
	"errors"
)

// MockManager is a Manager returning a fixed certificate or error.
type MockManager struct {
	Certificate  tls.Certificate
	GetError     error
	GetCallCount int
}

// GetOrCreateCertificate returns the configured certificate or error.
func (m *MockManager) GetOrCreateCertificate() (tls.Certificate, error) {
	m.GetCallCount++
	if m.GetError != nil {
		return tls.Certificate{}, m.GetError
	}
	return m.Certificate, nil
}

// NewMockManager creates a mock manager holding placeholder certificate bytes.
func NewMockManager() *MockManager {
	return &MockManager{
		Certificate: tls.Certificate{
			Certificate: [][]byte{{1, 2, 3}},
		},
	}
}

// NewFailingMockManager creates a mock manager that always fails with errMsg.
func NewFailingMockManager(errMsg string) *MockManager {
	return &MockManager{GetError: errors.New(errMsg)}
}

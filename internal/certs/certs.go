// Package certs issues the self-signed localhost certificate the web server
// uses when it has to speak HTTPS. Plaid Link refuses plain HTTP redirect
// URIs in production, so the server cannot always run in the clear.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Certificate lifetime and renewal margin.
const (
	DefaultValidity = 365 * 24 * time.Hour
	RenewBefore     = 7 * 24 * time.Hour
)

// Errors returned when a stored certificate cannot be used.
var (
	ErrNoCertificate = errors.New("no certificate in key pair")
	ErrExpiring      = errors.New("certificate expired or about to expire")
	ErrWrongHost     = errors.New("certificate not valid for localhost")
)

// Manager supplies a TLS certificate for the local server.
type Manager interface {
	GetOrCreateCertificate() (tls.Certificate, error)
}

// FileManager keeps a localhost certificate and key as PEM files in a directory.
type FileManager struct {
	now      func() time.Time
	certDir  string
	certFile string
	keyFile  string
	validity time.Duration
}

// NewFileManager creates a FileManager storing files under certDir.
func NewFileManager(certDir string) *FileManager {
	return &FileManager{
		now:      time.Now,
		certDir:  certDir,
		certFile: filepath.Join(certDir, "localhost.crt"),
		keyFile:  filepath.Join(certDir, "localhost.key"),
		validity: DefaultValidity,
	}
}

// Paths returns the certificate and key file locations.
func (m *FileManager) Paths() (certFile, keyFile string) {
	return m.certFile, m.keyFile
}

// GetOrCreateCertificate loads the stored certificate, issuing a new one when
// none exists, the files are unreadable, or it expires within RenewBefore.
func (m *FileManager) GetOrCreateCertificate() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err == nil {
		if err = m.check(cert); err == nil {
			return cert, nil
		}
	}
	if !errors.Is(err, os.ErrNotExist) {
		// Unusable files are replaced rather than reported.
		if rmErr := m.remove(); rmErr != nil {
			return tls.Certificate{}, rmErr
		}
	}
	return m.issue()
}

// TLSConfig returns a server TLS configuration using the managed certificate.
func (m *FileManager) TLSConfig() (*tls.Config, error) {
	return NewTLSConfig(m)
}

// NewTLSConfig builds a server TLS configuration from any Manager.
func NewTLSConfig(m Manager) (*tls.Config, error) {
	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func (m *FileManager) issue() (tls.Certificate, error) {
	if err := os.MkdirAll(m.certDir, 0700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := m.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"Plaid Viewer"}, CommonName: "localhost"},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(m.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(m.certFile, certPEM, 0600); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(m.keyFile, keyPEM, 0600); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to write private key: %w", err)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

func (m *FileManager) check(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return ErrNoCertificate
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := m.now()
	if now.Before(leaf.NotBefore) || now.Add(RenewBefore).After(leaf.NotAfter) {
		return ErrExpiring
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		return fmt.Errorf("%w: %w", ErrWrongHost, err)
	}
	return nil
}

func (m *FileManager) remove() error {
	for _, f := range []string{m.certFile, m.keyFile} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// internal/tls/config.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"tokenware/internal/observability/logging"
)

// expiryWarning is how close to NotAfter a serving certificate starts to be reported
const expiryWarning = 14 * 24 * time.Hour

// Config holds the TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string
}

// GetTLSConfig creates a TLS configuration for the server
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("Initializing TLS configuration")

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	if err := c.checkValidity(leaf, logger); err != nil {
		return nil, err
	}
	cert.Leaf = leaf

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12, // Enforce minimum TLS version
	}

	logger.Info("TLS configuration successful", "subject", subjectOf(leaf), "not_after", leaf.NotAfter)
	return tlsConfig, nil
}

// checkValidity rejects certificates outside their validity window and warns
// about ones close to expiry
func (c *Config) checkValidity(cert *x509.Certificate, logger *logging.Logger) error {
	now := time.Now()

	if now.Before(cert.NotBefore) {
		return fmt.Errorf("server certificate %s is not valid before %s", subjectOf(cert), cert.NotBefore)
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("server certificate %s expired at %s", subjectOf(cert), cert.NotAfter)
	}
	if cert.NotAfter.Sub(now) < expiryWarning {
		logger.Warn("Server certificate expires soon", "subject", subjectOf(cert), "not_after", cert.NotAfter)
	}
	return nil
}

// subjectOf returns the Common Name, or the first DNS name when CN is empty
func subjectOf(cert *x509.Certificate) string {
	if cert.Subject.CommonName != "" {
		return cert.Subject.CommonName
	}
	if len(cert.DNSNames) > 0 {
		return cert.DNSNames[0]
	}
	return "<unnamed>"
}

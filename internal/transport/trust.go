package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TrustConfig builds the TLS configuration for the dialer from a PEM
// bundle of trusted CA certificates. An empty path means the system trust
// store, reported as a nil config.
func TrustConfig(bundlePath string) (*tls.Config, error) {
	if bundlePath == "" {
		return nil, nil
	}

	pem, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("transport: read trust bundle: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("transport: no certificates in trust bundle %s", bundlePath)
	}

	return &tls.Config{RootCAs: pool}, nil
}

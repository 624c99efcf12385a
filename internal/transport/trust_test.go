package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTrustConfig_EmptyPathMeansSystemRoots(t *testing.T) {
	cfg, err := TrustConfig("")
	if err != nil {
		t.Fatalf("TrustConfig(\"\") error = %v", err)
	}
	if cfg != nil {
		t.Errorf("TrustConfig(\"\") = %+v, want nil", cfg)
	}
}

func TestTrustConfig_MissingFile(t *testing.T) {
	if _, err := TrustConfig(filepath.Join(t.TempDir(), "absent.pem")); err == nil {
		t.Error("TrustConfig() error = nil, want error")
	}
}

func TestTrustConfig_NoCertificates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := TrustConfig(path); err == nil {
		t.Error("TrustConfig() error = nil, want error")
	}
}

func TestTrustConfig_ValidBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, selfSignedCertPEM(t), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := TrustConfig(path)
	if err != nil {
		t.Fatalf("TrustConfig() error = %v", err)
	}
	if cfg == nil || cfg.RootCAs == nil {
		t.Fatal("TrustConfig() returned no root pool")
	}
}

func selfSignedCertPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

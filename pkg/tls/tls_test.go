package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeCertPair writes a self-signed certificate into dir and returns a
// Config that uses it as certificate, key, and CA at once.
func writeCertPair(t *testing.T, dir string) Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "driftcast-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	return Config{Enabled: true, CertFile: certFile, KeyFile: keyFile, CAFile: certFile}
}

func TestConfig_Validate_Disabled(t *testing.T) {
	cfg := Config{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}
}

func TestConfig_Validate_MissingFiles(t *testing.T) {
	cfg := Config{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled config without files should not validate")
	}

	cfg = Config{
		Enabled:  true,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
		CAFile:   "/nonexistent/ca.pem",
	}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled config with missing files should not validate")
	}
}

func TestConfig_Server(t *testing.T) {
	cfg := writeCertPair(t, t.TempDir())

	got, err := cfg.Server()
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}
	if got.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("ClientAuth = %v, want RequireAndVerifyClientCert", got.ClientAuth)
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", got.MinVersion)
	}
	if got.ClientCAs == nil {
		t.Error("ClientCAs should be populated")
	}
}

func TestConfig_Client(t *testing.T) {
	cfg := writeCertPair(t, t.TempDir())

	got, err := cfg.Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if len(got.Certificates) != 1 {
		t.Fatalf("Certificates length = %d, want 1", len(got.Certificates))
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", got.MinVersion)
	}
	if got.RootCAs == nil {
		t.Error("RootCAs should be populated")
	}
}

func TestConfig_BadCA(t *testing.T) {
	dir := t.TempDir()
	cfg := writeCertPair(t, dir)

	badCA := filepath.Join(dir, "bad-ca.pem")
	if err := os.WriteFile(badCA, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write bad CA: %v", err)
	}
	cfg.CAFile = badCA

	if _, err := cfg.Server(); err == nil {
		t.Error("Server() should reject an unparseable CA")
	}
	if _, err := cfg.Client(); err == nil {
		t.Error("Client() should reject an unparseable CA")
	}
}

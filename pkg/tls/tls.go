// Package tls builds the mutual-TLS configurations used by Driftcast
// services: the verifier's HTTPS listener and the adapter's upstream
// client. Both sides pin TLS 1.3 and verify the peer against a shared CA.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config names the certificate material for one service identity.
// The same identity serves both directions: the listener presents
// CertFile/KeyFile and verifies clients against CAFile, the upstream
// client presents the pair and verifies the server against CAFile.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// suites is the cipher allow-list for both directions: AES-GCM and
// ChaCha20-Poly1305 only.
var suites = []uint16{
	tls.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384,
	tls.TLS_CHACHA20_POLY1305_SHA256,
}

// Validate checks that an enabled configuration names readable files.
// A disabled configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.checkFiles()
}

func (c Config) checkFiles() error {
	if c.CertFile == "" || c.KeyFile == "" || c.CAFile == "" {
		return errors.New("tls enabled but cert/key/ca files not specified")
	}
	for _, path := range []string{c.CertFile, c.KeyFile, c.CAFile} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}
	return nil
}

// Server builds the listener-side TLS configuration. Client certificates
// are required and verified against CAFile; the server certificate pair
// is loaded separately by the HTTP server from CertFile/KeyFile.
func (c Config) Server() (*tls.Config, error) {
	if err := c.checkFiles(); err != nil {
		return nil, err
	}

	pool, err := c.caPool()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
		CipherSuites: suites,
	}, nil
}

// Client builds the upstream-client TLS configuration: present the
// certificate pair, verify the server against CAFile.
func (c Config) Client() (*tls.Config, error) {
	if err := c.checkFiles(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	pool, err := c.caPool()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
		CipherSuites: suites,
	}, nil
}

func (c Config) caPool() (*x509.CertPool, error) {
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}

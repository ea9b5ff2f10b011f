package credentials

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// Placeholders until provisioned at build time; see the package doc.
var (
	//go:embed client.crt
	embeddedCert []byte
	//go:embed client.key
	embeddedKey []byte
	//go:embed ca.crt
	embeddedCA []byte
)

// tlsMinVersion is the minimum TLS version offered to the broker.
const tlsMinVersion = tls.VersionTLS12

var (
	// ErrNoClientCertificate is returned when a client certificate is requested
	// but the bundle carries none.
	ErrNoClientCertificate = errors.New("credentials: no client certificate")

	// ErrInvalidKeyPair is returned when the certificate and key cannot be paired.
	ErrInvalidKeyPair = errors.New("credentials: invalid certificate/key pair")

	// ErrInvalidCA is returned when the CA bundle contains no usable certificate.
	ErrInvalidCA = errors.New("credentials: invalid CA certificate")
)

// Bundle is a set of PEM-encoded key material.
type Bundle struct {
	CertPEM []byte
	KeyPEM  []byte
	CAPEM   []byte

	// Source describes where the material came from ("embedded" or a path).
	Source string
}

// Embedded returns the key material compiled into the binary.
func Embedded() Bundle {
	return Bundle{
		CertPEM: bytes.TrimSpace(embeddedCert),
		KeyPEM:  bytes.TrimSpace(embeddedKey),
		CAPEM:   bytes.TrimSpace(embeddedCA),
		Source:  config.CredentialsEmbedded,
	}
}

// LoadFiles reads key material from disk. caFile may be empty.
func LoadFiles(certFile, keyFile, caFile string) (Bundle, error) {
	b := Bundle{Source: certFile}

	var err error
	if certFile != "" {
		if b.CertPEM, err = os.ReadFile(certFile); err != nil {
			return Bundle{}, fmt.Errorf("reading client certificate: %w", err)
		}
	}
	if keyFile != "" {
		if b.KeyPEM, err = os.ReadFile(keyFile); err != nil {
			return Bundle{}, fmt.Errorf("reading private key: %w", err)
		}
	}
	if caFile != "" {
		if b.CAPEM, err = os.ReadFile(caFile); err != nil {
			return Bundle{}, fmt.Errorf("reading CA certificate: %w", err)
		}
	}

	return b, nil
}

// Load returns the bundle selected by cfg.Source.
func Load(cfg config.CredentialsConfig) (Bundle, error) {
	switch cfg.Source {
	case config.CredentialsFile:
		return LoadFiles(cfg.CertFile, cfg.KeyFile, cfg.CAFile)
	case config.CredentialsEmbedded, "":
		return Embedded(), nil
	default:
		return Bundle{}, fmt.Errorf("credentials: unknown source %q", cfg.Source)
	}
}

// HasClientCertificate reports whether both a certificate and a key are present.
func (b Bundle) HasClientCertificate() bool {
	return len(b.CertPEM) > 0 && len(b.KeyPEM) > 0
}

// HasCA reports whether a CA certificate is present.
func (b Bundle) HasCA() bool {
	return len(b.CAPEM) > 0
}

// Certificate parses the client key pair.
func (b Bundle) Certificate() (tls.Certificate, error) {
	if !b.HasClientCertificate() {
		if len(b.CertPEM) > 0 || len(b.KeyPEM) > 0 {
			return tls.Certificate{}, fmt.Errorf("%w: certificate and key must both be present", ErrInvalidKeyPair)
		}
		return tls.Certificate{}, ErrNoClientCertificate
	}

	cert, err := tls.X509KeyPair(b.CertPEM, b.KeyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrInvalidKeyPair, err)
	}
	return cert, nil
}

// TLSConfig builds a client TLS configuration.
//
// The client key pair is attached when present, so the same bundle serves
// brokers with and without mutual TLS. When a CA is present it replaces
// the system roots.
//
// Parameters:
//   - serverName: Name to verify the broker certificate against
//
// Returns:
//   - *tls.Config: Configuration ready for the MQTT client
//   - error: If the key pair or CA cannot be parsed
func (b Bundle) TLSConfig(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tlsMinVersion,
		ServerName: serverName,
	}

	cert, err := b.Certificate()
	switch {
	case err == nil:
		cfg.Certificates = []tls.Certificate{cert}
	case errors.Is(err, ErrNoClientCertificate):
	default:
		return nil, err
	}

	if b.HasCA() {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(b.CAPEM) {
			return nil, ErrInvalidCA
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// Summary describes the client certificate without exposing key material.
type Summary struct {
	Subject  string
	Issuer   string
	NotAfter time.Time
}

// Describe parses the client certificate for logging.
func (b Bundle) Describe() (Summary, error) {
	cert, err := b.Certificate()
	if err != nil {
		return Summary{}, err
	}

	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return Summary{}, fmt.Errorf("%w: %w", ErrInvalidKeyPair, err)
		}
	}

	return Summary{
		Subject:  leaf.Subject.String(),
		Issuer:   leaf.Issuer.String(),
		NotAfter: leaf.NotAfter,
	}, nil
}

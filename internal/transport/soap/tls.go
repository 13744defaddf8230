package soap

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/Ometra-Hela/Alize/internal/model"
)

type TLSConfig struct {
	CertPath string
	KeyPath  string
	CAPath   string
}

func (c TLSConfig) Enabled() bool {
	return c.CertPath != "" || c.KeyPath != "" || c.CAPath != ""
}

// newTLSConfig loads the client certificate and the trusted CA for mutual TLS.
func newTLSConfig(c TLSConfig) (*tls.Config, error) {
	if c.CertPath == "" || c.KeyPath == "" || c.CAPath == "" {
		return nil, model.NewConfigurationError("mutual TLS needs cert, key and CA paths")
	}

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, model.NewConfigurationError("load client certificate: %v", err)
	}

	caPEM, err := os.ReadFile(c.CAPath)
	if err != nil {
		return nil, model.NewConfigurationError("read CA bundle: %v", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, model.NewConfigurationError("CA bundle %s holds no certificates", c.CAPath)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ServerTLSConfig is the listener side of the same mutual TLS material: the node
// presents its certificate and requires a client certificate signed by the CA.
func ServerTLSConfig(c TLSConfig) (*tls.Config, error) {
	cfg, err := newTLSConfig(c)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: cfg.Certificates,
		ClientCAs:    cfg.RootCAs,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

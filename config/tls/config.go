// Package tls turns yaml-tagged TLS settings into a *tls.Config for a
// dialing client: a CA bundle to verify the peer, an optional client
// certificate for mutual TLS, and the server name to present in SNI.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

type TLSConfig struct {
	CACertPEMPath     string `yaml:"ca_cert_pem_path"`
	ClientCertPEMPath string `yaml:"client_cert_pem_path"`
	ClientKeyPEMPath  string `yaml:"client_key_pem_path"`
	ServerName        string `yaml:"server_name"`
	InsecureSkipVerify bool  `yaml:"insecure_skip_verify"`
}

func (c *TLSConfig) Validate() error {
	if c.ClientCertPEMPath != "" && c.ClientKeyPEMPath == "" {
		return errors.New("client key path not specified, while client cert path is")
	}
	if c.ClientKeyPEMPath != "" && c.ClientCertPEMPath == "" {
		return errors.New("client cert path not specified, while client key path is")
	}
	if c.ServerName == "" && !c.InsecureSkipVerify {
		return errors.New("server name not specified")
	}
	return nil
}

// Parse builds a *tls.Config suitable for dialing. A caller that only
// needs a bare TLS dial with the system root pool and no client cert
// can leave CACertPEMPath and the client cert fields empty.
func (c *TLSConfig) Parse() (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	conf := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.InsecureSkipVerify,
		NextProtos:         []string{"amqp"},
	}

	if c.CACertPEMPath != "" {
		pem, err := os.ReadFile(c.CACertPEMPath)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca cert %s contains no usable certificates", c.CACertPEMPath)
		}
		conf.RootCAs = pool
	}

	if c.ClientCertPEMPath != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCertPEMPath, c.ClientKeyPEMPath)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}

package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config defines the broker connection and topic layout.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "erdispatch"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "vehicle"
	}
	c.TopicPrefix = strings.Trim(c.TopicPrefix, "/")
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 {
		return errors.New("mqtt: max_retries and backoff_ms must not be negative")
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return errors.New("mqtt: tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

// DispatchTopic is where orders for a vehicle are published.
func (c Config) DispatchTopic(vehicleID int) string {
	return fmt.Sprintf("%s/%d/dispatch", c.TopicPrefix, vehicleID)
}

// AckTopic matches the acknowledgments of every vehicle.
func (c Config) AckTopic() string { return c.TopicPrefix + "/+/ack" }

// VehicleAckTopic is where the crew of one vehicle acknowledges orders.
func (c Config) VehicleAckTopic(vehicleID int) string {
	return fmt.Sprintf("%s/%d/ack", c.TopicPrefix, vehicleID)
}

// AllDispatchTopic matches the orders of every vehicle.
func (c Config) AllDispatchTopic() string { return c.TopicPrefix + "/+/dispatch" }

// LoadTLSConfig reads the certificate files referenced by c.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultListenAddress is the address the wrap api listens on if not
	// configured otherwise.
	DefaultListenAddress = "127.0.0.1:4747"

	// DefaultInstrumentationAddress is the address the metrics and pprof
	// server listens on if not configured otherwise.
	DefaultInstrumentationAddress = "127.0.0.1:9090"
)

type Config struct {
	// ListenAddress is the address that the wrap api listens on.
	ListenAddress string `yaml:"listenAddress"`

	// InstrumentationAddress is the address that the Prometheus and pprof
	// http server listens on.
	InstrumentationAddress string `yaml:"instrumentationAddress"`

	// Lnd contains the configuration of the node.
	Lnd LndConfig `yaml:"lnd"`

	// Logging contains the logger configuration.
	Logging LoggingConfig `yaml:"logging"`
}

type LndConfig struct {
	// PubKey is the identity public key of the node.
	PubKey string `yaml:"pubKey"`

	// MacaroonPath is the disk path to the node's macaroon file.
	MacaroonPath string `yaml:"macaroonPath"`

	// TlsCertPath is the disk path to the node's tls certificate file.
	TlsCertPath string `yaml:"tlsCertPath"`

	// LndUrl is the host and port of the node's grpc interface.
	LndUrl string `yaml:"lndUrl"`

	// Network is the bitcoin network that the proxy is running on.
	// Options: mainnet, testnet, regtest, simnet.
	Network string `yaml:"network"`
}

type LoggingConfig struct {
	// Level is the minimum level that is logged (debug, info, warn,
	// error).
	Level string `yaml:"level"`

	// Format selects the log encoding (console, json).
	Format string `yaml:"format"`

	// WithCaller adds the caller location to every log line.
	WithCaller bool `yaml:"withCaller"`
}

func loadConfig(c *cli.Context) (*Config, error) {
	yamlFile, err := os.ReadFile(c.String("config"))
	if err != nil {
		return nil, err
	}

	unmarshal := yaml.UnmarshalStrict
	if c.Bool(nonStrictConfigFlag.Name) {
		unmarshal = yaml.Unmarshal
	}

	var cfg Config
	if err := unmarshal(yamlFile, &cfg); err != nil {
		return nil, err
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.InstrumentationAddress == "" {
		cfg.InstrumentationAddress = DefaultInstrumentationAddress
	}

	return &cfg, nil
}

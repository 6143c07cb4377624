package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/sdoh-bridge/fhirbridge/applaunch/demo"
	"github.com/sdoh-bridge/fhirbridge/applaunch/smartonfhir"
	"github.com/sdoh-bridge/fhirbridge/cdshooks"
)

type Config struct {
	// Public holds the configuration for the public interface.
	Public InterfaceConfig `koanf:"public"`
	// AppLaunch holds the configuration for the supported app launch flows.
	AppLaunch AppLaunchConfig `koanf:"applaunch"`
	// CDSHooks holds the configuration for the CDS Hooks endpoints.
	CDSHooks cdshooks.Config `koanf:"cdshooks"`
	LogLevel zerolog.Level   `koanf:"loglevel"`
}

// InterfaceConfig holds the configuration for an HTTP interface.
type InterfaceConfig struct {
	// Address holds the address to listen on.
	Address string `koanf:"address"`
	// BaseURL holds the public URL of this application, used for redirects and card links.
	BaseURL string `koanf:"baseurl"`
}

type AppLaunchConfig struct {
	SmartOnFHIR smartonfhir.Config `koanf:"smartonfhir"`
	Demo        demo.Config        `koanf:"demo"`
}

func (c Config) Validate() error {
	if c.Public.BaseURL == "" {
		return errors.New("public base URL is not configured")
	}
	if _, err := url.Parse(c.Public.BaseURL); err != nil {
		return errors.New("invalid public base URL")
	}
	if c.AppLaunch.SmartOnFHIR.ClientID == "" && !c.AppLaunch.Demo.Enabled {
		return errors.New("no app launch flow is configured")
	}
	return nil
}

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider("SDOHBRIDGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SDOHBRIDGE_")), "_", ".", -1)
	}), nil)
	if err != nil {
		return nil, err
	}

	result := DefaultConfig()
	if err := k.Unmarshal("", &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &result, nil
}

// DefaultConfig returns sensible, but not complete, default configuration values.
func DefaultConfig() Config {
	return Config{
		Public: InterfaceConfig{
			Address: ":8080",
		},
		AppLaunch: AppLaunchConfig{
			SmartOnFHIR: smartonfhir.DefaultConfig(),
		},
		LogLevel: zerolog.InfoLevel,
	}
}

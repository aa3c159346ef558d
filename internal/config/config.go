package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/internal/logging"
	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

// DefaultPath is the configuration file read when --config is not given
const DefaultPath = "arkit.yaml"

// Defaults for the keychain item holding the wallet
const (
	DefaultKeychainService = "arkit"
	DefaultKeychainAccount = "default"
)

// DefaultAWSRegion is used by the AWS strategies when no region is set
const DefaultAWSRegion = "us-east-1"

// Akeyless defaults
const (
	DefaultAkeylessGateway   = "https://api.akeyless.io"
	DefaultAkeylessAccessEnv = "AKEYLESS_ACCESS_KEY"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	MetricsAddr    string

	// Required makes a missing file an error. Without it Load falls back to
	// Default().
	Required bool

	Definition *Definition
}

// Definition represents the arkit.yaml structure
type Definition struct {
	Version     int              `yaml:"version"`
	App         AppConfig        `yaml:"app"`
	Permissions []string         `yaml:"permissions,omitempty"`
	Gateway     GatewayConfig    `yaml:"gateway"`
	StateDir    string           `yaml:"state_dir,omitempty"`
	Strategies  StrategiesConfig `yaml:"strategies"`
}

// AppConfig describes the application requesting the connection
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
	Logo string `yaml:"logo,omitempty"`
}

// GatewayConfig is the Arweave gateway handed to strategies
type GatewayConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Protocol string `yaml:"protocol,omitempty"`
}

// StrategiesConfig holds the settings of the built-in strategies
type StrategiesConfig struct {
	Keyfile       KeyfileConfig       `yaml:"keyfile"`
	Keychain      KeychainConfig      `yaml:"keychain"`
	Readonly      ReadonlyConfig      `yaml:"readonly"`
	AWSSecrets    AWSSecretsConfig    `yaml:"aws_secrets"`
	AWSParameter  AWSParameterConfig  `yaml:"aws_ssm"`
	GCPSecrets    GCPSecretsConfig    `yaml:"gcp_secrets"`
	AzureKeyVault AzureKeyVaultConfig `yaml:"azure_keyvault"`
	Akeyless      AkeylessConfig      `yaml:"akeyless"`
}

// KeyfileConfig points at an Arweave JWK file
type KeyfileConfig struct {
	Path string `yaml:"path,omitempty"`
}

// KeychainConfig names the OS keychain item holding a JWK
type KeychainConfig struct {
	Service string `yaml:"service,omitempty"`
	Account string `yaml:"account,omitempty"`
}

// ReadonlyConfig is a watch-only address
type ReadonlyConfig struct {
	Address string `yaml:"address,omitempty"`
}

// AWSSecretsConfig locates a JWK in AWS Secrets Manager
type AWSSecretsConfig struct {
	SecretID string `yaml:"secret_id,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // LocalStack and tests
}

// AWSParameterConfig locates a JWK in an SSM SecureString parameter
type AWSParameterConfig struct {
	Name     string `yaml:"name,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// GCPSecretsConfig locates a JWK in Google Cloud Secret Manager
type GCPSecretsConfig struct {
	// Secret is the resource name, projects/<project>/secrets/<name>
	Secret          string `yaml:"secret,omitempty"`
	Version         string `yaml:"version,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// AzureKeyVaultConfig locates a JWK in Azure Key Vault
type AzureKeyVaultConfig struct {
	VaultURL   string `yaml:"vault_url,omitempty"`
	SecretName string `yaml:"secret_name,omitempty"`
	Version    string `yaml:"version,omitempty"`

	// ManagedIdentityClientID selects a user-assigned managed identity.
	// Without it the default Azure credential chain is used.
	ManagedIdentityClientID string `yaml:"managed_identity_client_id,omitempty"`
}

// AkeylessConfig locates a JWK in Akeyless. The access key is read from the
// environment variable named by AccessKeyEnv, never from the file.
type AkeylessConfig struct {
	GatewayURL   string `yaml:"gateway_url,omitempty"`
	AccessID     string `yaml:"access_id,omitempty"`
	AccessKeyEnv string `yaml:"access_key_env,omitempty"`
	Path         string `yaml:"path,omitempty"`
}

// DefaultPermissions are requested when the file lists none
var DefaultPermissions = []string{
	string(strategy.PermissionAccessAddress),
	string(strategy.PermissionAccessPublicKey),
	string(strategy.PermissionSignature),
}

// Default returns the definition used without a configuration file
func Default() *Definition {
	def := &Definition{Version: 1}
	def.applyDefaults()
	return def
}

func (d *Definition) applyDefaults() {
	gw := strategy.DefaultGateway()
	if d.Gateway.Host == "" {
		d.Gateway.Host = gw.Host
	}
	if d.Gateway.Port == 0 {
		d.Gateway.Port = gw.Port
	}
	if d.Gateway.Protocol == "" {
		d.Gateway.Protocol = gw.Protocol
	}
	if len(d.Permissions) == 0 {
		d.Permissions = append([]string(nil), DefaultPermissions...)
	}
	if d.App.Name == "" {
		d.App.Name = "arkit"
	}
	if d.Strategies.Keychain.Service == "" {
		d.Strategies.Keychain.Service = DefaultKeychainService
	}
	if d.Strategies.Keychain.Account == "" {
		d.Strategies.Keychain.Account = DefaultKeychainAccount
	}
	if d.Strategies.AWSSecrets.Region == "" {
		d.Strategies.AWSSecrets.Region = DefaultAWSRegion
	}
	if d.Strategies.AWSParameter.Region == "" {
		d.Strategies.AWSParameter.Region = DefaultAWSRegion
	}
	if d.Strategies.GCPSecrets.Version == "" {
		d.Strategies.GCPSecrets.Version = "latest"
	}
	if d.Strategies.Akeyless.GatewayURL == "" {
		d.Strategies.Akeyless.GatewayURL = DefaultAkeylessGateway
	}
	if d.Strategies.Akeyless.AccessKeyEnv == "" {
		d.Strategies.Akeyless.AccessKeyEnv = DefaultAkeylessAccessEnv
	}
	d.Strategies.Keyfile.Path = ExpandPath(d.Strategies.Keyfile.Path)
	d.Strategies.GCPSecrets.CredentialsFile = ExpandPath(d.Strategies.GCPSecrets.CredentialsFile)
	d.StateDir = ExpandPath(d.StateDir)
}

// Load reads and parses the arkit.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) && !c.Required {
			if c.Logger != nil {
				c.Logger.Debug("No configuration at %s, using defaults", c.Path)
			}
			c.Definition = Default()
			return nil
		}
		if os.IsNotExist(err) {
			return arerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path or omit it to use the defaults",
			}
		}
		return arerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	c.Definition = def
	return nil
}

// Parse validates and decodes an arkit.yaml document
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, arerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, arerrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	def.applyDefaults()

	if _, err := def.PermissionSet(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateSchema(doc map[string]interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		first := result.Errors()[0]
		return arerrors.ConfigError{
			Field:      first.Field(),
			Value:      first.Value(),
			Message:    "schema validation failed:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "See the example arkit.yaml in the README for the supported fields",
		}
	}
	return nil
}

// PermissionSet parses the configured permission names
func (d *Definition) PermissionSet() (strategy.PermissionSet, error) {
	perms := make([]strategy.Permission, 0, len(d.Permissions))
	for _, name := range d.Permissions {
		p, err := strategy.ParsePermission(name)
		if err != nil {
			return strategy.PermissionSet{}, arerrors.ConfigError{
				Field:      "permissions",
				Value:      name,
				Message:    "unknown permission",
				Suggestion: "Known permissions: " + strategy.AllPermissions().String(),
			}
		}
		perms = append(perms, p)
	}
	return strategy.NewPermissionSet(perms...), nil
}

// Options builds the connection options handed to every strategy
func (c *Config) Options() (connect.Options, error) {
	if c.Definition == nil {
		return connect.Options{}, arerrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	perms, err := c.Definition.PermissionSet()
	if err != nil {
		return connect.Options{}, err
	}

	return connect.Options{
		Permissions: perms,
		App: strategy.AppInfo{
			Name: c.Definition.App.Name,
			Logo: c.Definition.App.Logo,
		},
		Gateway: strategy.GatewayConfig{
			Host:     c.Definition.Gateway.Host,
			Port:     c.Definition.Gateway.Port,
			Protocol: c.Definition.Gateway.Protocol,
		},
	}, nil
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

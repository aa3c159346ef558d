package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StrategyError enhances wallet strategy errors with context
func StrategyError(strategyID string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s wallet error during %s", strategyID, operation),
		Details:    detailsOf(err),
		Suggestion: getStrategySuggestion(strategyID, err),
		Err:        err,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// getStrategySuggestion returns helpful suggestions based on strategy and error
func getStrategySuggestion(strategyID string, err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, connect.ErrNotConnected):
		return "Run 'arkit connect' to connect a wallet first"
	case errors.Is(err, strategy.ErrPermissionDenied):
		return "Add the permission to 'permissions' in arkit.yaml and reconnect"
	case errors.Is(err, strategy.ErrNoSession):
		return "The wallet lost its session. Run 'arkit connect' again"
	}

	errStr := err.Error()

	if strings.Contains(errStr, "no secret configured") {
		if field, ok := secretStoreFields[strategyID]; ok {
			return "Set " + field + " in arkit.yaml"
		}
	}
	for _, h := range secretStoreHints[strategyID] {
		if h.matches(errStr) {
			return h.suggestion
		}
	}

	switch strategyID {
	case "keyfile":
		if errors.Is(err, fs.ErrNotExist) || strings.Contains(errStr, "no such file") {
			return "Set 'strategies.keyfile.path' in arkit.yaml to your Arweave JWK file"
		}
		if strings.Contains(errStr, "permission denied") {
			return "Make the keyfile readable by your user, e.g. 'chmod 600 <file>'"
		}
		if strings.Contains(errStr, "jwk") {
			return "The keyfile must be an Arweave RSA JWK exported from a wallet"
		}

	case "keychain":
		if strings.Contains(errStr, "not found") {
			return "Import a wallet with 'arkit keychain import <jwk-file>'"
		}
		if strings.Contains(errStr, "locked") || strings.Contains(errStr, "access denied") {
			return "Unlock your keychain and try again"
		}
		if strings.Contains(errStr, "headless") || strings.Contains(errStr, "not supported") {
			return "The OS keychain is not reachable here. Use the keyfile strategy instead"
		}

	case "readonly":
		if errors.Is(err, strategy.ErrUnsupported) {
			return "Watch-only wallets cannot sign or expose a public key. Connect with keyfile or keychain"
		}
		if strings.Contains(errStr, "address") {
			return "Set 'strategies.readonly.address' to a 43 character Arweave address"
		}

	}

	if errors.Is(err, strategy.ErrUnsupported) {
		return "This wallet does not support the operation. Try another strategy"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The wallet did not answer in time. Try again"
	}

	return ""
}

var secretStoreFields = map[string]string{
	"aws-secrets":    "'strategies.aws_secrets.secret_id'",
	"aws-ssm":        "'strategies.aws_ssm.name'",
	"gcp-secrets":    "'strategies.gcp_secrets.secret' (projects/<project>/secrets/<name>)",
	"azure-keyvault": "'strategies.azure_keyvault.vault_url' and 'secret_name'",
	"akeyless":       "'strategies.akeyless.access_id' and 'path'",
}

// hint maps any of a set of error substrings to a suggestion.
type hint struct {
	patterns   []string
	suggestion string
}

func (h hint) matches(errStr string) bool {
	for _, p := range h.patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

var awsCredentialHint = hint{
	patterns:   []string{"credentials", "authorization", "ExpiredToken"},
	suggestion: "Configure AWS credentials with 'aws configure' or pick a profile in arkit.yaml",
}

// Checked in order; the first match wins.
var secretStoreHints = map[string][]hint{
	"aws-secrets": {
		awsCredentialHint,
		{[]string{"AccessDenied"}, "The IAM principal needs secretsmanager:DescribeSecret and secretsmanager:GetSecretValue"},
		{[]string{"ResourceNotFoundException", "secret not found"}, "Check the secret id and region: 'aws secretsmanager list-secrets'"},
		{[]string{"ThrottlingException"}, "AWS is throttling requests. Wait and retry"},
	},
	"aws-ssm": {
		awsCredentialHint,
		{[]string{"AccessDenied"}, "The IAM principal needs ssm:GetParameter and kms:Decrypt on the parameter key"},
		{[]string{"ParameterNotFound", "secret not found"}, "Check the parameter name and region: 'aws ssm describe-parameters'"},
		{[]string{"ThrottlingException"}, "AWS is throttling requests. Wait and retry"},
	},
	"gcp-secrets": {
		{[]string{"could not find default credentials", "Unauthenticated"}, "Run 'gcloud auth application-default login' or set 'credentials_file'"},
		{[]string{"PermissionDenied"}, "Grant roles/secretmanager.secretAccessor on the secret"},
		{[]string{"NotFound", "secret not found"}, "Check the secret exists: 'gcloud secrets list'"},
	},
	"azure-keyvault": {
		{[]string{"DefaultAzureCredential", "ManagedIdentityCredential"}, "Run 'az login' or configure a managed identity"},
		{[]string{"Forbidden", "403"}, "Grant the identity 'get' permission on secrets in the vault"},
		{[]string{"SecretNotFound", "secret not found"}, "Check the secret name: 'az keyvault secret list --vault-name <vault>'"},
	},
	"akeyless": {
		{[]string{"access key not set", "authentication failed"}, "Export the API access key in the variable named by 'access_key_env' and check 'access_id'"},
		{[]string{"itemNotFound", "secret not found"}, "Check the item path: 'akeyless list-items'"},
	},
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, connect.ErrConnectFailed) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var configErr ConfigError
	if errors.As(err, &configErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") || strings.Contains(errStr, "invalid character") {
		return UserError{
			Message:    "Invalid JSON",
			Suggestion: "Check that the file is a JSON web key exported from an Arweave wallet",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}

// Package gcp turns prep's Google Cloud settings into client options.
package gcp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

// Settings holds Google Cloud project and credential sources. Inline JSON
// takes precedence over base64; both take precedence over a key file and
// application default credentials.
type Settings struct {
	ProjectID       string `env:"PREP_GCP_PROJECT"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	CredentialsJSON string `env:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`
	CredentialsB64  string `env:"GOOGLE_APPLICATION_CREDENTIALS_JSON_B64"`
	Emulator        string `env:"FIRESTORE_EMULATOR_HOST"`
}

// CredentialSource names which credential input is in effect.
func (s Settings) CredentialSource() string {
	switch {
	case strings.TrimSpace(s.CredentialsJSON) != "":
		return "json"
	case strings.TrimSpace(s.CredentialsB64) != "":
		return "base64"
	case strings.TrimSpace(s.CredentialsFile) != "":
		return "file"
	default:
		return "default"
	}
}

// ClientOptions returns the options shared by Storage and Firestore clients.
func (s Settings) ClientOptions() ([]option.ClientOption, error) {
	var opts []option.ClientOption
	switch s.CredentialSource() {
	case "json":
		opts = append(opts, option.WithCredentialsJSON([]byte(s.CredentialsJSON)))
	case "base64":
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s.CredentialsB64))
		if err != nil {
			return nil, fmt.Errorf("decode credentials base64: %w", err)
		}
		if len(raw) == 0 {
			return nil, errors.New("decoded credentials are empty")
		}
		opts = append(opts, option.WithCredentialsJSON(raw))
	case "file":
		opts = append(opts, option.WithCredentialsFile(strings.TrimSpace(s.CredentialsFile)))
	}
	return opts, nil
}

// GRPCClientOptions extends ClientOptions with gRPC tracing for clients
// that speak gRPC, such as Firestore.
func (s Settings) GRPCClientOptions() ([]option.ClientOption, error) {
	opts, err := s.ClientOptions()
	if err != nil {
		return nil, err
	}
	return append(opts, option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler()))), nil
}

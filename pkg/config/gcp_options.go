package config

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions returns the credential options shared by the Google API
// clients. Inline JSON wins over a credentials file; with neither set the
// clients fall back to application default credentials.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(g.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(g.CredentialsJSON)))
	case strings.TrimSpace(g.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(g.ApplicationCredentials))
	}
	return opts
}

// ClientOptions adds the endpoint override, if any, to the GCP credentials.
func (v VisionConfig) ClientOptions(gcp GCPConfig) []option.ClientOption {
	opts := gcp.ClientOptions()
	if endpoint := strings.TrimSpace(v.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

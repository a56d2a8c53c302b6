package creds

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/platformeng/dataconnect/pkg/errdefs"
)

// Default bastion key file, provisioned by the platform admin under ~/.ssh.
const defaultKeyName = "platform_bastion_key"

var bastionUsers = map[string]string{
	"aws":   "platform-user",
	"gcp":   "platform-user",
	"azure": "platform-user",
}

// Credentials holds the material needed to authenticate against a cloud's
// bastion host for the duration of one tunnel establishment. Secrets are not
// cached beyond the call that resolved them.
type Credentials struct {
	Username string
	KeyPath  string
	Signer   ssh.Signer
}

// Resolver locates and validates bastion credentials per cloud.
type Resolver struct {
	// KeyDir overrides the directory searched for the bastion key.
	// Empty means ~/.ssh.
	KeyDir string
}

// Resolve returns validated credentials for the given cloud. A missing or
// unparsable key yields *errdefs.CredentialsUnavailableError carrying the
// expected path and a remediation hint.
func (r *Resolver) Resolve(cloud string) (Credentials, error) {
	user, ok := bastionUsers[cloud]
	if !ok {
		return Credentials{}, &errdefs.CredentialsUnavailableError{
			Cloud: cloud,
			Hint:  "no bastion user configured for this cloud",
		}
	}

	dir := r.KeyDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Credentials{}, errors.Wrap(err, "resolve home directory")
		}
		dir = filepath.Join(home, ".ssh")
	}
	keyPath := filepath.Join(dir, defaultKeyName)

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return Credentials{}, &errdefs.CredentialsUnavailableError{
			Cloud:   cloud,
			KeyPath: keyPath,
			Hint:    "request access to shared infrastructure: contact the platform admin to provision bastion access",
		}
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return Credentials{}, &errdefs.CredentialsUnavailableError{
			Cloud:   cloud,
			KeyPath: keyPath,
			Hint:    "key file exists but cannot be parsed: request a fresh bastion key",
		}
	}

	return Credentials{Username: user, KeyPath: keyPath, Signer: signer}, nil
}

// Package proxy manages the egress proxy pool: credential parsing,
// round-robin selection and IP-leak verdicts.
package proxy

import (
	"fmt"
	"strings"
)

// ConfigError reports a proxy list entry that cannot be parsed. It is
// fatal: a malformed pool is a configuration problem, not something
// rotation can recover from.
type ConfigError struct {
	Raw    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid proxy %q: %s", e.Raw, e.Reason)
}

// Credential identifies one proxy endpoint, with optional
// authentication. Immutable once parsed.
type Credential struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Authenticated reports whether the credential carries a username and
// password.
func (c Credential) Authenticated() bool {
	return c.Username != ""
}

// Addr returns the host:port form used for launch flags and log
// lines. Credentials are never included.
func (c Credential) Addr() string {
	return c.Host + ":" + c.Port
}

// String implements fmt.Stringer without exposing the password.
func (c Credential) String() string {
	return c.Addr()
}

// Parse reads a raw pool entry. Accepted forms are "host:port" and
// "host:port:username:password"; any other field count is a
// ConfigError.
func Parse(raw string) (Credential, error) {
	fields := strings.Split(raw, ":")
	switch len(fields) {
	case 2:
		return Credential{Host: fields[0], Port: fields[1]}, nil
	case 4:
		return Credential{
			Host:     fields[0],
			Port:     fields[1],
			Username: fields[2],
			Password: fields[3],
		}, nil
	default:
		return Credential{}, &ConfigError{
			Raw:    raw,
			Reason: fmt.Sprintf("want host:port or host:port:username:password, got %d fields", len(fields)),
		}
	}
}

// ParseList parses every entry of a raw proxy list, failing on the
// first invalid one.
func ParseList(raws []string) ([]Credential, error) {
	creds := make([]Credential, 0, len(raws))
	for _, raw := range raws {
		cred, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

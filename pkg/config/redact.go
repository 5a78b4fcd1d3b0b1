package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	mask "github.com/showa-93/go-mask"
)

// MaskTypeURL is the mask tag for endpoints: `mask:"url"` keeps the scheme
// and host of the value.
const MaskTypeURL = "url"

var masker = newMasker()

func newMasker() *mask.Masker {
	m := mask.NewMasker()
	m.RegisterMaskStringFunc(MaskTypeURL, func(_ string, value string) (string, error) {
		return RedactURL(value), nil
	})
	return m
}

// Mask returns a copy of value with its mask-tagged fields masked. Structs
// holding time.Time or other values with unexported state should not be
// passed in.
func Mask[T any](value T) (T, error) {
	var zero T

	masked, err := masker.Mask(value)
	if err != nil {
		return zero, fmt.Errorf("failed to mask %T: %w", value, err)
	}
	out, ok := masked.(T)
	if !ok {
		return zero, fmt.Errorf("failed to mask %T: got %T", value, masked)
	}
	return out, nil
}

// RedactURL keeps the scheme and host of an endpoint. Credentials, paths and
// query strings commonly carry provider API keys and are replaced.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}

	redacted := u.Scheme + "://" + u.Host
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		redacted += "/***"
	}
	return redacted
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RedactError rewrites every spelling of rpc found in err's message to its
// redacted form. HTTP transports report the request URL with only the
// password hidden, so the URL carried by a *url.Error is replaced too.
// The result still matches err with errors.Is and errors.As.
func RedactError(rpc string, err error) error {
	if err == nil || rpc == "" {
		return err
	}

	redacted := RedactURL(rpc)
	secrets := []string{rpc}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		secrets = append(secrets, urlErr.URL)
	}
	if u, perr := url.Parse(rpc); perr == nil {
		secrets = append(secrets, u.String(), u.Redacted(), url.PathEscape(rpc), url.QueryEscape(rpc))
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" || secret == redacted {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

// Redacted returns a copy of the configuration that is safe to log or serve.
func (c *Config) Redacted() *Config {
	chains := make(map[string]types.Chain, len(c.chains))
	for name, chain := range c.chains {
		chains[name] = redactChain(chain)
	}
	return CreateConfig(chains, c.contracts)
}

func redactChain(chain types.Chain) types.Chain {
	masked, err := Mask(chain)
	if err != nil {
		chain.RPC = RedactURL(chain.RPC)
		return chain
	}
	return masked
}

package models

import (
	"time"

	dErrors "onward/pkg/domain-errors"
)

// SecretFormat selects how a kind's secret material is rendered.
type SecretFormat string

const (
	// FormatSetupCode renders a human-readable ONW-XXX-XXXX code.
	FormatSetupCode SecretFormat = "setup_code"
	// FormatOpaque renders a prefixed base64url token.
	FormatOpaque SecretFormat = "opaque"
)

// Policy captures everything kind-specific about a credential family so the
// engine itself contains no per-kind branching.
type Policy struct {
	Kind  Kind
	Table string

	// DefaultTTL applies when Issue is called with ttl == 0. Zero means the
	// kind does not expire by default.
	DefaultTTL time.Duration

	// SingleUse credentials are consumed through Redeem. Revocable-only
	// kinds (refresh tokens, API keys) only ever reach used=true through
	// Revoke.
	SingleUse bool

	Format       SecretFormat
	SecretPrefix string
}

// Policies is the kind table. TTL defaults follow the product defaults; the
// setup-code window is organization-configurable at the service layer.
var Policies = map[Kind]Policy{
	KindSetupCode: {
		Kind:       KindSetupCode,
		Table:      "setup_codes",
		DefaultTTL: 72 * time.Hour,
		SingleUse:  true,
		Format:     FormatSetupCode,
	},
	KindMagicLink: {
		Kind:         KindMagicLink,
		Table:        "magic_links",
		DefaultTTL:   15 * time.Minute,
		SingleUse:    true,
		Format:       FormatOpaque,
		SecretPrefix: "mlk_",
	},
	KindRefreshToken: {
		Kind:         KindRefreshToken,
		Table:        "refresh_tokens",
		DefaultTTL:   30 * 24 * time.Hour,
		SingleUse:    false,
		Format:       FormatOpaque,
		SecretPrefix: "rft_",
	},
	KindAPIKey: {
		Kind:         KindAPIKey,
		Table:        "api_keys",
		DefaultTTL:   0,
		SingleUse:    false,
		Format:       FormatOpaque,
		SecretPrefix: "oak_",
	},
}

// PolicyFor resolves the policy for a kind.
func PolicyFor(kind Kind) (Policy, error) {
	policy, ok := Policies[kind]
	if !ok {
		return Policy{}, dErrors.Newf(dErrors.CodeValidation, "unknown credential kind %q", kind)
	}
	return policy, nil
}

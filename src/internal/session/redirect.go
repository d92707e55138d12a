package session

import (
	"fmt"
	"net/url"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/models"
)

// BuildRedirectURL constructs the POS entry URL for a session. Each POS
// system has its own base URL per environment and its own query-parameter
// contract. The session token is never part of this URL; only the signed
// handoff token travels with the redirect.
func BuildRedirectURL(cfg *config.HandoffConfig, pos PosSystem, env PosEnvironment, sessionID, handoffToken string, branding Branding) (string, error) {
	system, ok := cfg.PosSystems[string(pos)]
	if !ok {
		return "", models.ErrUnsupportedPOSSystem
	}

	base := system.ProductionUrl
	if env == EnvSandbox {
		base = system.SandboxUrl
	}
	if base == "" {
		return "", models.ErrUnsupportedPOSSystem
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url for %s: %w", pos, err)
	}

	q := u.Query()
	switch pos {
	case PosBlend:
		q.Set("token", handoffToken)
		q.Set("sessionId", sessionID)
		if branding.Theme != "" {
			q.Set("theme", branding.Theme)
		}
	case PosBigPOS:
		q.Set("handoff_token", handoffToken)
		q.Set("session", sessionID)
		if branding.PartnerName != "" {
			q.Set("partner", branding.PartnerName)
		}
	case PosEncompassConsumerConnect:
		q.Set("ssoToken", handoffToken)
		q.Set("referenceId", sessionID)
		if branding.Theme != "" {
			q.Set("brand", branding.Theme)
		}
	default:
		return "", models.ErrUnsupportedPOSSystem
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// BuildCallbackURL points the POS system back at this service, keyed by
// session id.
func BuildCallbackURL(cfg *config.HandoffConfig, sessionID string) string {
	return fmt.Sprintf("%s/%s/complete", cfg.CallbackBaseUrl, sessionID)
}

package referral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActive(t *testing.T) {
	assert.True(t, (&ReferralSource{Status: StatusActive}).IsActive())
	assert.False(t, (&ReferralSource{Status: StatusInactive}).IsActive())
	assert.False(t, (&ReferralSource{}).IsActive())
}

func TestIsCoBrandingEnabled(t *testing.T) {
	source := &ReferralSource{
		CoBrandingPurposes: []string{"new_application", "rate_lock"},
	}

	assert.True(t, source.IsCoBrandingEnabled("new_application"))
	assert.True(t, source.IsCoBrandingEnabled("rate_lock"))
	assert.False(t, source.IsCoBrandingEnabled("document_upload"))
	assert.False(t, (&ReferralSource{}).IsCoBrandingEnabled("new_application"))
}

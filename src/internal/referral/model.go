package referral

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ReferralSource is the slice of the referral-source record this subsystem
// reads: co-branding eligibility, the branding config itself, and the
// application counter bumped on completion.
type ReferralSource struct {
	ReferralID         string         `json:"referralSourceId" bson:"referral_source_id"`
	Name               string         `json:"name" bson:"name"`
	Status             string         `json:"status" bson:"status"`
	CoBrandingPurposes []string       `json:"coBrandingPurposes" bson:"co_branding_purposes"`
	Branding           BrandingConfig `json:"branding" bson:"branding"`
	ApplicationCount   int64          `json:"applicationCount" bson:"application_count"`
}

type BrandingConfig struct {
	Theme          string `json:"theme,omitempty" bson:"theme,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty" bson:"primary_color,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty" bson:"secondary_color,omitempty"`
	LogoUrl        string `json:"logoUrl,omitempty" bson:"logo_url,omitempty"`
}

// IsActive reports whether the source may brand new sessions.
func (r *ReferralSource) IsActive() bool {
	return r.Status == StatusActive
}

// IsCoBrandingEnabled reports whether co-branding applies to the given
// handoff purpose.
func (r *ReferralSource) IsCoBrandingEnabled(purpose string) bool {
	for _, p := range r.CoBrandingPurposes {
		if p == purpose {
			return true
		}
	}
	return false
}

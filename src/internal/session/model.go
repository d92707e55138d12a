package session

import (
	"time"
)

// Status is the session state machine position. Transitions only ever
// advance along the table in transitions below.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// PosSystem identifies the external point-of-sale application.
type PosSystem string

const (
	PosBlend                    PosSystem = "blend"
	PosBigPOS                   PosSystem = "big_pos"
	PosEncompassConsumerConnect PosSystem = "encompass_consumer_connect"
)

type PosEnvironment string

const (
	EnvSandbox    PosEnvironment = "sandbox"
	EnvProduction PosEnvironment = "production"
)

type Purpose string

const (
	PurposeNewApplication      Purpose = "new_application"
	PurposeContinueApplication Purpose = "continue_application"
	PurposeDocumentUpload      Purpose = "document_upload"
	PurposeRateLock            Purpose = "rate_lock"
	PurposeDisclosureReview    Purpose = "disclosure_review"
)

// Event type constants for TrackEvent. Arbitrary types are accepted too;
// only these bump an analytics counter.
const (
	EventPageView       = "page_view"
	EventDocumentUpload = "document_upload"
	EventStepComplete   = "step_complete"
)

// Audit action constants
const (
	ActionCreated   = "created"
	ActionActivated = "activated"
	ActionCompleted = "completed"
	ActionCancelled = "cancelled"
	ActionFailed    = "failed"
	ActionExpired   = "expired"
	ActionExtended  = "extended"
)

// transitions is the single source of truth for state machine legality.
// Terminal states have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCompleted, StatusExpired, StatusCancelled, StatusFailed},
	StatusActive:  {StatusCompleted, StatusExpired, StatusCancelled, StatusFailed},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources returns every status from which to is reachable. The
// repository pins its compare-and-swap filter to this set.
func TransitionSources(to Status) []Status {
	var sources []Status
	for from, targets := range transitions {
		for _, next := range targets {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func IsValidPosSystem(p PosSystem) bool {
	switch p {
	case PosBlend, PosBigPOS, PosEncompassConsumerConnect:
		return true
	}
	return false
}

func IsValidPurpose(p Purpose) bool {
	switch p {
	case PurposeNewApplication, PurposeContinueApplication, PurposeDocumentUpload,
		PurposeRateLock, PurposeDisclosureReview:
		return true
	}
	return false
}

// Session is the persisted handoff transaction between this system and an
// external POS application. sessionToken is the proof-of-possession secret:
// it is returned exactly once at creation and never leaves through a view.
type Session struct {
	SessionID    string  `json:"sessionId" bson:"session_id"`
	SessionToken string  `json:"-" bson:"session_token"`
	UserID       string  `json:"userId" bson:"user_id"`
	LoanID       *string `json:"loanId,omitempty" bson:"loan_id,omitempty"`
	LoanOfficer  *string `json:"loanOfficerId,omitempty" bson:"loan_officer_id,omitempty"`
	ReferralID   *string `json:"referralSourceId,omitempty" bson:"referral_source_id,omitempty"`

	PosSystem      PosSystem      `json:"posSystem" bson:"pos_system"`
	PosEnvironment PosEnvironment `json:"posEnvironment" bson:"pos_environment"`
	Purpose        Purpose        `json:"purpose" bson:"purpose"`
	Source         string         `json:"source" bson:"source"`

	// EncryptedPayload/EncryptionIV are immutable once written. Only the
	// issuing subsystem ever decrypts them.
	EncryptedPayload []byte `json:"-" bson:"encrypted_payload"`
	EncryptionIV     []byte `json:"-" bson:"encryption_iv"`

	Status Status `json:"status" bson:"status"`

	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	ExpiresAt   time.Time  `json:"expiresAt" bson:"expires_at"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty" bson:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completed_at,omitempty"`

	RedirectUrl string `json:"redirectUrl" bson:"redirect_url"`
	CallbackUrl string `json:"callbackUrl" bson:"callback_url"`
	ReturnUrl   string `json:"returnUrl" bson:"return_url"`

	Analytics      Analytics       `json:"analytics" bson:"analytics"`
	Branding       Branding        `json:"branding" bson:"branding"`
	CompletionData *CompletionData `json:"completionData,omitempty" bson:"completion_data,omitempty"`

	Errors   []ErrorEntry `json:"errors" bson:"errors"`
	AuditLog []AuditEntry `json:"auditLog" bson:"audit_log"`
}

// HandoffPayload is the plaintext behind EncryptedPayload.
type HandoffPayload struct {
	UserID           string    `json:"userId"`
	LoanID           string    `json:"loanId,omitempty"`
	LoanOfficerID    string    `json:"loanOfficerId,omitempty"`
	ReferralSourceID string    `json:"referralSourceId,omitempty"`
	Purpose          Purpose   `json:"purpose"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

type Analytics struct {
	IPAddress               string `json:"ipAddress,omitempty" bson:"ip_address,omitempty"`
	UserAgent               string `json:"userAgent,omitempty" bson:"user_agent,omitempty"`
	DeviceType              string `json:"deviceType,omitempty" bson:"device_type,omitempty"`
	Platform                string `json:"platform,omitempty" bson:"platform,omitempty"`
	TimeToActivationSeconds *int64 `json:"timeToActivationSeconds,omitempty" bson:"time_to_activation_seconds,omitempty"`
	TimeToCompletionSeconds *int64 `json:"timeToCompletionSeconds,omitempty" bson:"time_to_completion_seconds,omitempty"`
	PageViews               int    `json:"pageViews" bson:"page_views"`
	DocumentsUploaded       int    `json:"documentsUploaded" bson:"documents_uploaded"`
	StepsCompleted          int    `json:"stepsCompleted" bson:"steps_completed"`
	TotalSteps              int    `json:"totalSteps" bson:"total_steps"`
}

// Branding is informational only: copied from the referral source or from
// caller-supplied defaults at creation, never consulted for authorization.
type Branding struct {
	Theme          string `json:"theme,omitempty" bson:"theme,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty" bson:"primary_color,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty" bson:"secondary_color,omitempty"`
	LogoUrl        string `json:"logoUrl,omitempty" bson:"logo_url,omitempty"`
	PartnerName    string `json:"partnerName,omitempty" bson:"partner_name,omitempty"`
}

type CompletionData struct {
	ExternalApplicationID string   `json:"externalApplicationId,omitempty" bson:"external_application_id,omitempty"`
	LoanNumber            string   `json:"loanNumber,omitempty" bson:"loan_number,omitempty"`
	ExternalLoanID        string   `json:"externalLoanId,omitempty" bson:"external_loan_id,omitempty"`
	Status                string   `json:"status,omitempty" bson:"status,omitempty"`
	CompletedSteps        []string `json:"completedSteps,omitempty" bson:"completed_steps,omitempty"`
	NextSteps             []string `json:"nextSteps,omitempty" bson:"next_steps,omitempty"`
	DocumentsSubmitted    []string `json:"documentsSubmitted,omitempty" bson:"documents_submitted,omitempty"`
}

// Merge overlays caller-supplied fields onto the stored record. Shallow:
// a set field wins wholesale, an unset one keeps the stored value.
func (c *CompletionData) Merge(incoming CompletionData) {
	if incoming.ExternalApplicationID != "" {
		c.ExternalApplicationID = incoming.ExternalApplicationID
	}
	if incoming.LoanNumber != "" {
		c.LoanNumber = incoming.LoanNumber
	}
	if incoming.ExternalLoanID != "" {
		c.ExternalLoanID = incoming.ExternalLoanID
	}
	if incoming.Status != "" {
		c.Status = incoming.Status
	}
	if incoming.CompletedSteps != nil {
		c.CompletedSteps = incoming.CompletedSteps
	}
	if incoming.NextSteps != nil {
		c.NextSteps = incoming.NextSteps
	}
	if incoming.DocumentsSubmitted != nil {
		c.DocumentsSubmitted = incoming.DocumentsSubmitted
	}
}

type ErrorEntry struct {
	Timestamp time.Time         `json:"timestamp" bson:"timestamp"`
	Code      string            `json:"code" bson:"code"`
	Message   string            `json:"message" bson:"message"`
	Details   map[string]string `json:"details,omitempty" bson:"details,omitempty"`
}

// AuditEntry records one state transition or tracked event. The audit log
// is append-only; no transition ever removes history.
type AuditEntry struct {
	Timestamp time.Time         `json:"timestamp" bson:"timestamp"`
	Action    string            `json:"action" bson:"action"`
	Details   map[string]string `json:"details,omitempty" bson:"details,omitempty"`
	IPAddress string            `json:"ipAddress,omitempty" bson:"ip_address,omitempty"`
	UserAgent string            `json:"userAgent,omitempty" bson:"user_agent,omitempty"`
}

// View is the sanitized read model: no session token, no ciphertext, no IV.
type View struct {
	SessionID      string          `json:"sessionId"`
	UserID         string          `json:"userId"`
	LoanID         *string         `json:"loanId,omitempty"`
	PosSystem      PosSystem       `json:"posSystem"`
	PosEnvironment PosEnvironment  `json:"posEnvironment"`
	Purpose        Purpose         `json:"purpose"`
	Source         string          `json:"source"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	ActivatedAt    *time.Time      `json:"activatedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	RedirectUrl    string          `json:"redirectUrl"`
	ReturnUrl      string          `json:"returnUrl"`
	Branding       Branding        `json:"branding"`
	CompletionData *CompletionData `json:"completionData,omitempty"`
}

// ToView strips everything a caller must never see after creation.
func (s *Session) ToView() *View {
	return &View{
		SessionID:      s.SessionID,
		UserID:         s.UserID,
		LoanID:         s.LoanID,
		PosSystem:      s.PosSystem,
		PosEnvironment: s.PosEnvironment,
		Purpose:        s.Purpose,
		Source:         s.Source,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		ActivatedAt:    s.ActivatedAt,
		CompletedAt:    s.CompletedAt,
		RedirectUrl:    s.RedirectUrl,
		ReturnUrl:      s.ReturnUrl,
		Branding:       s.Branding,
		CompletionData: s.CompletionData,
	}
}

// Descriptor is returned by Create only. It is the single place the
// session token is ever exposed.
type Descriptor struct {
	SessionID    string    `json:"sessionId"`
	SessionToken string    `json:"sessionToken"`
	RedirectUrl  string    `json:"redirectUrl"`
	CallbackUrl  string    `json:"callbackUrl"`
	ReturnUrl    string    `json:"returnUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Branding     Branding  `json:"branding"`
}

// CreateRequest is the issuance input.
type CreateRequest struct {
	UserID            string         `json:"userId"`
	LoanID            string         `json:"loanId,omitempty"`
	LoanOfficerID     string         `json:"loanOfficerId,omitempty"`
	ReferralSourceID  string         `json:"referralSourceId,omitempty"`
	PosSystem         PosSystem      `json:"posSystem"`
	PosEnvironment    PosEnvironment `json:"posEnvironment,omitempty"`
	Purpose           Purpose        `json:"purpose"`
	Source            string         `json:"source"`
	// ExpirationMinutes nil means the configured default. An explicit zero
	// is honored and yields a session that is already expired.
	ExpirationMinutes *int           `json:"expirationMinutes,omitempty"`
	Branding          *Branding      `json:"branding,omitempty"`
	ReturnUrl         string         `json:"returnUrl,omitempty"`
	TotalSteps        int            `json:"totalSteps,omitempty"`
}

// ClientInfo carries the request-level analytics captured on activation.
type ClientInfo struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

type ActivateRequest struct {
	SessionToken string `json:"sessionToken"`
}

type TrackEventRequest struct {
	EventType string            `json:"eventType"`
	Details   map[string]string `json:"details,omitempty"`
}

type CompleteRequest struct {
	CallbackToken  string         `json:"callbackToken,omitempty"`
	CompletionData CompletionData `json:"completionData"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ExtendRequest struct {
	Minutes int `json:"minutes"`
}

type FailRequest struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyticsView is the engagement read model for a single session.
type AnalyticsView struct {
	SessionID string    `json:"sessionId"`
	Status    Status    `json:"status"`
	Analytics Analytics `json:"analytics"`
	CreatedAt time.Time `json:"createdAt"`
}

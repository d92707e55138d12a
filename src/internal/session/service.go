package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/crypto"
	"pos-handoff-svc/src/internal/loan"
	"pos-handoff-svc/src/internal/models"
	"pos-handoff-svc/src/internal/referral"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier publishes session lifecycle events. Failures are logged and
// never fail the operation that triggered them.
type Notifier interface {
	PublishSessionEvent(event models.SessionEventMessage) error
}

// ViewCache is the slice of the cache service this package needs.
type ViewCache interface {
	GetSessionView(ctx context.Context, sessionID string) (*View, error)
	SaveSessionView(ctx context.Context, view *View) error
	InvalidateSession(ctx context.Context, sessionID string) error
}

type Service interface {
	Create(ctx context.Context, req *CreateRequest) (*Descriptor, error)
	Activate(ctx context.Context, sessionID, sessionToken string, client ClientInfo) (*View, error)
	TrackEvent(ctx context.Context, sessionID, eventType string, details map[string]string, client ClientInfo) error
	Complete(ctx context.Context, sessionID, callbackToken string, data CompletionData) (*View, error)
	Cancel(ctx context.Context, sessionID, reason string, client ClientInfo) error
	Fail(ctx context.Context, sessionID, code, message string) error
	Extend(ctx context.Context, sessionID string, minutes int) (*View, error)
	GetSession(ctx context.Context, sessionID string) (*View, error)
	GetAnalytics(ctx context.Context, sessionID string) (*AnalyticsView, error)
	SweepExpired(ctx context.Context) (int, error)
}

type sessionService struct {
	repo      Repository
	cipher    *crypto.Cipher
	signer    *crypto.TokenSigner
	loans     loan.Repository
	referrals referral.Repository
	cache     ViewCache
	notifier  Notifier
	cfg       *config.Configuration
}

func NewSessionService(
	repo Repository,
	cipher *crypto.Cipher,
	signer *crypto.TokenSigner,
	loans loan.Repository,
	referrals referral.Repository,
	viewCache ViewCache,
	notifier Notifier,
	cfg *config.Configuration,
) Service {
	return &sessionService{
		repo:      repo,
		cipher:    cipher,
		signer:    signer,
		loans:     loans,
		referrals: referrals,
		cache:     viewCache,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Create issues a new handoff session: mints the id/token pair, encrypts
// the payload, signs the handoff token bound to the session expiry, builds
// the POS redirect and callback URLs, and persists the pending session.
// The returned descriptor is the only place the session token ever appears.
func (s *sessionService) Create(ctx context.Context, req *CreateRequest) (*Descriptor, error) {
	if req.UserID == "" {
		return nil, models.ErrValidation
	}
	if !IsValidPosSystem(req.PosSystem) {
		return nil, models.ErrUnsupportedPOSSystem
	}
	if !IsValidPurpose(req.Purpose) {
		return nil, models.ErrValidation
	}
	if req.ExpirationMinutes != nil && *req.ExpirationMinutes < 0 {
		return nil, models.ErrValidation
	}
	if req.LoanID != "" {
		if _, err := s.loans.FindByID(ctx, req.LoanID); err != nil {
			return nil, err
		}
	}

	env := req.PosEnvironment
	if env == "" {
		env = EnvProduction
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	minutes := s.cfg.Security.DefaultSessionTTLMin
	if req.ExpirationMinutes != nil {
		minutes = *req.ExpirationMinutes
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(minutes) * time.Minute)

	sessionID := uuid.NewString()
	sessionToken, err := crypto.NewSessionToken()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate session token")
		return nil, err
	}

	branding := s.resolveBranding(ctx, req)

	payload := HandoffPayload{
		UserID:           req.UserID,
		LoanID:           req.LoanID,
		LoanOfficerID:    req.LoanOfficerID,
		ReferralSourceID: req.ReferralSourceID,
		Purpose:          req.Purpose,
		Source:           source,
		Timestamp:        now,
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	ciphertext, iv, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		logrus.WithError(err).Error("Failed to encrypt session payload")
		return nil, err
	}

	handoffToken, err := s.signer.SignHandoffToken(sessionID, req.UserID, req.LoanID, string(req.Purpose), expiresAt)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign handoff token")
		return nil, err
	}

	redirectUrl, err := BuildRedirectURL(&s.cfg.Handoff, req.PosSystem, env, sessionID, handoffToken, branding)
	if err != nil {
		return nil, err
	}
	callbackUrl := BuildCallbackURL(&s.cfg.Handoff, sessionID)

	returnUrl := req.ReturnUrl
	if returnUrl == "" {
		returnUrl = s.cfg.Handoff.ReturnUrl
	}

	session := &Session{
		SessionID:        sessionID,
		SessionToken:     sessionToken,
		UserID:           req.UserID,
		LoanID:           optional(req.LoanID),
		LoanOfficer:      optional(req.LoanOfficerID),
		ReferralID:       optional(req.ReferralSourceID),
		PosSystem:        req.PosSystem,
		PosEnvironment:   env,
		Purpose:          req.Purpose,
		Source:           source,
		EncryptedPayload: ciphertext,
		EncryptionIV:     iv,
		Status:           StatusPending,
		CreatedAt:        now,
		ExpiresAt:        expiresAt,
		RedirectUrl:      redirectUrl,
		CallbackUrl:      callbackUrl,
		ReturnUrl:        returnUrl,
		Analytics:        Analytics{TotalSteps: req.TotalSteps},
		Branding:         branding,
		Errors:           []ErrorEntry{},
		AuditLog: []AuditEntry{{
			Timestamp: now,
			Action:    ActionCreated,
			Details: map[string]string{
				"pos_system": string(req.PosSystem),
				"purpose":    string(req.Purpose),
				"source":     source,
			},
		}},
	}

	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, err
	}

	s.publish(models.SessionEventMessage{
		SessionID:   sessionID,
		UserID:      req.UserID,
		LoanID:      req.LoanID,
		PosSystem:   string(req.PosSystem),
		ServiceName: models.ServiceSessionIssuer,
		Event:       models.EventSessionCreated,
	})

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    req.UserID,
		"pos_system": req.PosSystem,
		"purpose":    req.Purpose,
		"expires_at": expiresAt,
	}).Info("Handoff session created")

	return &Descriptor{
		SessionID:    sessionID,
		SessionToken: sessionToken,
		RedirectUrl:  redirectUrl,
		CallbackUrl:  callbackUrl,
		ReturnUrl:    returnUrl,
		ExpiresAt:    expiresAt,
		Branding:     branding,
	}, nil
}

// resolveBranding picks referral-source branding when the source is active
// and co-branding covers this purpose, then caller-supplied branding, then
// the system default.
func (s *sessionService) resolveBranding(ctx context.Context, req *CreateRequest) Branding {
	if req.ReferralSourceID != "" {
		source, err := s.referrals.FindByID(ctx, req.ReferralSourceID)
		switch {
		case err != nil:
			logrus.WithError(err).WithField("referral_source_id", req.ReferralSourceID).
				Warn("Referral source lookup failed, falling back to caller branding")
		case source.IsActive() && source.IsCoBrandingEnabled(string(req.Purpose)):
			return Branding{
				Theme:          source.Branding.Theme,
				PrimaryColor:   source.Branding.PrimaryColor,
				SecondaryColor: source.Branding.SecondaryColor,
				LogoUrl:        source.Branding.LogoUrl,
				PartnerName:    source.Name,
			}
		}
	}

	if req.Branding != nil {
		return *req.Branding
	}

	return Branding{
		Theme:       "default",
		PartnerName: s.cfg.App.Name,
	}
}

// Activate authenticates the (sessionId, sessionToken) pair and moves the
// session pending -> active, capturing client analytics.
func (s *sessionService) Activate(ctx context.Context, sessionID, sessionToken string, client ClientInfo) (*View, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(session.SessionToken), []byte(sessionToken)) != 1 {
		s.recordError(ctx, sessionID, "UNAUTHORIZED", "session token mismatch", nil)
		return nil, models.ErrUnauthorized
	}

	now := time.Now()
	if !now.Before(session.ExpiresAt) {
		s.recordError(ctx, sessionID, "SESSION_EXPIRED", "activation after expiry", nil)
		return nil, models.ErrSessionExpired
	}

	if session.Status != StatusPending {
		s.recordError(ctx, sessionID, "INVALID_STATE_TRANSITION", "activation from "+string(session.Status), nil)
		return nil, models.ErrInvalidStateTransition
	}

	deviceType, platform := ClassifyUserAgent(client.UserAgent)
	timeToActivation := int64(now.Sub(session.CreatedAt).Seconds())

	update := TransitionUpdate{
		To:          StatusActive,
		ActivatedAt: &now,
		Analytics: &ActivationAnalytics{
			IPAddress:               client.IPAddress,
			UserAgent:               client.UserAgent,
			DeviceType:              deviceType,
			Platform:                platform,
			TimeToActivationSeconds: timeToActivation,
		},
		Audit: AuditEntry{
			Timestamp: now,
			Action:    ActionActivated,
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
		},
	}

	if err := s.repo.Transition(ctx, sessionID, update); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			s.recordError(ctx, sessionID, "INVALID_STATE_TRANSITION", "lost activation race", nil)
		}
		return nil, err
	}

	s.cache.InvalidateSession(ctx, sessionID)

	s.publish(models.SessionEventMessage{
		SessionID:   sessionID,
		UserID:      session.UserID,
		PosSystem:   string(session.PosSystem),
		ServiceName: models.ServiceSessionActivator,
		Event:       models.EventSessionActivated,
	})

	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"device_type": deviceType,
		"platform":    platform,
		"tta_seconds": timeToActivation,
	}).Info("Handoff session activated")

	return s.freshView(ctx, sessionID)
}

// TrackEvent records an engagement event. Known event types bump the
// matching analytics counter; every event is audited. Tracking is accepted
// in any state, terminal included, so late-arriving analytics are kept.
func (s *sessionService) TrackEvent(ctx context.Context, sessionID, eventType string, details map[string]string, client ClientInfo) error {
	if eventType == "" {
		return models.ErrValidation
	}

	var counterField string
	switch eventType {
	case EventPageView:
		counterField = "page_views"
	case EventDocumentUpload:
		counterField = "documents_uploaded"
	case EventStepComplete:
		counterField = "steps_completed"
	}

	audit := AuditEntry{
		Timestamp: time.Now(),
		Action:    eventType,
		Details:   details,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}

	if err := s.repo.AppendEvent(ctx, sessionID, counterField, audit); err != nil {
		return err
	}

	s.cache.InvalidateSession(ctx, sessionID)

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"event_type": eventType,
	}).Debug("Session event tracked")

	return nil
}

// Complete consumes the POS completion callback. A present callback token
// must verify as the short-lived pos_oauth type and be bound to this
// session; otherwise the session is left untouched.
func (s *sessionService) Complete(ctx context.Context, sessionID, callbackToken string, data CompletionData) (*View, error) {
	if callbackToken != "" {
		claims, err := s.signer.Verify(callbackToken, crypto.TokenTypeCallback)
		if err != nil || claims.SessionID != sessionID {
			logrus.WithField("session_id", sessionID).Warn("Callback token verification failed")
			return nil, models.ErrInvalidCallbackToken
		}
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	anchor := session.CreatedAt
	if session.ActivatedAt != nil {
		anchor = *session.ActivatedAt
	}
	timeToCompletion := int64(now.Sub(anchor).Seconds())

	merged := CompletionData{}
	if session.CompletionData != nil {
		merged = *session.CompletionData
	}
	merged.Merge(data)

	update := TransitionUpdate{
		To:                      StatusCompleted,
		CompletedAt:             &now,
		TimeToCompletionSeconds: &timeToCompletion,
		CompletionData:          &merged,
		Audit: AuditEntry{
			Timestamp: now,
			Action:    ActionCompleted,
			Details: map[string]string{
				"external_application_id": merged.ExternalApplicationID,
				"completion_status":       merged.Status,
			},
		},
	}

	if err := s.repo.Transition(ctx, sessionID, update); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			s.recordError(ctx, sessionID, "INVALID_STATE_TRANSITION", "completion from "+string(session.Status), nil)
		}
		return nil, err
	}

	s.syncCollaborators(ctx, session, merged, now)

	s.cache.InvalidateSession(ctx, sessionID)

	s.publish(models.SessionEventMessage{
		SessionID:   sessionID,
		UserID:      session.UserID,
		LoanID:      stringValue(session.LoanID),
		PosSystem:   string(session.PosSystem),
		ServiceName: models.ServiceSessionCompleter,
		Event:       models.EventSessionCompleted,
		Metadata:    map[string]string{"external_application_id": merged.ExternalApplicationID},
	})

	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"ttc_seconds": timeToCompletion,
	}).Info("Handoff session completed")

	return s.freshView(ctx, sessionID)
}

// syncCollaborators applies the post-completion side effects. Both updates
// are best effort once the transition has been recorded; failures land in
// the session's error list instead of failing the callback.
func (s *sessionService) syncCollaborators(ctx context.Context, session *Session, data CompletionData, now time.Time) {
	if session.LoanID != nil && data.ExternalApplicationID != "" {
		externalLoanID := data.ExternalLoanID
		if externalLoanID == "" {
			externalLoanID = data.ExternalApplicationID
		}
		if err := s.loans.UpdateExternalReference(ctx, *session.LoanID, externalLoanID, now); err != nil {
			logrus.WithError(err).WithField("loan_id", *session.LoanID).Warn("Failed to sync loan external reference")
			s.recordError(ctx, session.SessionID, "LOAN_SYNC_FAILED", "loan external reference update failed", map[string]string{
				"loan_id": *session.LoanID,
			})
		}
	}

	if session.ReferralID != nil {
		if err := s.referrals.IncrementApplicationCounter(ctx, *session.ReferralID); err != nil {
			logrus.WithError(err).WithField("referral_source_id", *session.ReferralID).Warn("Failed to increment referral counter")
			s.recordError(ctx, session.SessionID, "REFERRAL_COUNTER_FAILED", "referral application counter update failed", map[string]string{
				"referral_source_id": *session.ReferralID,
			})
		}
	}
}

// Cancel moves a non-terminal session to cancelled. Cancelling a completed
// session is always rejected.
func (s *sessionService) Cancel(ctx context.Context, sessionID, reason string, client ClientInfo) error {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	update := TransitionUpdate{
		To: StatusCancelled,
		Audit: AuditEntry{
			Timestamp: time.Now(),
			Action:    ActionCancelled,
			Details:   map[string]string{"reason": reason},
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
		},
	}

	if err := s.repo.Transition(ctx, sessionID, update); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			s.recordError(ctx, sessionID, "INVALID_STATE_TRANSITION", "cancel from "+string(session.Status), nil)
		}
		return err
	}

	s.cache.InvalidateSession(ctx, sessionID)

	s.publish(models.SessionEventMessage{
		SessionID:   sessionID,
		UserID:      session.UserID,
		PosSystem:   string(session.PosSystem),
		ServiceName: models.ServiceSessionIssuer,
		Event:       models.EventSessionCancelled,
		Metadata:    map[string]string{"reason": reason},
	})

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"reason":     reason,
	}).Info("Handoff session cancelled")

	return nil
}

// Fail records an unrecoverable error report against a pending or active
// session.
func (s *sessionService) Fail(ctx context.Context, sessionID, code, message string) error {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now()
	update := TransitionUpdate{
		To: StatusFailed,
		Audit: AuditEntry{
			Timestamp: now,
			Action:    ActionFailed,
			Details:   map[string]string{"code": code, "message": message},
		},
	}

	if err := s.repo.Transition(ctx, sessionID, update); err != nil {
		return err
	}

	s.recordError(ctx, sessionID, code, message, nil)
	s.cache.InvalidateSession(ctx, sessionID)

	s.publish(models.SessionEventMessage{
		SessionID:   sessionID,
		UserID:      session.UserID,
		PosSystem:   string(session.PosSystem),
		ServiceName: models.ServiceSessionCompleter,
		Event:       models.EventSessionFailed,
		Metadata:    map[string]string{"code": code},
	})

	return nil
}

// Extend pushes the session expiry forward relative to its current value.
func (s *sessionService) Extend(ctx context.Context, sessionID string, minutes int) (*View, error) {
	if minutes <= 0 {
		return nil, models.ErrValidation
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	newExpiry := session.ExpiresAt.Add(time.Duration(minutes) * time.Minute)
	audit := AuditEntry{
		Timestamp: time.Now(),
		Action:    ActionExtended,
		Details: map[string]string{
			"previous_expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
			"new_expires_at":      newExpiry.UTC().Format(time.RFC3339),
		},
	}

	if err := s.repo.Extend(ctx, sessionID, newExpiry, audit); err != nil {
		return nil, err
	}

	s.cache.InvalidateSession(ctx, sessionID)

	return s.freshView(ctx, sessionID)
}

// GetSession returns the sanitized view, served from cache when possible.
func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*View, error) {
	if view, err := s.cache.GetSessionView(ctx, sessionID); err == nil && view != nil {
		return view, nil
	}

	return s.freshView(ctx, sessionID)
}

func (s *sessionService) GetAnalytics(ctx context.Context, sessionID string) (*AnalyticsView, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &AnalyticsView{
		SessionID: session.SessionID,
		Status:    session.Status,
		Analytics: session.Analytics,
		CreatedAt: session.CreatedAt,
	}, nil
}

// SweepExpired time-expires every stale pending/active session in one
// batch and reports how many were swept.
func (s *sessionService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.SweepExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.cache.InvalidateSession(ctx, id)
		s.publish(models.SessionEventMessage{
			SessionID:   id,
			ServiceName: models.ServiceSessionSweeper,
			Event:       models.EventSessionExpired,
		})
	}

	if len(ids) > 0 {
		logrus.WithField("expired_count", len(ids)).Info("Stale handoff sessions expired")
	}

	return len(ids), nil
}

// freshView reads the current document and sanitizes it, refreshing the
// cache as a side effect.
func (s *sessionService) freshView(ctx context.Context, sessionID string) (*View, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := session.ToView()
	if err := s.cache.SaveSessionView(ctx, view); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Debug("Failed to refresh session view cache")
	}
	return view, nil
}

func (s *sessionService) recordError(ctx context.Context, sessionID, code, message string, details map[string]string) {
	entry := ErrorEntry{
		Timestamp: time.Now(),
		Code:      code,
		Message:   message,
		Details:   details,
	}
	if err := s.repo.RecordError(ctx, sessionID, entry); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Debug("Failed to record session error")
	}
}

func (s *sessionService) publish(event models.SessionEventMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishSessionEvent(event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"event":      event.Event,
		}).Warn("Failed to publish session event")
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/types"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	fraudFlagHighAmount      = "high_amount"
	fraudFlagSuspiciousEmail = "suspicious_email"
	fraudFlagVelocity        = "velocity_exceeded"

	scoreHighAmount      = 20
	scoreSuspiciousEmail = 30
	scoreVelocity        = 25
)

// disposableEmailMarkers are substrings of domains known to hand out
// throwaway inboxes
var disposableEmailMarkers = []string{
	"disposable",
	"tempmail",
	"temp-mail",
	"throwaway",
	"mailinator",
	"guerrillamail",
	"10minutemail",
	"trashmail",
	"yopmail",
	"fakeinbox",
}

// FraudService runs the scored heuristics gate before payment link creation.
// The screen is deterministic and auditable: fixed inputs always produce the
// same score, flags, and recommendation.
type FraudService interface {
	Screen(ctx context.Context, payerEmail string, amount decimal.Decimal) (*dto.FraudScreenResponse, error)
	// RecordAttempt counts a successful link creation toward the payer's
	// velocity window.
	RecordAttempt(payerEmail string)
}

type fraudService struct {
	ServiceParams
	// velocity holds per-email counters expiring with the velocity window,
	// a fast path over the durable link store after restarts
	velocity *gocache.Cache
}

// NewFraudService creates a new instance of FraudService
func NewFraudService(params ServiceParams) FraudService {
	window := params.Config.Fraud.VelocityWindow
	return &fraudService{
		ServiceParams: params,
		velocity:      gocache.New(window, window),
	}
}

// Screen scores the transaction. Score bands map to approve (<30), review
// (30-59), and decline (>=60), but any non-empty flag set forces decline
// outright; the bands only grade unflagged transactions.
func (s *fraudService) Screen(ctx context.Context, payerEmail string, amount decimal.Decimal) (*dto.FraudScreenResponse, error) {
	score := 0
	flags := []string{}

	if amount.GreaterThan(s.Config.Fraud.HighAmountThresholdDecimal()) {
		score += scoreHighAmount
		flags = append(flags, fraudFlagHighAmount)
	}

	if isDisposableEmail(payerEmail) {
		score += scoreSuspiciousEmail
		flags = append(flags, fraudFlagSuspiciousEmail)
	}

	if payerEmail != "" {
		count, err := s.recentLinkCount(ctx, payerEmail)
		if err != nil {
			return nil, err
		}
		if count > s.Config.Fraud.VelocityLimit {
			score += scoreVelocity
			flags = append(flags, fraudFlagVelocity)
		}
	}

	var riskLevel types.FraudRiskLevel
	var recommendation types.FraudRecommendation
	switch {
	case score < 30:
		riskLevel = types.FraudRiskLevelLow
		recommendation = types.FraudRecommendationApprove
	case score < 60:
		riskLevel = types.FraudRiskLevelMedium
		recommendation = types.FraudRecommendationReview
	default:
		riskLevel = types.FraudRiskLevelHigh
		recommendation = types.FraudRecommendationDecline
	}

	if len(flags) > 0 {
		recommendation = types.FraudRecommendationDecline
	}

	if recommendation != types.FraudRecommendationApprove {
		s.Logger.Warnw("fraud screen flagged transaction",
			"payer_email", payerEmail,
			"amount", amount.String(),
			"score", score,
			"flags", flags,
			"recommendation", recommendation)
	}

	return &dto.FraudScreenResponse{
		Score:          score,
		RiskLevel:      riskLevel,
		Recommendation: recommendation,
		Flags:          flags,
	}, nil
}

// recentLinkCount reads the payer's link-creation count over the trailing
// velocity window. The in-process counter and the durable store may disagree
// briefly; the larger of the two wins.
func (s *fraudService) recentLinkCount(ctx context.Context, payerEmail string) (int, error) {
	since := time.Now().UTC().Add(-s.Config.Fraud.VelocityWindow)
	stored, err := s.PaymentLinkRepo.CountByPayerEmailSince(ctx, payerEmail, since)
	if err != nil {
		return 0, err
	}

	cached := 0
	if v, ok := s.velocity.Get(velocityKey(payerEmail)); ok {
		cached = v.(int)
	}
	if cached > stored {
		return cached, nil
	}
	return stored, nil
}

// RecordAttempt counts a created link toward the payer's velocity window
func (s *fraudService) RecordAttempt(payerEmail string) {
	if payerEmail == "" {
		return
	}
	key := velocityKey(payerEmail)
	if _, err := s.velocity.IncrementInt(key, 1); err != nil {
		s.velocity.Set(key, 1, gocache.DefaultExpiration)
	}
}

func velocityKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDisposableEmail(email string) bool {
	normalized := strings.ToLower(email)
	for _, marker := range disposableEmailMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

package service

import (
	"testing"

	"github.com/finvoice/finvoice/internal/testutil"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type FraudServiceSuite struct {
	testutil.BaseServiceTestSuite
	service FraudService
}

func TestFraudService(t *testing.T) {
	suite.Run(t, new(FraudServiceSuite))
}

func (s *FraudServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewFraudService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		PaymentLinkRepo: s.GetStores().PaymentLinkRepo,
	})
}

func (s *FraudServiceSuite) TestScreenCleanTransaction() {
	resp, err := s.service.Screen(s.GetContext(), "buyer@example.com", decimal.NewFromInt(5000))
	s.NoError(err)
	s.Equal(0, resp.Score)
	s.Equal(types.FraudRiskLevelLow, resp.RiskLevel)
	s.Equal(types.FraudRecommendationApprove, resp.Recommendation)
	s.Empty(resp.Flags)
}

func (s *FraudServiceSuite) TestScreenHighAmount() {
	resp, err := s.service.Screen(s.GetContext(), "buyer@example.com", decimal.NewFromInt(150000))
	s.NoError(err)
	s.Equal(20, resp.Score)
	s.Contains(resp.Flags, "high_amount")
	// any flag declines regardless of the score band
	s.Equal(types.FraudRecommendationDecline, resp.Recommendation)
}

func (s *FraudServiceSuite) TestScreenAmountAtThresholdPasses() {
	resp, err := s.service.Screen(s.GetContext(), "buyer@example.com", decimal.NewFromInt(100000))
	s.NoError(err)
	s.Equal(0, resp.Score)
	s.Equal(types.FraudRecommendationApprove, resp.Recommendation)
}

func (s *FraudServiceSuite) TestScreenDisposableEmail() {
	resp, err := s.service.Screen(s.GetContext(), "buyer@tempmail.example", decimal.NewFromInt(5000))
	s.NoError(err)
	s.Equal(30, resp.Score)
	s.Equal(types.FraudRiskLevelMedium, resp.RiskLevel)
	s.Contains(resp.Flags, "suspicious_email")
	s.Equal(types.FraudRecommendationDecline, resp.Recommendation)
}

func (s *FraudServiceSuite) TestScreenStackedFlags() {
	resp, err := s.service.Screen(s.GetContext(), "buyer@mailinator.com", decimal.NewFromInt(150000))
	s.NoError(err)
	s.Equal(50, resp.Score)
	s.Equal(types.FraudRiskLevelMedium, resp.RiskLevel)
	s.ElementsMatch([]string{"high_amount", "suspicious_email"}, resp.Flags)
	s.Equal(types.FraudRecommendationDecline, resp.Recommendation)
}

func (s *FraudServiceSuite) TestScreenVelocity() {
	email := "rapid@example.com"

	// at the limit the payer is still clean
	for i := 0; i < 5; i++ {
		s.service.RecordAttempt(email)
	}
	resp, err := s.service.Screen(s.GetContext(), email, decimal.NewFromInt(1000))
	s.NoError(err)
	s.Equal(types.FraudRecommendationApprove, resp.Recommendation)

	// one more attempt crosses it
	s.service.RecordAttempt(email)
	resp, err = s.service.Screen(s.GetContext(), email, decimal.NewFromInt(1000))
	s.NoError(err)
	s.Equal(25, resp.Score)
	s.Contains(resp.Flags, "velocity_exceeded")
	s.Equal(types.FraudRecommendationDecline, resp.Recommendation)
}

func (s *FraudServiceSuite) TestScreenIsDeterministic() {
	first, err := s.service.Screen(s.GetContext(), "buyer@tempmail.example", decimal.NewFromInt(150000))
	s.NoError(err)
	second, err := s.service.Screen(s.GetContext(), "buyer@tempmail.example", decimal.NewFromInt(150000))
	s.NoError(err)
	s.Equal(first.Score, second.Score)
	s.Equal(first.Flags, second.Flags)
	s.Equal(first.Recommendation, second.Recommendation)
}

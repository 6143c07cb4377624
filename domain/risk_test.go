package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskFromScore(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		maxScore int
		expected RiskLevel
	}{
		{"zero score", 0, 8, RiskLow},
		{"just below moderate", 1, 5, RiskLow},
		{"exactly 25 percent", 2, 8, RiskModerate},
		{"just below high", 3, 8, RiskModerate},
		{"exactly 50 percent", 4, 8, RiskHigh},
		{"just below critical", 5, 8, RiskHigh},
		{"exactly 75 percent", 6, 8, RiskCritical},
		{"full score", 8, 8, RiskCritical},
		{"max score zero", 3, 0, RiskLow},
		{"max score negative", 3, -1, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskFromScore(tt.score, tt.maxScore))
		})
	}
}

func TestNewDomainResult(t *testing.T) {
	result := NewDomainResult(DomainFood, 2, 2, []QuestionResponse{
		{Question: "q1", Answer: "Yes", Flagged: true},
		{Question: "q2", Answer: "No"},
	})
	assert.Equal(t, DomainFood, result.Domain)
	assert.Equal(t, RiskCritical, result.Risk)
	assert.Equal(t, 1, result.FlaggedCount())
}

func TestOverallRisk(t *testing.T) {
	t.Run("highest level wins", func(t *testing.T) {
		domains := []ScreeningDomainResult{
			{Domain: DomainFood, Risk: RiskModerate},
			{Domain: DomainHousing, Risk: RiskCritical},
			{Domain: DomainSafety, Risk: RiskLow},
		}
		assert.Equal(t, RiskCritical, OverallRisk(domains))
	})
	t.Run("empty yields low", func(t *testing.T) {
		assert.Equal(t, RiskLow, OverallRisk(nil))
	})
	t.Run("not an average", func(t *testing.T) {
		domains := []ScreeningDomainResult{
			{Domain: DomainFood, Risk: RiskLow},
			{Domain: DomainHousing, Risk: RiskLow},
			{Domain: DomainSafety, Risk: RiskHigh},
		}
		assert.Equal(t, RiskHigh, OverallRisk(domains))
	})
}

func TestRiskLevel_Exceeds(t *testing.T) {
	assert.True(t, RiskCritical.Exceeds(RiskHigh))
	assert.True(t, RiskModerate.Exceeds(RiskLow))
	assert.False(t, RiskLow.Exceeds(RiskLow))
	assert.False(t, RiskHigh.Exceeds(RiskCritical))
}

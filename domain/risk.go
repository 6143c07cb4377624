package domain

// riskRank orders risk levels for comparison. Higher is worse.
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskModerate: 1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Exceeds reports whether l is a higher risk level than other.
func (l RiskLevel) Exceeds(other RiskLevel) bool {
	return riskRank[l] > riskRank[other]
}

// RiskFromScore bands a domain score into a risk level. Thresholds are
// inclusive lower bounds on score/maxScore: >= 0.75 critical, >= 0.50 high,
// >= 0.25 moderate, otherwise low. A domain with maxScore <= 0 bands as low.
func RiskFromScore(score, maxScore int) RiskLevel {
	if maxScore <= 0 {
		return RiskLow
	}
	fraction := float64(score) / float64(maxScore)
	switch {
	case fraction >= 0.75:
		return RiskCritical
	case fraction >= 0.50:
		return RiskHigh
	case fraction >= 0.25:
		return RiskModerate
	default:
		return RiskLow
	}
}

// NewDomainResult builds a ScreeningDomainResult with its risk derived from
// the score, keeping the risk field consistent with the banding function.
func NewDomainResult(domain SDOHDomain, score, maxScore int, responses []QuestionResponse) ScreeningDomainResult {
	return ScreeningDomainResult{
		Domain:    domain,
		Score:     score,
		MaxScore:  maxScore,
		Risk:      RiskFromScore(score, maxScore),
		Responses: responses,
	}
}

// OverallRisk returns the highest risk level present across domain results,
// not an average. An empty slice yields low.
func OverallRisk(domains []ScreeningDomainResult) RiskLevel {
	result := RiskLow
	for _, d := range domains {
		if d.Risk.Exceeds(result) {
			result = d.Risk
		}
	}
	return result
}

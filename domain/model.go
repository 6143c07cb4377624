package domain

import "time"

// SDOHDomain identifies one social-needs screening domain.
type SDOHDomain string

const (
	DomainFood           SDOHDomain = "food"
	DomainHousing        SDOHDomain = "housing"
	DomainTransportation SDOHDomain = "transportation"
	DomainUtilities      SDOHDomain = "utilities"
	DomainSafety         SDOHDomain = "safety"
	DomainFinancial      SDOHDomain = "financial"
	DomainEmployment     SDOHDomain = "employment"
	DomainEducation      SDOHDomain = "education"
	DomainSocial         SDOHDomain = "social"
	DomainHealthLiteracy SDOHDomain = "health_literacy"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type ScreeningMethod string

const (
	MethodInPerson            ScreeningMethod = "in_person"
	MethodPhone               ScreeningMethod = "phone"
	MethodTablet              ScreeningMethod = "tablet"
	MethodInterpreterAssisted ScreeningMethod = "interpreter_assisted"
)

// Patient is the application-side patient record. It is created from an EHR
// load (or demo data) and only amended when new screenings complete.
type Patient struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Age              int               `json:"age"`
	Gender           string            `json:"gender"`
	Language         string            `json:"language"`
	Ethnicity        string            `json:"ethnicity"`
	MRN              string            `json:"mrn"`
	Phone            string            `json:"phone"`
	Address          string            `json:"address"`
	InsuranceType    string            `json:"insuranceType,omitempty"`
	LastScreening    *time.Time        `json:"lastScreening,omitempty"`
	RiskLevel        RiskLevel         `json:"riskLevel,omitempty"`
	IdentifiedNeeds  []SDOHDomain      `json:"identifiedNeeds,omitempty"`
	ScreeningHistory []ScreeningRecord `json:"screeningHistory,omitempty"`
}

// ScreeningRecord is one completed assessment. Records are immutable once
// created and are appended to the patient's history.
type ScreeningRecord struct {
	ID            string                  `json:"id"`
	Date          time.Time               `json:"date"`
	Domains       []ScreeningDomainResult `json:"domains"`
	OverallRisk   RiskLevel               `json:"overallRisk"`
	Screener      string                  `json:"screener"`
	Method        ScreeningMethod         `json:"method"`
	Language      string                  `json:"language"`
	CulturalNotes string                  `json:"culturalNotes,omitempty"`
}

// ScreeningDomainResult is the outcome of one domain within a screening.
// Risk must equal RiskFromScore(Score, MaxScore); use NewDomainResult to
// guarantee that.
type ScreeningDomainResult struct {
	Domain    SDOHDomain         `json:"domain"`
	Score     int                `json:"score"`
	MaxScore  int                `json:"maxScore"`
	Risk      RiskLevel          `json:"risk"`
	Responses []QuestionResponse `json:"responses"`
}

// QuestionResponse is a single answered screening question. Code optionally
// carries the question's LOINC code; when empty, mapping falls back to a
// display-text lookup.
type QuestionResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Flagged  bool   `json:"flagged"`
	Code     string `json:"code,omitempty"`
}

// FlaggedCount returns the number of flagged responses in the domain result.
func (r ScreeningDomainResult) FlaggedCount() int {
	var count int
	for _, response := range r.Responses {
		if response.Flagged {
			count++
		}
	}
	return count
}

// FollowUp is one follow-up contact on a referral.
type FollowUp struct {
	Date          time.Time `json:"date"`
	Note          string    `json:"note"`
	Status        string    `json:"status"`
	ContactMethod string    `json:"contactMethod"`
}

// Referral tracks one service connection for one patient and domain.
type Referral struct {
	ID           string         `json:"id"`
	PatientID    string         `json:"patientId"`
	PatientName  string         `json:"patientName,omitempty"`
	Domain       SDOHDomain     `json:"domain"`
	Status       ReferralStatus `json:"status"`
	Organization string         `json:"organization"`
	CreatedDate  time.Time      `json:"createdDate"`
	UpdatedDate  time.Time      `json:"updatedDate"`
	AssignedTo   string         `json:"assignedTo,omitempty"`
	Priority     RiskLevel      `json:"priority,omitempty"`
	Notes        []string       `json:"notes,omitempty"`
	FollowUps    []FollowUp     `json:"followUps,omitempty"`
	ClosedDate   *time.Time     `json:"closedDate,omitempty"`
	Resolution   string         `json:"resolution,omitempty"`
}

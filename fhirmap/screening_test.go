package fhirmap

import (
	"testing"
	"time"

	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

var screeningDate = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

func foodScreening() domain.ScreeningRecord {
	return domain.ScreeningRecord{
		ID:   "scr-1",
		Date: screeningDate,
		Domains: []domain.ScreeningDomainResult{
			domain.NewDomainResult(domain.DomainFood, 2, 2, []domain.QuestionResponse{
				{Question: "Within the past 12 months, you worried that your food would run out before you got money to buy more", Answer: "Often true", Flagged: true},
				{Question: "Within the past 12 months, the food you bought just didn't last and you didn't have money to get more", Answer: "Sometimes true", Flagged: true},
			}),
			domain.NewDomainResult(domain.DomainTransportation, 0, 1, []domain.QuestionResponse{
				{Question: "Has lack of transportation kept you from medical appointments or getting medications?", Answer: "No", Flagged: false},
			}),
		},
		OverallRisk: domain.RiskCritical,
	}
}

func TestQuestionnaireResponseFromScreening(t *testing.T) {
	qr := QuestionnaireResponseFromScreening(foodScreening(), "P001", "E100")

	assert.Equal(t, QuestionnaireCanonical, *qr.Questionnaire)
	assert.Equal(t, fhir.QuestionnaireResponseStatusCompleted, qr.Status)
	assert.Equal(t, "Patient/P001", *qr.Subject.Reference)
	assert.Equal(t, "Encounter/E100", *qr.Encounter.Reference)
	assert.Equal(t, "2026-02-10T09:30:00Z", *qr.Authored)

	require.Len(t, qr.Item, 2)
	food := qr.Item[0]
	assert.Equal(t, "food", food.LinkId)
	assert.Equal(t, "Hunger Vital Sign [HVS]", *food.Text)
	require.Len(t, food.Item, 2)
	assert.Equal(t, "food-q1", food.Item[0].LinkId)
	assert.Equal(t, "food-q2", food.Item[1].LinkId)
	assert.Equal(t, "LA33-6", *food.Item[0].Answer[0].ValueCoding.Code)

	transportation := qr.Item[1]
	assert.Equal(t, "transportation-q1", transportation.Item[0].LinkId)
	assert.Equal(t, "LA32-8", *transportation.Item[0].Answer[0].ValueCoding.Code)
}

func TestQuestionnaireResponseFromScreening_NoEncounter(t *testing.T) {
	qr := QuestionnaireResponseFromScreening(foodScreening(), "P001", "")
	assert.Nil(t, qr.Encounter)
}

func TestQuestionnaireResponseFromScreening_SkipsUnmappedDomains(t *testing.T) {
	screening := domain.ScreeningRecord{
		Date: screeningDate,
		Domains: []domain.ScreeningDomainResult{
			domain.NewDomainResult(domain.DomainEmployment, 1, 1, []domain.QuestionResponse{
				{Question: "Are you currently employed?", Answer: "No", Flagged: true},
			}),
		},
	}
	qr := QuestionnaireResponseFromScreening(screening, "P001", "")
	assert.Empty(t, qr.Item)
}

func TestObservationsFromScreening(t *testing.T) {
	observations := ObservationsFromScreening(foodScreening(), "P001", "QR1")

	// only the two flagged food answers extract, the transportation "No" does not
	require.Len(t, observations, 2)
	first := observations[0]
	assert.Equal(t, []string{"http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-ObservationScreeningResponse"}, first.Meta.Profile)
	assert.Equal(t, fhir.ObservationStatusFinal, first.Status)
	require.Len(t, first.Category, 2)
	assert.Equal(t, "survey", *first.Category[0].Coding[0].Code)
	assert.Equal(t, "sdoh", *first.Category[1].Coding[0].Code)
	assert.Equal(t, "88122-7", *first.Code.Coding[0].Code)
	assert.Equal(t, "Patient/P001", *first.Subject.Reference)
	assert.Equal(t, "LA33-6", *first.ValueCodeableConcept.Coding[0].Code)
	assert.Equal(t, "QuestionnaireResponse/QR1", *first.DerivedFrom[0].Reference)

	assert.Equal(t, "88123-5", *observations[1].Code.Coding[0].Code)
}

func TestObservationsForDomain_QuestionCodeResolution(t *testing.T) {
	t.Run("explicit code wins", func(t *testing.T) {
		result := domain.NewDomainResult(domain.DomainSafety, 1, 1, []domain.QuestionResponse{
			{Question: "translated safety question", Answer: "Yes", Flagged: true, Code: "93038-8"},
		})
		obs := ObservationsForDomain(result, screeningDate, "P001", "QR1")
		require.Len(t, obs, 1)
		assert.Equal(t, "93038-8", *obs[0].Code.Coding[0].Code)
		assert.Equal(t, "How often does anyone physically hurt you?", *obs[0].Code.Coding[0].Display)
	})
	t.Run("unknown question keeps its text", func(t *testing.T) {
		result := domain.NewDomainResult(domain.DomainFood, 1, 1, []domain.QuestionResponse{
			{Question: "Do you grow your own food?", Answer: "No", Flagged: true},
		})
		obs := ObservationsForDomain(result, screeningDate, "P001", "QR1")
		require.Len(t, obs, 1)
		assert.Equal(t, "unknown", *obs[0].Code.Coding[0].Code)
		assert.Equal(t, "Do you grow your own food?", *obs[0].Code.Coding[0].Display)
	})
}

func TestConditionFromDomain(t *testing.T) {
	onset := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	condition := ConditionFromDomain(domain.DomainFood, "P001", []string{"obs-1", "obs-2"}, onset)

	assert.Equal(t, []string{"http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-Condition"}, condition.Meta.Profile)
	assert.Equal(t, "active", *condition.ClinicalStatus.Coding[0].Code)
	assert.Equal(t, "unconfirmed", *condition.VerificationStatus.Coding[0].Code)

	require.Len(t, condition.Category, 2)
	assert.Equal(t, "health-concern", *condition.Category[0].Coding[0].Code)
	assert.Equal(t, "food-insecurity", *condition.Category[1].Coding[0].Code)

	require.Len(t, condition.Code.Coding, 2)
	assert.Equal(t, "733423003", *condition.Code.Coding[0].Code)
	assert.Equal(t, "Z59.48", *condition.Code.Coding[1].Code)

	assert.Equal(t, "Patient/P001", *condition.Subject.Reference)
	assert.Equal(t, "2026-02-10T10:00:00Z", *condition.OnsetDateTime)

	require.Len(t, condition.Evidence, 2)
	assert.Equal(t, "Observation/obs-1", *condition.Evidence[0].Detail[0].Reference)
	assert.Equal(t, "Observation/obs-2", *condition.Evidence[1].Detail[0].Reference)
}

func TestConditionFromDomain_UnmappedDomain(t *testing.T) {
	condition := ConditionFromDomain(domain.DomainUtilities, "P001", nil, screeningDate)

	require.Len(t, condition.Code.Coding, 1)
	assert.Equal(t, "unknown", *condition.Code.Coding[0].Code)
	assert.Equal(t, "utilities", *condition.Code.Coding[0].Display)
	// no Gravity code for utilities, category falls back to sdoh
	assert.Equal(t, "sdoh", *condition.Category[1].Coding[0].Code)
	assert.Empty(t, condition.Evidence)
}

func TestQuestionCodingExplicitUnknownCodePassesThrough(t *testing.T) {
	c := questionCoding(domain.QuestionResponse{Question: "site-specific question", Code: "99999-9"})
	assert.Equal(t, "99999-9", c.Code)
	assert.Equal(t, "site-specific question", c.Display)
}

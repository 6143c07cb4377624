package fhirmap

import (
	"fmt"
	"time"

	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/lib/to"
	"github.com/sdoh-bridge/fhirbridge/terminology"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// QuestionnaireCanonical identifies the screening instrument referenced by
// every QuestionnaireResponse this application writes.
const QuestionnaireCanonical = "http://advocatehealth.org/fhir/Questionnaire/sdoh-ahn2"

// QuestionnaireResponseFromScreening maps a completed screening to a FHIR
// QuestionnaireResponse. Each domain becomes a group item carrying the LOINC
// panel display, with one child item per answered question. Domains without a
// panel mapping are skipped. The encounter reference is set only when an
// encounter is in context.
func QuestionnaireResponseFromScreening(screening domain.ScreeningRecord, patientID string, encounterID string) fhir.QuestionnaireResponse {
	var items []fhir.QuestionnaireResponseItem
	for _, domainResult := range screening.Domains {
		panel, ok := terminology.PanelForDomain(domainResult.Domain)
		if !ok {
			continue
		}
		groupItem := fhir.QuestionnaireResponseItem{
			LinkId: string(domainResult.Domain),
			Text:   to.Ptr(panel.Display),
		}
		for i, response := range domainResult.Responses {
			answer := terminology.AnswerNo
			if response.Flagged {
				answer = terminology.AnswerYes
			}
			groupItem.Item = append(groupItem.Item, fhir.QuestionnaireResponseItem{
				LinkId: fmt.Sprintf("%s-q%d", domainResult.Domain, i+1),
				Text:   to.Ptr(response.Question),
				Answer: []fhir.QuestionnaireResponseItemAnswer{
					{ValueCoding: coding(answer)},
				},
			})
		}
		items = append(items, groupItem)
	}

	result := fhir.QuestionnaireResponse{
		Questionnaire: to.Ptr(QuestionnaireCanonical),
		Status:        fhir.QuestionnaireResponseStatusCompleted,
		Subject:       patientReference(patientID),
		Authored:      to.Ptr(screening.Date.Format(time.RFC3339)),
		Item:          items,
	}
	if encounterID != "" {
		result.Encounter = &fhir.Reference{Reference: to.Ptr("Encounter/" + encounterID)}
	}
	return result
}

// ObservationsFromScreening extracts one SDOHCC screening-response Observation
// per flagged answer across all domains. Unflagged answers produce nothing.
func ObservationsFromScreening(screening domain.ScreeningRecord, patientID string, questionnaireResponseID string) []fhir.Observation {
	var observations []fhir.Observation
	for _, domainResult := range screening.Domains {
		observations = append(observations, ObservationsForDomain(domainResult, screening.Date, patientID, questionnaireResponseID)...)
	}
	return observations
}

// ObservationsForDomain extracts the flagged answers of a single domain. The
// question's LOINC code is resolved from the response's explicit code first,
// then by display-text lookup; unresolvable questions keep their text under a
// LOINC "unknown" code so the answer is not dropped.
func ObservationsForDomain(domainResult domain.ScreeningDomainResult, screeningDate time.Time, patientID string, questionnaireResponseID string) []fhir.Observation {
	var observations []fhir.Observation
	for _, response := range domainResult.Responses {
		if !response.Flagged {
			continue
		}
		observations = append(observations, fhir.Observation{
			Meta:   &fhir.Meta{Profile: []string{terminology.ProfileObservationScreeningResponse}},
			Status: fhir.ObservationStatusFinal,
			Category: []fhir.CodeableConcept{
				{Coding: []fhir.Coding{*coding(terminology.SurveyCategory)}},
				{Coding: []fhir.Coding{*coding(terminology.SDOHCategory)}},
			},
			Code:                 fhir.CodeableConcept{Coding: []fhir.Coding{*coding(questionCoding(response))}},
			Subject:              patientReference(patientID),
			EffectiveDateTime:    to.Ptr(screeningDate.Format(time.RFC3339)),
			ValueCodeableConcept: &fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.AnswerYes)}},
			DerivedFrom: []fhir.Reference{
				{Reference: to.Ptr("QuestionnaireResponse/" + questionnaireResponseID)},
			},
		})
	}
	return observations
}

// ConditionFromDomain builds the SDOHCC Condition for an identified need,
// citing the given screening-response observations as evidence. Domains
// without a SNOMED/ICD-10 mapping are coded unknown with the domain name as
// display.
func ConditionFromDomain(d domain.SDOHDomain, patientID string, observationIDs []string, onset time.Time) fhir.Condition {
	var codings []fhir.Coding
	if codes, ok := terminology.ConditionCodesForDomain(d); ok {
		codings = []fhir.Coding{*coding(codes.SNOMED), *coding(codes.ICD10)}
	} else {
		codings = []fhir.Coding{{
			System:  to.Ptr(terminology.SystemSNOMED),
			Code:    to.Ptr("unknown"),
			Display: to.Ptr(string(d)),
		}}
	}

	domainCategory := fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.SDOHCategory)}}
	if gravity, ok := terminology.GravityCodeForDomain(d); ok {
		domainCategory = fhir.CodeableConcept{Coding: []fhir.Coding{*coding(gravity)}}
	}

	var evidence []fhir.ConditionEvidence
	for _, id := range observationIDs {
		evidence = append(evidence, fhir.ConditionEvidence{
			Detail: []fhir.Reference{{Reference: to.Ptr("Observation/" + id)}},
		})
	}

	return fhir.Condition{
		Meta: &fhir.Meta{Profile: []string{terminology.ProfileCondition}},
		ClinicalStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{
			{System: to.Ptr(terminology.SystemConditionClin), Code: to.Ptr("active")},
		}},
		VerificationStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{
			{System: to.Ptr(terminology.SystemConditionVerStat), Code: to.Ptr("unconfirmed")},
		}},
		Category: []fhir.CodeableConcept{
			{Coding: []fhir.Coding{*coding(terminology.HealthConcernCategory)}},
			domainCategory,
		},
		Code:          &fhir.CodeableConcept{Coding: codings},
		Subject:       *patientReference(patientID),
		OnsetDateTime: to.Ptr(onset.Format(time.RFC3339)),
		Evidence:      evidence,
	}
}

// questionCoding resolves a response to its LOINC question coding: explicit
// code first, display-text lookup second, "unknown" placeholder last.
func questionCoding(response domain.QuestionResponse) terminology.Coding {
	if response.Code != "" {
		if c, ok := terminology.QuestionCode(response.Code); ok {
			return c
		}
		return terminology.Coding{System: terminology.SystemLOINC, Code: response.Code, Display: response.Question}
	}
	if c, ok := terminology.QuestionCodeByText(response.Question); ok {
		return c
	}
	return terminology.Coding{System: terminology.SystemLOINC, Code: "unknown", Display: response.Question}
}

func coding(c terminology.Coding) *fhir.Coding {
	return &fhir.Coding{
		System:  to.Ptr(c.System),
		Code:    to.Ptr(c.Code),
		Display: to.Ptr(c.Display),
	}
}

func patientReference(patientID string) *fhir.Reference {
	return &fhir.Reference{Reference: to.Ptr("Patient/" + patientID)}
}

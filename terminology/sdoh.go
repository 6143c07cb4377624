// Package terminology holds the static code system tables (LOINC, SNOMED CT,
// ICD-10-CM, Gravity Project) used by the FHIR resource mappers. Pure data,
// keyed by the internal SDOH domain enum.
package terminology

import (
	"strings"

	"github.com/sdoh-bridge/fhirbridge/domain"
)

const (
	SystemLOINC            = "http://loinc.org"
	SystemSNOMED           = "http://snomed.info/sct"
	SystemICD10CM          = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemUSCoreCategory   = "http://hl7.org/fhir/us/core/CodeSystem/us-core-category"
	SystemObservationCat   = "http://terminology.hl7.org/CodeSystem/observation-category"
	SystemConditionCat     = "http://terminology.hl7.org/CodeSystem/condition-category"
	SystemConditionClin    = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	SystemConditionVerStat = "http://terminology.hl7.org/CodeSystem/condition-ver-status"
	SystemGravityTemporary = "http://hl7.org/fhir/us/sdoh-clinicalcare/CodeSystem/SDOHCC-CodeSystemTemporaryCodes"
)

// SDOHCC profile canonicals (Gravity Project SDOH Clinical Care IG).
const (
	ProfileObservationScreeningResponse = "http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-ObservationScreeningResponse"
	ProfileCondition                    = "http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-Condition"
	ProfileServiceRequest               = "http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-ServiceRequest"
	ProfileProcedure                    = "http://hl7.org/fhir/us/sdoh-clinicalcare/StructureDefinition/SDOHCC-Procedure"
)

// Coding is a system/code/display triple, the shape shared by all tables here.
type Coding struct {
	System  string
	Code    string
	Display string
}

// SDOHCategory is the US Core category coding carried by every resource this
// application writes, making them discoverable by category=sdoh searches.
var SDOHCategory = Coding{System: SystemUSCoreCategory, Code: "sdoh", Display: "SDOH"}

// SurveyCategory is the standard observation-category coding for screening responses.
var SurveyCategory = Coding{System: SystemObservationCat, Code: "survey", Display: "Survey"}

// HealthConcernCategory is the condition-category coding for SDOH conditions.
var HealthConcernCategory = Coding{System: SystemConditionCat, Code: "health-concern", Display: "Health Concern"}

// Screening answer codings (LOINC answer list).
var (
	AnswerYes = Coding{System: SystemLOINC, Code: "LA33-6", Display: "Yes"}
	AnswerNo  = Coding{System: SystemLOINC, Code: "LA32-8", Display: "No"}
)

// SocialServiceProcedure is the SNOMED code used for SDOH service requests and procedures.
var SocialServiceProcedure = Coding{System: SystemSNOMED, Code: "410606002", Display: "Social service procedure"}

// panels maps a screening domain to its LOINC panel code (AHN-2 tool).
// Domains without a panel mapping are skipped during QuestionnaireResponse
// construction.
var panels = map[domain.SDOHDomain]Coding{
	domain.DomainFood:           {System: SystemLOINC, Code: "88122-7", Display: "Hunger Vital Sign [HVS]"},
	domain.DomainHousing:        {System: SystemLOINC, Code: "71802-3", Display: "Housing status"},
	domain.DomainTransportation: {System: SystemLOINC, Code: "93030-5", Display: "Transportation needs"},
	domain.DomainUtilities:      {System: SystemLOINC, Code: "93033-9", Display: "Utilities"},
	domain.DomainSafety:         {System: SystemLOINC, Code: "93038-8", Display: "Personal safety"},
	domain.DomainFinancial:      {System: SystemLOINC, Code: "76513-1", Display: "Financial strain"},
}

// questions holds the individual LOINC question codes, ordered. Order matters:
// the display-text fallback lookup scans in this order and takes the first hit.
var questions = []Coding{
	{System: SystemLOINC, Code: "88122-7", Display: "Within the past 12 months, you worried that your food would run out before you got money to buy more"},
	{System: SystemLOINC, Code: "88123-5", Display: "Within the past 12 months, the food you bought just didn't last and you didn't have money to get more"},
	{System: SystemLOINC, Code: "71802-3", Display: "What is your housing situation today?"},
	{System: SystemLOINC, Code: "93033-9", Display: "Are you worried about losing your housing?"},
	{System: SystemLOINC, Code: "93030-5", Display: "Has lack of transportation kept you from medical appointments or getting medications?"},
	{System: SystemLOINC, Code: "93033-9", Display: "In the past 12 months has the electric, gas, oil, or water company threatened to shut off services?"},
	{System: SystemLOINC, Code: "93038-8", Display: "How often does anyone physically hurt you?"},
	{System: SystemLOINC, Code: "76513-1", Display: "How hard is it for you to pay for the very basics like food, housing, medical care, and heating?"},
}

// gravityDomains maps a screening domain to its Gravity Project temporary code.
var gravityDomains = map[domain.SDOHDomain]Coding{
	domain.DomainFood:           {System: SystemGravityTemporary, Code: "food-insecurity", Display: "Food Insecurity"},
	domain.DomainHousing:        {System: SystemGravityTemporary, Code: "housing-instability", Display: "Housing Instability"},
	domain.DomainTransportation: {System: SystemGravityTemporary, Code: "transportation-insecurity", Display: "Transportation Insecurity"},
	domain.DomainFinancial:      {System: SystemGravityTemporary, Code: "financial-insecurity", Display: "Financial Insecurity"},
	domain.DomainSafety:         {System: SystemGravityTemporary, Code: "personal-safety", Display: "Personal Safety"},
}

// ConditionCodes is the SNOMED CT + ICD-10-CM pair diagnosed for a domain.
type ConditionCodes struct {
	SNOMED Coding
	ICD10  Coding
}

var conditionCodes = map[domain.SDOHDomain]ConditionCodes{
	domain.DomainFood: {
		SNOMED: Coding{System: SystemSNOMED, Code: "733423003", Display: "Food insecurity"},
		ICD10:  Coding{System: SystemICD10CM, Code: "Z59.48", Display: "Other problems related to inadequate food"},
	},
	domain.DomainHousing: {
		SNOMED: Coding{System: SystemSNOMED, Code: "32911000", Display: "Homeless"},
		ICD10:  Coding{System: SystemICD10CM, Code: "Z59.01", Display: "Sheltered homelessness"},
	},
	domain.DomainTransportation: {
		SNOMED: Coding{System: SystemSNOMED, Code: "551561000124104", Display: "Transportation insecurity"},
		ICD10:  Coding{System: SystemICD10CM, Code: "Z59.82", Display: "Transportation insecurity"},
	},
	domain.DomainFinancial: {
		SNOMED: Coding{System: SystemSNOMED, Code: "454061000124102", Display: "Financial insecurity"},
		ICD10:  Coding{System: SystemICD10CM, Code: "Z59.86", Display: "Financial insecurity"},
	},
	domain.DomainSafety: {
		SNOMED: Coding{System: SystemSNOMED, Code: "706893006", Display: "Victim of intimate partner abuse"},
		ICD10:  Coding{System: SystemICD10CM, Code: "Z63.0", Display: "Problems in relationship with spouse or partner"},
	},
}

// PanelForDomain returns the LOINC panel coding for a domain, if one is mapped.
func PanelForDomain(d domain.SDOHDomain) (Coding, bool) {
	coding, ok := panels[d]
	return coding, ok
}

// GravityCodeForDomain returns the Gravity Project domain coding, if mapped.
func GravityCodeForDomain(d domain.SDOHDomain) (Coding, bool) {
	coding, ok := gravityDomains[d]
	return coding, ok
}

// ConditionCodesForDomain returns the SNOMED/ICD-10 pair for a domain, if mapped.
func ConditionCodesForDomain(d domain.SDOHDomain) (ConditionCodes, bool) {
	codes, ok := conditionCodes[d]
	return codes, ok
}

// QuestionCode returns the LOINC question coding for the given code, if known.
func QuestionCode(code string) (Coding, bool) {
	for _, q := range questions {
		if q.Code == code {
			return q, true
		}
	}
	return Coding{}, false
}

// QuestionCodeByText locates a question coding by display text. It is a
// best-effort fallback for responses that carry no explicit code: the first
// 30 characters of the question text are matched, case-insensitively, as a
// substring of the table's display text.
func QuestionCodeByText(question string) (Coding, bool) {
	needle := strings.ToLower(question)
	if len(needle) > 30 {
		needle = needle[:30]
	}
	for _, q := range questions {
		if strings.Contains(strings.ToLower(q.Display), needle) {
			return q, true
		}
	}
	return Coding{}, false
}

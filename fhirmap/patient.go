// Package fhirmap converts between the application's domain model and FHIR R4
// resources shaped after the Gravity Project SDOHCC profiles. All functions
// here are pure: they build or read resource structs and never touch the
// network.
package fhirmap

import (
	"math"
	"strings"
	"time"

	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

const ethnicityExtensionURL = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-ethnicity"

// PatientFromFHIR flattens a FHIR Patient into the application's patient
// record. Missing optional elements become zero values, never errors.
func PatientFromFHIR(patient fhir.Patient, now time.Time) domain.Patient {
	result := domain.Patient{
		ID:        to.Empty(patient.Id),
		Name:      patientName(patient.Name),
		MRN:       patientMRN(patient.Identifier),
		Language:  patientLanguage(patient.Communication),
		Ethnicity: patientEthnicity(patient.Extension),
		Phone:     patientPhone(patient.Telecom),
		Address:   patientAddress(patient.Address),
	}
	if patient.Gender != nil {
		result.Gender = patient.Gender.Code()
	}
	if patient.BirthDate != nil {
		result.Age = ageAt(*patient.BirthDate, now)
	}
	return result
}

// ageAt computes full years as elapsed time divided by the mean year length
// of 365.25 days, floored. Unparseable dates yield zero.
func ageAt(birthDate string, now time.Time) int {
	born, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0
	}
	days := now.Sub(born).Hours() / 24
	age := int(math.Floor(days / 365.25))
	if age < 0 {
		return 0
	}
	return age
}

// patientName prefers the official name and falls back to the first entry.
func patientName(names []fhir.HumanName) string {
	if len(names) == 0 {
		return ""
	}
	name := names[0]
	for _, n := range names {
		if n.Use != nil && *n.Use == fhir.NameUseOfficial {
			name = n
			break
		}
	}
	parts := append([]string{}, name.Given...)
	if name.Family != nil {
		parts = append(parts, *name.Family)
	}
	return strings.Join(parts, " ")
}

// patientMRN prefers the identifier typed MRN, falling back to the first one.
func patientMRN(identifiers []fhir.Identifier) string {
	for _, id := range identifiers {
		if id.Type != nil && to.Empty(id.Type.Text) == "MRN" {
			return to.Empty(id.Value)
		}
	}
	if len(identifiers) > 0 {
		return to.Empty(identifiers[0].Value)
	}
	return ""
}

// patientLanguage returns the text of the preferred communication language,
// defaulting to English when the patient record states no preference.
func patientLanguage(communications []fhir.PatientCommunication) string {
	for _, c := range communications {
		if c.Preferred != nil && *c.Preferred {
			if c.Language.Text != nil {
				return *c.Language.Text
			}
		}
	}
	return "English"
}

// patientEthnicity reads the US Core ethnicity extension's nested text value.
func patientEthnicity(extensions []fhir.Extension) string {
	for _, ext := range extensions {
		if ext.Url != ethnicityExtensionURL {
			continue
		}
		for _, nested := range ext.Extension {
			if nested.Url == "text" {
				return to.Empty(nested.ValueString)
			}
		}
	}
	return ""
}

func patientPhone(telecoms []fhir.ContactPoint) string {
	for _, t := range telecoms {
		if t.System != nil && *t.System == fhir.ContactPointSystemPhone {
			return to.Empty(t.Value)
		}
	}
	return ""
}

// patientAddress renders the first address as a single display line.
func patientAddress(addresses []fhir.Address) string {
	if len(addresses) == 0 {
		return ""
	}
	addr := addresses[0]
	parts := append([]string{}, addr.Line...)
	if addr.City != nil {
		parts = append(parts, *addr.City)
	}
	line := strings.Join(parts, ", ")
	region := strings.TrimSpace(to.Empty(addr.State) + " " + to.Empty(addr.PostalCode))
	if region != "" {
		line = strings.TrimSpace(line + ", " + region)
	}
	return strings.Trim(line, ", ")
}

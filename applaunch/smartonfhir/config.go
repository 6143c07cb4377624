package smartonfhir

import "strings"

// scopes requested at launch. Read scopes cover the patient-context loads,
// write scopes cover screening submission and referral loop closure.
var scopes = []string{
	"launch",
	"openid",
	"fhirUser",
	"patient/Patient.read",
	"patient/Observation.read",
	"patient/Observation.write",
	"patient/QuestionnaireResponse.write",
	"patient/Condition.read",
	"patient/Condition.write",
	"patient/ServiceRequest.read",
	"patient/ServiceRequest.write",
	"patient/Goal.write",
	"patient/Procedure.write",
	"patient/Consent.write",
}

type Config struct {
	ClientID    string `koanf:"clientid"`
	RedirectURI string `koanf:"redirecturi"`
	Scope       string `koanf:"scope"`
}

func DefaultConfig() Config {
	return Config{
		Scope: strings.Join(scopes, " "),
	}
}

package coolfhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// ErrorWithCode is a wrapped error struct that can take an error message as well as an HTTP status code
type ErrorWithCode struct {
	Message    string
	StatusCode int
}

func (e ErrorWithCode) Error() string {
	return e.Message
}

// BadRequestError wraps an error with a status code of 400
func BadRequestError(err error) error {
	return &ErrorWithCode{
		Message:    err.Error(),
		StatusCode: http.StatusBadRequest,
	}
}

// BadRequest creates an error with a status code of 400
func BadRequest(msg string, args ...any) error {
	return BadRequestError(fmt.Errorf(msg, args...))
}

// WriteOperationOutcomeFromError writes an OperationOutcome based on the given error as HTTP response.
// OperationOutcomeError and ErrorWithCode carry their own status code, everything else defaults to 500.
func WriteOperationOutcomeFromError(err error, desc string, httpResponse http.ResponseWriter) {
	log.Error().Err(err).Msgf("%s failed", desc)

	statusCode := http.StatusInternalServerError
	var operationOutcome fhir.OperationOutcome

	var operationOutcomeErr = new(fhirclient.OperationOutcomeError)
	if errors.As(err, operationOutcomeErr) || errors.As(err, &operationOutcomeErr) {
		if operationOutcomeErr.HttpStatusCode > 0 {
			statusCode = operationOutcomeErr.HttpStatusCode
		}
		operationOutcome = operationOutcomeErr.OperationOutcome
	} else {
		var errorWithCode = new(ErrorWithCode)
		if errors.As(err, errorWithCode) || errors.As(err, &errorWithCode) {
			if errorWithCode.StatusCode > 0 {
				statusCode = errorWithCode.StatusCode
			}
		}
		diagnostics := http.StatusText(statusCode)
		if statusCode == http.StatusBadRequest {
			diagnostics = err.Error()
		}
		operationOutcome = fhir.OperationOutcome{
			Issue: []fhir.OperationOutcomeIssue{
				{
					Severity:    fhir.IssueSeverityError,
					Code:        fhir.IssueTypeProcessing,
					Diagnostics: to.Ptr(fmt.Sprintf("%s failed: %s", desc, diagnostics)),
				},
			},
		}
	}
	SendResponse(httpResponse, statusCode, operationOutcome)
}

// SendResponse writes the resource as a FHIR JSON response with the given status.
func SendResponse(httpResponse http.ResponseWriter, httpStatus int, resource any) {
	data, err := json.Marshal(resource)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		httpResponse.WriteHeader(http.StatusInternalServerError)
		return
	}
	httpResponse.Header().Set("Content-Type", fhirclient.FhirJsonMediaType)
	httpResponse.WriteHeader(httpStatus)
	_, _ = httpResponse.Write(data)
}

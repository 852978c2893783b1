// Package validation provides custom validation rules for vault inputs.
package validation

import (
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/connectkit/credvault/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// JSONObject validates that a string holds a JSON object. Credential payloads
// for ID/secret and session providers are stored as JSON documents; rejecting
// malformed input here keeps garbage out of the envelope.
var JSONObject = validation.NewStringRuleWithError(
	func(s string) bool {
		var object map[string]json.RawMessage
		return json.Unmarshal([]byte(s), &object) == nil
	},
	validation.NewError("validation_json_object", "must be a JSON object"),
)

package domain

import (
	"regexp"
	"strings"
)

// VIN structural format: 17 alphanumeric characters, excluding I, O, Q.
var vinRegex = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// VINLength is the fixed length of a road-vehicle VIN.
const VINLength = 17

// checkDigitWeights are the ISO 3779 per-position weights. Position 9 (the
// check digit itself) carries weight 0.
var checkDigitWeights = [VINLength]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// letterValues transliterates VIN letters to their checksum digit values.
// I, O, and Q have no value; they never appear in a valid VIN.
var letterValues = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
}

// Validation is the result of offline VIN validation. CheckDigit and
// CheckDigitValid are informational; a mismatched check digit does not by
// itself make IsValid false, since a few manufacturers have shipped VINs
// that fail the mod-11 check.
type Validation struct {
	IsValid         bool   `json:"isValid"`
	Error           string `json:"error,omitempty"`
	CheckDigit      string `json:"checkDigit,omitempty"`
	CheckDigitValid bool   `json:"checkDigitValid,omitempty"`
}

// Validate performs offline structural validation of a VIN. It is a pure
// function of the input string and performs no I/O.
//
// Partial input (fewer than 17 characters) is reported invalid with no error
// message, so callers can stay quiet while the user is still typing.
func Validate(input string) Validation {
	vin := strings.ToUpper(strings.TrimSpace(input))

	// I, O, and Q are excluded from the VIN alphabet to avoid confusion
	// with 1 and 0. Flag them at any position and any length.
	if strings.ContainsAny(vin, "IOQ") {
		return Validation{Error: ErrVINCharacters.Error()}
	}

	if len(vin) < VINLength {
		return Validation{}
	}
	if len(vin) > VINLength {
		return Validation{Error: ErrVINLength.Error()}
	}

	if !vinRegex.MatchString(vin) {
		return Validation{Error: ErrVINFormat.Error()}
	}

	expected := CheckDigit(vin)
	return Validation{
		IsValid:         true,
		CheckDigit:      expected,
		CheckDigitValid: expected == string(vin[8]),
	}
}

// CheckVIN is the strict variant used at service entry points: any input
// that is not a complete, structurally valid VIN yields a typed error.
func CheckVIN(input string) error {
	vin := strings.ToUpper(strings.TrimSpace(input))
	switch {
	case strings.ContainsAny(vin, "IOQ"):
		return NewValidationError("vin", input, ErrVINCharacters)
	case len(vin) != VINLength:
		return NewValidationError("vin", input, ErrVINLength)
	case !vinRegex.MatchString(vin):
		return NewValidationError("vin", input, ErrVINFormat)
	}
	return nil
}

// CheckDigit computes the expected position-9 check character of a 17-char
// VIN using the weighted mod-11 algorithm. A remainder of 10 renders as "X".
// The input must already be uppercase and pass the structural regex.
func CheckDigit(vin string) string {
	sum := 0
	for i := 0; i < VINLength; i++ {
		c := vin[i]
		var v int
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = letterValues[c]
		}
		sum += v * checkDigitWeights[i]
	}
	r := sum % 11
	if r == 10 {
		return "X"
	}
	return string(rune('0' + r))
}

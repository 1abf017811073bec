// Package phone formats phone numbers into the E.164 wire format.
package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// NumberFormatError reports a number that could not be parsed.
type NumberFormatError struct {
	Number string
	Err    error
}

func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("unparseable phone number %q: %v", e.Number, e.Err)
}

func (e *NumberFormatError) Unwrap() error { return e.Err }

// Normalize parses raw using countryCode as the default region and returns
// it in E.164 form.
func Normalize(raw, countryCode string) (string, error) {
	num, err := phonenumbers.Parse(raw, countryCode)
	if err != nil {
		return "", &NumberFormatError{Number: raw, Err: err}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

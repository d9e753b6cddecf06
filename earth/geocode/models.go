package geocode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample response: https://geocode.xyz/New%20York?json=1
//
//	{"standard":{"city":"New York","countryname":"United States",...},
//	 "longt":"-74.00597","latt":"40.71427","elevation":"", ...}
//
// A failed lookup carries an error object instead:
//
//	{"success":false,"error":{"code":"008","description":"..."}}
//
// Only latt, longt and error are read. Descriptive members such as "standard" are left
// undecoded since the service fills missing ones with {}.
type APIResponse struct {
	Latt  *NumericString  `json:"latt"`
	Longt *NumericString  `json:"longt"`
	Error json.RawMessage `json:"error,omitempty"`
}

// APIError is the body of the "error" member.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func (e APIError) String() string {
	msg := e.Description
	if msg == "" {
		msg = e.Message
	}
	if e.Code == "" {
		return msg
	}
	return fmt.Sprintf("%s (code %s)", msg, e.Code)
}

// HasError reports whether the response carries a non-null error member.
func (r *APIResponse) HasError() bool {
	trimmed := bytes.TrimSpace(r.Error)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// APIError decodes the error member. Unknown shapes are kept as raw text.
func (r *APIResponse) APIError() APIError {
	var e APIError
	if err := json.Unmarshal(r.Error, &e); err != nil {
		return APIError{Description: string(r.Error)}
	}
	return e
}

// NumericString holds a latitude or longitude. The service sends strings, but plain JSON
// numbers are accepted as well. The text is kept verbatim and parsed later.
type NumericString string

func (n *NumericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("latt/longt: expected string or number, got %s", b)
	}
	*n = NumericString(num)
	return nil
}

// Float parses the value. Empty, non-numeric and non-finite text is rejected.
func (n NumericString) Float() (float64, error) {
	s := strings.TrimSpace(string(n))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

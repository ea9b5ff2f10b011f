package telemetry

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// MaxDataLength is the size of the payload buffer, terminator included.
// A formatted payload is at most MaxDataLength-1 bytes.
const MaxDataLength = 20

// Reading is one temperature/humidity sample.
type Reading struct {
	Temperature float64   // degrees Celsius
	Humidity    float64   // percent relative humidity
	At          time.Time // when the humidity read completed
}

// FormatPayload renders r as "{T: %d, H: %d}".
//
// Values are truncated toward zero. Output longer than MaxDataLength-1
// bytes is cut at that length, so large readings lose the closing brace
// rather than overflow.
func FormatPayload(r Reading) []byte {
	s := fmt.Sprintf("{T: %d, H: %d}", int(r.Temperature), int(r.Humidity))
	if len(s) > MaxDataLength-1 {
		s = s[:MaxDataLength-1]
	}
	return []byte(s)
}

type jsonPayload struct {
	T  int    `json:"T"`
	H  int    `json:"H"`
	At string `json:"at,omitempty"`
}

// FormatJSONPayload renders r as JSON with the same integer truncation.
// It is not bounded by MaxDataLength.
func FormatJSONPayload(r Reading) ([]byte, error) {
	p := jsonPayload{
		T: int(r.Temperature),
		H: int(r.Humidity),
	}
	if !r.At.IsZero() {
		p.At = r.At.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}
	return data, nil
}

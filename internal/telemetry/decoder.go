package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldDelimiter separates fields in a telemetry message. Every field, including
// the last one, is followed by a delimiter.
const FieldDelimiter = ";"

// DecodeErrorKind classifies why a message was rejected.
type DecodeErrorKind int

const (
	KindMalformedField DecodeErrorKind = iota // Field is not a decimal number
	KindNonFinite                             // Field parsed to NaN or an infinity
)

func (k DecodeErrorKind) String() string {
	switch k {
	case KindMalformedField:
		return "malformed_field"
	case KindNonFinite:
		return "non_finite"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DecodeError reports the first field that prevented a message from decoding.
// A message that fails to decode produces no records at all.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field int    // Zero-based index of the offending field
	Text  string // Raw field text
	Err   error  // Underlying parse error, nil for KindNonFinite
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode field %d (%q): %s: %v", e.Field, e.Text, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode field %d (%q): %s", e.Field, e.Text, e.Kind)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a message of the form "x;y;vx;vy;x;y;vx;vy;...;" into a Frame.
//
// The segment after the final delimiter is discarded (it is empty for a well-formed
// message). Remaining fields are grouped in fours in (x, y, vx, vy) order; up to three
// dangling fields at the end are ignored and counted in Frame.Dropped.
// The decode is all-or-nothing: if any field fails to parse the returned Frame is empty.
func Decode(raw string) (Frame, error) {
	parts := strings.Split(raw, FieldDelimiter)
	parts = parts[:len(parts)-1] // Split always returns at least one element

	complete := len(parts) / FieldsPerRecord
	values := make([]float64, complete*FieldsPerRecord)
	for i := range values {
		text := strings.TrimSpace(parts[i])
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Frame{}, &DecodeError{Kind: KindMalformedField, Field: i, Text: parts[i], Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, &DecodeError{Kind: KindNonFinite, Field: i, Text: parts[i]}
		}
		values[i] = v
	}

	records := make([]EntityRecord, complete)
	for i := range records {
		base := i * FieldsPerRecord
		records[i] = EntityRecord{
			X:  values[base],
			Y:  values[base+1],
			VX: values[base+2],
			VY: values[base+3],
		}
	}

	return Frame{Records: records, Dropped: len(parts) - len(values)}, nil
}

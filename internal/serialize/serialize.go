// Package serialize converts native driver values into transport-safe scalar
// forms. Every pgx-returned type must be explicitly handled here — an
// unrecognized type is a typed error naming the offending column, never an
// implicit passthrough of an opaque value.
package serialize

import (
	"encoding/base64"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// UnsupportedTypeError is returned when a native value cannot be represented
// as a transport-safe scalar.
type UnsupportedTypeError struct {
	Column string
	GoType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("column %q has unsupported native type %s", e.Column, e.GoType)
}

// Row converts one native row into an ordered column-name → value map.
// columns and values must have equal length (as returned by pgx.Rows).
func Row(columns []string, values []any) (map[string]any, error) {
	row := make(map[string]any, len(columns))
	for i, col := range columns {
		v, err := Value(col, values[i])
		if err != nil {
			return nil, err
		}
		row[col] = v
	}
	return row, nil
}

// Value converts a single native value. Conversion rules:
//
//   - nil stays nil (JSON null) — never coerced to "" or 0
//   - temporal values become RFC 3339 strings (pgx returns time.Time in UTC
//     or with an explicit offset; no ambiguous local-time output)
//   - numeric (arbitrary precision) becomes an exact decimal string — a
//     float64 would lose precision at the margins
//   - bytea becomes base64, never raw bytes
//   - JSONB objects and arrays are converted recursively
func Value(column string, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, int16, int32, int64, uint32, string:
		return val, nil
	case float32:
		return finiteFloat(column, float64(val))
	case float64:
		return finiteFloat(column, val)
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case pgtype.Numeric:
		return numericString(val)
	case pgtype.Time:
		return timeOfDayString(val), nil
	case pgtype.Interval:
		return intervalString(val), nil
	case netip.Prefix:
		return val.String(), nil
	case net.HardwareAddr:
		return val.String(), nil
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16]), nil
	case []byte:
		// bytea — base64 encode, never pass through raw
		return base64.StdEncoding.EncodeToString(val), nil
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, inner := range val {
			converted, err := Value(column, inner)
			if err != nil {
				return nil, err
			}
			result[k] = converted
		}
		return result, nil
	case []any:
		result := make([]any, len(val))
		for i, inner := range val {
			converted, err := Value(column, inner)
			if err != nil {
				return nil, err
			}
			result[i] = converted
		}
		return result, nil
	default:
		return nil, &UnsupportedTypeError{Column: column, GoType: fmt.Sprintf("%T", v)}
	}
}

// finiteFloat returns the float as-is, or its string spelling for NaN and
// infinities — JSON has no representation for them.
func finiteFloat(column string, f float64) (any, error) {
	switch {
	case math.IsNaN(f):
		return "NaN", nil
	case math.IsInf(f, 1):
		return "Infinity", nil
	case math.IsInf(f, -1):
		return "-Infinity", nil
	}
	return f, nil
}

// numericString renders a pgtype.Numeric as an exact decimal string.
func numericString(val pgtype.Numeric) (any, error) {
	if !val.Valid {
		return nil, nil
	}
	if val.NaN {
		return "NaN", nil
	}
	if val.InfinityModifier == pgtype.Infinity {
		return "Infinity", nil
	}
	if val.InfinityModifier == pgtype.NegativeInfinity {
		return "-Infinity", nil
	}
	b, err := val.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to render numeric value: %w", err)
	}
	return string(b), nil
}

func timeOfDayString(val pgtype.Time) any {
	if !val.Valid {
		return nil
	}
	us := val.Microseconds
	hours := us / 3_600_000_000
	us -= hours * 3_600_000_000
	minutes := us / 60_000_000
	us -= minutes * 60_000_000
	seconds := us / 1_000_000
	us -= seconds * 1_000_000
	if us > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, us)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func intervalString(val pgtype.Interval) any {
	if !val.Valid {
		return nil
	}
	parts := []string{}
	if val.Months != 0 {
		years := val.Months / 12
		months := val.Months % 12
		if years != 0 {
			parts = append(parts, fmt.Sprintf("%d year(s)", years))
		}
		if months != 0 {
			parts = append(parts, fmt.Sprintf("%d mon(s)", months))
		}
	}
	if val.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d day(s)", val.Days))
	}
	if val.Microseconds != 0 {
		dur := time.Duration(val.Microseconds) * time.Microsecond
		parts = append(parts, dur.String())
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " ")
}

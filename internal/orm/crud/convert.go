package crud

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// textTimeLayouts are tried in order when a driver returns a timestamp as
// text, which go-sql-driver/mysql does unless parseTime is set.
var textTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Convert converts a raw driver value into the Go type of a field kind.
// raw must not be nil; NULL handling belongs to the caller.
func Convert(raw any, t schema.FieldType) (any, error) {
	switch t {
	case schema.TypeBool:
		return toBool(raw)
	case schema.TypeInt:
		v, err := toInt(raw, strconv.IntSize)
		return int(v), err
	case schema.TypeInt8:
		v, err := toInt(raw, 8)
		return int8(v), err
	case schema.TypeInt16:
		v, err := toInt(raw, 16)
		return int16(v), err
	case schema.TypeInt32:
		v, err := toInt(raw, 32)
		return int32(v), err
	case schema.TypeInt64:
		return toInt(raw, 64)
	case schema.TypeUint:
		v, err := toUint(raw, strconv.IntSize)
		return uint(v), err
	case schema.TypeUint32:
		v, err := toUint(raw, 32)
		return uint32(v), err
	case schema.TypeUint64:
		return toUint(raw, 64)
	case schema.TypeFloat32:
		v, err := toFloat(raw, 32)
		return float32(v), err
	case schema.TypeFloat64:
		return toFloat(raw, 64)
	case schema.TypeString:
		return toString(raw)
	case schema.TypeBytes:
		return toBytes(raw)
	case schema.TypeUUID:
		return toUUID(raw)
	case schema.TypeTimestamp:
		return toTime(raw)
	case schema.TypeDate:
		v, err := toTime(raw)
		if err != nil {
			return v, err
		}
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, v.Location()), nil
	case schema.TypeDecimal:
		return toDecimal(raw)
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		// TINYINT(1)
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("cannot convert %T to bool", raw)
}

func toInt(raw any, bits int) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int%d", v, bits)
		}
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		n = int64(v)
	case []byte:
		return strconv.ParseInt(string(v), 10, bits)
	case string:
		return strconv.ParseInt(v, 10, bits)
	default:
		return 0, fmt.Errorf("cannot convert %T to int%d", raw, bits)
	}

	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if n < lo || n > hi {
			return 0, fmt.Errorf("value %d overflows int%d", n, bits)
		}
	}
	return n, nil
}

func toUint(raw any, bits int) (uint64, error) {
	var n uint64
	switch v := raw.(type) {
	case uint64:
		n = v
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d for uint%d", v, bits)
		}
		n = uint64(v)
	case []byte:
		return strconv.ParseUint(string(v), 10, bits)
	case string:
		return strconv.ParseUint(v, 10, bits)
	default:
		return 0, fmt.Errorf("cannot convert %T to uint%d", raw, bits)
	}

	if bits < 64 && n > uint64(1)<<bits-1 {
		return 0, fmt.Errorf("value %d overflows uint%d", n, bits)
	}
	return n, nil
}

func toFloat(raw any, bits int) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), bits)
	case string:
		return strconv.ParseFloat(v, bits)
	}
	return 0, fmt.Errorf("cannot convert %T to float%d", raw, bits)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", raw)
}

func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("cannot convert %T to bytes", raw)
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, fmt.Errorf("cannot convert %T to uuid", raw)
}

func toTime(raw any) (time.Time, error) {
	var s string
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", raw)
	}

	s = strings.TrimSpace(s)
	for _, layout := range textTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return decimal.Zero, fmt.Errorf("cannot convert %T to decimal", raw)
}

package relational

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/xmldbms/internal/errs"
)

// Formatter converts between the text found in a document and the Go value
// bound to a column parameter.
type Formatter interface {
	// Parse converts s into a value suitable for a column of type t.
	Parse(s string, t SQLType) (any, error)

	// Format converts a value read from a column into document text.
	Format(v any) (string, error)

	// CanConvert reports whether the formatter handles columns of type t.
	CanConvert(t SQLType) bool
}

// CharFormatter passes strings through unchanged.
type CharFormatter struct{}

func (CharFormatter) Parse(s string, _ SQLType) (any, error) { return s, nil }

func (CharFormatter) Format(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return fmt.Sprint(x), nil
	}
}

func (CharFormatter) CanConvert(t SQLType) bool { return t.IsCharacter() || t == TypeOther }

// NumberFormatter handles integer and decimal types. Exact numerics are
// parsed into *big.Rat so that no precision is lost before the driver sees
// the value.
type NumberFormatter struct{}

func (NumberFormatter) Parse(s string, t SQLType) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case TypeBit, TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("not an integer: %q", s), err)
		}
		return n, nil
	case TypeFloat, TypeReal, TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("not a number: %q", s), err)
		}
		return f, nil
	case TypeNumeric, TypeDecimal:
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "not a decimal: %q", s)
		}
		return r, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "number formatter cannot parse %s", t)
}

func (NumberFormatter) Format(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case *big.Rat:
		if x.IsInt() {
			return x.Num().String(), nil
		}
		return x.FloatString(decimalDigits(x)), nil
	case string:
		return x, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "number formatter cannot format %T", v)
}

func (NumberFormatter) CanConvert(t SQLType) bool { return t.IsNumeric() }

// decimalDigits returns the number of fractional digits needed to print r
// exactly, capped for non-terminating fractions.
func decimalDigits(r *big.Rat) int {
	const limit = 38
	d := new(big.Int).Set(r.Denom())
	ten := big.NewInt(10)
	zero := big.NewInt(0)
	rem := new(big.Int)
	for n := 0; n < limit; n++ {
		if d.Cmp(big.NewInt(1)) == 0 {
			return n
		}
		// strip factors of 2 and 5 one decimal digit at a time
		switch {
		case rem.Mod(d, ten).Cmp(zero) == 0:
			d.Div(d, ten)
		case rem.Mod(d, big.NewInt(2)).Cmp(zero) == 0:
			d.Div(d, big.NewInt(2))
		case rem.Mod(d, big.NewInt(5)).Cmp(zero) == 0:
			d.Div(d, big.NewInt(5))
		default:
			return limit
		}
	}
	return limit
}

// BooleanFormatter maps document text to booleans. Empty True/False fall
// back to "true"/"false".
type BooleanFormatter struct {
	True  string
	False string
}

func (f BooleanFormatter) words() (string, string) {
	t, fl := f.True, f.False
	if t == "" {
		t = "true"
	}
	if fl == "" {
		fl = "false"
	}
	return t, fl
}

func (f BooleanFormatter) Parse(s string, _ SQLType) (any, error) {
	t, fl := f.words()
	switch strings.TrimSpace(s) {
	case t:
		return true, nil
	case fl:
		return false, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "not a boolean: %q", s)
}

func (f BooleanFormatter) Format(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "boolean formatter cannot format %T", v)
	}
	t, fl := f.words()
	if b {
		return t, nil
	}
	return fl, nil
}

func (BooleanFormatter) CanConvert(t SQLType) bool { return t == TypeBoolean || t == TypeBit }

// DateTimeFormatter uses a time layout for DATE, TIME and TIMESTAMP values.
type DateTimeFormatter struct {
	Layout string
}

func (f DateTimeFormatter) Parse(s string, _ SQLType) (any, error) {
	ts, err := time.Parse(f.Layout, strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("not a date/time in layout %q", f.Layout), err)
	}
	return ts, nil
}

func (f DateTimeFormatter) Format(v any) (string, error) {
	ts, ok := v.(time.Time)
	if !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "date/time formatter cannot format %T", v)
	}
	return ts.Format(f.Layout), nil
}

func (DateTimeFormatter) CanConvert(t SQLType) bool { return t.IsDateTime() }

// Base64Formatter carries binary column values as base64 text.
type Base64Formatter struct{}

func (Base64Formatter) Parse(s string, _ SQLType) (any, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid base64", err)
	}
	return b, nil
}

func (Base64Formatter) Format(v any) (string, error) {
	b, ok := v.([]byte)
	if !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "base64 formatter cannot format %T", v)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (Base64Formatter) CanConvert(t SQLType) bool { return t.IsBinary() }

// DefaultFormatter returns the built-in formatter for t.
func DefaultFormatter(t SQLType) Formatter {
	switch {
	case t.IsNumeric() && t != TypeBit:
		return NumberFormatter{}
	case t == TypeBoolean || t == TypeBit:
		return BooleanFormatter{}
	case t == TypeDate:
		return DateTimeFormatter{Layout: time.DateOnly}
	case t == TypeTime:
		return DateTimeFormatter{Layout: time.TimeOnly}
	case t == TypeTimestamp:
		return DateTimeFormatter{Layout: time.RFC3339}
	case t.IsBinary():
		return Base64Formatter{}
	default:
		return CharFormatter{}
	}
}

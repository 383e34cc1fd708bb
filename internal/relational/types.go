package relational

import "strings"

// SQLType is a JDBC-style SQL type code. The numeric values match
// java.sql.Types so that type catalogs reported by drivers and map files
// written for other tools line up.
type SQLType int

const (
	TypeUnknown       SQLType = 0 // also JDBC NULL; means "not set"
	TypeBit           SQLType = -7
	TypeTinyInt       SQLType = -6
	TypeSmallInt      SQLType = 5
	TypeInteger       SQLType = 4
	TypeBigInt        SQLType = -5
	TypeFloat         SQLType = 6
	TypeReal          SQLType = 7
	TypeDouble        SQLType = 8
	TypeNumeric       SQLType = 2
	TypeDecimal       SQLType = 3
	TypeChar          SQLType = 1
	TypeVarChar       SQLType = 12
	TypeLongVarChar   SQLType = -1
	TypeDate          SQLType = 91
	TypeTime          SQLType = 92
	TypeTimestamp     SQLType = 93
	TypeBinary        SQLType = -2
	TypeVarBinary     SQLType = -3
	TypeLongVarBinary SQLType = -4
	TypeBoolean       SQLType = 16
	TypeBlob          SQLType = 2004
	TypeClob          SQLType = 2005
	TypeOther         SQLType = 1111
)

var typeNames = map[SQLType]string{
	TypeBit:           "BIT",
	TypeTinyInt:       "TINYINT",
	TypeSmallInt:      "SMALLINT",
	TypeInteger:       "INTEGER",
	TypeBigInt:        "BIGINT",
	TypeFloat:         "FLOAT",
	TypeReal:          "REAL",
	TypeDouble:        "DOUBLE",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeChar:          "CHAR",
	TypeVarChar:       "VARCHAR",
	TypeLongVarChar:   "LONGVARCHAR",
	TypeDate:          "DATE",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
	TypeBinary:        "BINARY",
	TypeVarBinary:     "VARBINARY",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeBoolean:       "BOOLEAN",
	TypeBlob:          "BLOB",
	TypeClob:          "CLOB",
	TypeOther:         "OTHER",
}

var typesByName map[string]SQLType

func init() {
	typesByName = make(map[string]SQLType, len(typeNames))
	for t, n := range typeNames {
		typesByName[n] = t
	}
	typesByName["INT"] = TypeInteger
	typesByName["DOUBLE PRECISION"] = TypeDouble
}

// String returns the standard SQL name of the type, or "UNKNOWN".
func (t SQLType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// IsSet reports whether t names a concrete type.
func (t SQLType) IsSet() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseSQLType looks up a standard type name, case-insensitively.
func ParseSQLType(name string) (SQLType, bool) {
	t, ok := typesByName[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}

// AllSQLTypes returns every named type code.
func AllSQLTypes() []SQLType {
	out := make([]SQLType, 0, len(typeNames))
	for t := range typeNames {
		out = append(out, t)
	}
	return out
}

// IsNumeric reports whether values of t are numbers.
func (t SQLType) IsNumeric() bool {
	switch t {
	case TypeBit, TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt,
		TypeFloat, TypeReal, TypeDouble, TypeNumeric, TypeDecimal:
		return true
	}
	return false
}

// IsCharacter reports whether values of t are character strings.
func (t SQLType) IsCharacter() bool {
	switch t {
	case TypeChar, TypeVarChar, TypeLongVarChar, TypeClob:
		return true
	}
	return false
}

// IsBinary reports whether values of t are byte strings.
func (t SQLType) IsBinary() bool {
	switch t {
	case TypeBinary, TypeVarBinary, TypeLongVarBinary, TypeBlob:
		return true
	}
	return false
}

// IsDateTime reports whether values of t are dates, times or timestamps.
func (t SQLType) IsDateTime() bool {
	return t == TypeDate || t == TypeTime || t == TypeTimestamp
}

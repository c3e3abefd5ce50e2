package param

import (
	"fmt"
	"strings"
)

// DBType is the engine scalar type of a parameter. Values match SQL Server's
// SqlDbType enumeration so codes stored elsewhere stay interchangeable.
type DBType int

const (
	BigInt           DBType = 0
	Binary           DBType = 1
	Bit              DBType = 2
	Char             DBType = 3
	DateTime         DBType = 4
	Decimal          DBType = 5
	Float            DBType = 6
	Image            DBType = 7
	Int              DBType = 8
	Money            DBType = 9
	NChar            DBType = 10
	NText            DBType = 11
	NVarChar         DBType = 12
	Real             DBType = 13
	UniqueIdentifier DBType = 14
	SmallDateTime    DBType = 15
	SmallInt         DBType = 16
	SmallMoney       DBType = 17
	Text             DBType = 18
	Timestamp        DBType = 19
	TinyInt          DBType = 20
	VarBinary        DBType = 21
	VarChar          DBType = 22
	Variant          DBType = 23
	Xml              DBType = 25
	Udt              DBType = 29
	Structured       DBType = 30
	Date             DBType = 31
	Time             DBType = 32
	DateTime2        DBType = 33
	DateTimeOffset   DBType = 34
)

var typeNames = map[DBType]string{
	BigInt: "BigInt", Binary: "Binary", Bit: "Bit", Char: "Char",
	DateTime: "DateTime", Decimal: "Decimal", Float: "Float", Image: "Image",
	Int: "Int", Money: "Money", NChar: "NChar", NText: "NText",
	NVarChar: "NVarChar", Real: "Real", UniqueIdentifier: "UniqueIdentifier",
	SmallDateTime: "SmallDateTime", SmallInt: "SmallInt", SmallMoney: "SmallMoney",
	Text: "Text", Timestamp: "Timestamp", TinyInt: "TinyInt", VarBinary: "VarBinary",
	VarChar: "VarChar", Variant: "Variant", Xml: "Xml", Udt: "Udt",
	Structured: "Structured", Date: "Date", Time: "Time", DateTime2: "DateTime2",
	DateTimeOffset: "DateTimeOffset",
}

func (t DBType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DBType(%d)", int(t))
}

// ParseDBType resolves a type name case-insensitively.
func ParseDBType(name string) (DBType, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return Variant, fmt.Errorf("unknown parameter type %q", name)
}

// class groups type codes that share a Go representation.
type class int

const (
	classOther class = iota
	classInt
	classBool
	classFloat
	classDecimal
	classUUID
	classString
	classBytes
	classTime
)

func (t DBType) class() class {
	switch t {
	case BigInt, Int, SmallInt, TinyInt:
		return classInt
	case Bit:
		return classBool
	case Float, Real:
		return classFloat
	case Decimal, Money, SmallMoney:
		return classDecimal
	case UniqueIdentifier:
		return classUUID
	case Char, NChar, NText, NVarChar, Text, VarChar, Xml:
		return classString
	case Binary, Image, Timestamp, VarBinary:
		return classBytes
	case DateTime, SmallDateTime, Date, Time, DateTime2, DateTimeOffset:
		return classTime
	default:
		return classOther
	}
}

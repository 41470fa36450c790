package obd

import (
	"strings"
)

// MeasurementType is the unit category of a logged signal, derived from the
// unit annotation in its column header.
//
// The numeric values are persisted in the log_data table and must not be
// reordered. Unknown is the fallback for headers without a recognised
// annotation.
type MeasurementType int

// Measurement types, one per recognised unit annotation.
const (
	Deg        MeasurementType = iota // (deg)
	Mph                               // (MPH)
	Mpg                               // (MPG)
	GalPerHr                          // (gal/hr)
	LbPerMile                         // (lb/mile)
	Lbs                               // (lbs)
	LbPerMin                          // (lb/min)
	FtPerSecSq                        // (ft/s²)
	DegPerSec                         // (deg/s)
	MicroTesla                        // (µT)
	Percent                           // (%)
	DegF                              // (°F)
	InHg                              // (inHg)
	RPM                               // (RPM)
	Volts                             // (V)
	Seconds                           // (sec)
	Miles                             // (miles)
	InH2O                             // (inH2O)
	MilliAmps                         // (mA)
	PSI                               // (psi)
	Horsepower                        // (hp)
	LbFt                              // (lb•ft)
	Gallons                           // (gal)
	Minutes                           // (min)
	Feet                              // (ft)
	Unknown
)

// unitAnnotation binds a header annotation to its type.
type unitAnnotation struct {
	token string
	typ   MeasurementType
}

// unitAnnotations is checked in order and the first contained token wins.
//
// Tokens include both parentheses, so "(ft)" cannot match inside "(ft/s²)"
// and "(deg)" cannot match inside "(deg/s)". Order only decides headers
// that carry more than one annotation.
var unitAnnotations = []unitAnnotation{
	{"(deg)", Deg},
	{"(MPH)", Mph},
	{"(MPG)", Mpg},
	{"(gal/hr)", GalPerHr},
	{"(lb/mile)", LbPerMile},
	{"(lbs)", Lbs},
	{"(lb/min)", LbPerMin},
	{"(ft/s²)", FtPerSecSq},
	{"(deg/s)", DegPerSec},
	{"(µT)", MicroTesla},
	{"(%)", Percent},
	{"(°F)", DegF},
	{"(inHg)", InHg},
	{"(RPM)", RPM},
	{"(V)", Volts},
	{"(sec)", Seconds},
	{"(miles)", Miles},
	{"(inH2O)", InH2O},
	{"(mA)", MilliAmps},
	{"(psi)", PSI},
	{"(hp)", Horsepower},
	{"(lb•ft)", LbFt},
	{"(gal)", Gallons},
	{"(min)", Minutes},
	{"(ft)", Feet},
}

// typeTags are the stable lowercase names used in logs, MQTT payloads and
// InfluxDB tags.
var typeTags = map[MeasurementType]string{
	Deg:        "deg",
	Mph:        "mph",
	Mpg:        "mpg",
	GalPerHr:   "gal_per_hr",
	LbPerMile:  "lb_per_mile",
	Lbs:        "lbs",
	LbPerMin:   "lb_per_min",
	FtPerSecSq: "ft_per_s2",
	DegPerSec:  "deg_per_s",
	MicroTesla: "micro_tesla",
	Percent:    "percent",
	DegF:       "deg_f",
	InHg:       "in_hg",
	RPM:        "rpm",
	Volts:      "volts",
	Seconds:    "seconds",
	Miles:      "miles",
	InH2O:      "in_h2o",
	MilliAmps:  "milliamps",
	PSI:        "psi",
	Horsepower: "horsepower",
	LbFt:       "lb_ft",
	Gallons:    "gallons",
	Minutes:    "minutes",
	Feet:       "feet",
	Unknown:    "unknown",
}

// AllMeasurementTypes returns every type in ordinal order, Unknown last.
func AllMeasurementTypes() []MeasurementType {
	types := make([]MeasurementType, 0, int(Unknown)+1)
	for t := Deg; t <= Unknown; t++ {
		types = append(types, t)
	}
	return types
}

// String returns the lowercase tag for the type.
func (t MeasurementType) String() string {
	if tag, ok := typeTags[t]; ok {
		return tag
	}
	return typeTags[Unknown]
}

// Valid reports whether t is one of the declared constants.
func (t MeasurementType) Valid() bool {
	return t >= Deg && t <= Unknown
}

// Unit returns the bare unit text as it appears in headers (e.g. "MPH",
// "°F"), or "" for Unknown.
func (t MeasurementType) Unit() string {
	for _, a := range unitAnnotations {
		if a.typ == t {
			return strings.TrimSuffix(strings.TrimPrefix(a.token, "("), ")")
		}
	}
	return ""
}

// ParseMeasurementType maps a tag produced by String back to its type.
// Unrecognised tags yield Unknown and false.
func ParseMeasurementType(tag string) (MeasurementType, bool) {
	for t, s := range typeTags {
		if s == tag {
			return t, true
		}
	}
	return Unknown, false
}

// Classify derives the display name and measurement type from a column
// header such as "Vehicle speed (MPH)".
//
// When an annotation matches, the name is everything before the last "(",
// trimmed. When none matches, the type is Unknown and the header is
// returned untouched. Classify is pure and never fails.
func Classify(header string) (string, MeasurementType) {
	t := classifyType(header)
	if t == Unknown {
		return header, Unknown
	}

	name := header
	if idx := strings.LastIndex(header, "("); idx != -1 {
		name = strings.TrimSpace(header[:idx])
	}
	return name, t
}

// classifyType returns the type of the first annotation contained in header.
func classifyType(header string) MeasurementType {
	for _, a := range unitAnnotations {
		if strings.Contains(header, a.token) {
			return a.typ
		}
	}
	return Unknown
}

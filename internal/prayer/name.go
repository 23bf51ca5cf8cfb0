package prayer

import "fmt"

// Name identifies one of the six daily prayer times.
type Name string

const (
	Fajr    Name = "Fajr"
	Sunrise Name = "Sunrise"
	Dhuhr   Name = "Dhuhr"
	Asr     Name = "Asr"
	Maghrib Name = "Maghrib"
	Isha    Name = "Isha"
)

// Names lists the prayers in the order they occur during a day.
var Names = []Name{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// ShortNames maps prayer names to single-character abbreviations.
var ShortNames = map[Name]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
}

// Valid reports whether n is one of the six known prayers.
func (n Name) Valid() bool {
	_, ok := ShortNames[n]
	return ok
}

// ParseName converts a canonical name such as "Maghrib" into a Name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown prayer name: %s", s)
	}
	return n, nil
}

// Labels maps prayer names to display labels. Missing entries fall back to
// the canonical name.
type Labels map[Name]string

// DefaultLabels returns the Turkish labels used by Diyanet.
func DefaultLabels() Labels {
	return Labels{
		Fajr:    "İmsak",
		Sunrise: "Güneş",
		Dhuhr:   "Öğle",
		Asr:     "İkindi",
		Maghrib: "Akşam",
		Isha:    "Yatsı",
	}
}

// RamadanLabels returns DefaultLabels with Maghrib shown as İftar and Isha
// as Teravih.
func RamadanLabels() Labels {
	l := DefaultLabels()
	l[Maghrib] = "İftar"
	l[Isha] = "Teravih"
	return l
}

// LabelsFor picks the label set for the given Ramadan mode flag.
func LabelsFor(ramadan bool) Labels {
	if ramadan {
		return RamadanLabels()
	}
	return DefaultLabels()
}

// Label returns the display label for n.
func (l Labels) Label(n Name) string {
	if s, ok := l[n]; ok && s != "" {
		return s
	}
	return string(n)
}

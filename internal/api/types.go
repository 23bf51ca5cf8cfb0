package api

// Response is the envelope returned by the Al Adhan timings endpoints.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Day    `json:"data"`
}

// Day is one calendar day of raw timings as reported by the time source.
type Day struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings holds the raw "HH:MM" strings. The API appends a zone label such
// as " (+03)" on some deployments; the normalizer strips it.
type Timings struct {
	Imsak   string `json:"Imsak"`
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// DateInfo carries the human readable Gregorian and Hijri dates.
type DateInfo struct {
	Readable  string        `json:"readable"`
	Timestamp string        `json:"timestamp"`
	Hijri     HijriDate     `json:"hijri"`
	Gregorian GregorianDate `json:"gregorian"`
}

// HijriDate is the Hijri calendar date, e.g. "14 Ramaḍān 1447".
type HijriDate struct {
	Date  string     `json:"date"`
	Day   string     `json:"day"`
	Month HijriMonth `json:"month"`
	Year  string     `json:"year"`
}

// HijriMonth names a Hijri month.
type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
	Ar     string `json:"ar"`
}

// IsRamadan reports whether the date falls in the ninth Hijri month.
func (h HijriDate) IsRamadan() bool {
	return h.Month.Number == 9
}

// Format returns "DD Month YYYY AH", or "" when the API omitted the date.
func (h HijriDate) Format() string {
	if h.Day == "" || h.Month.En == "" || h.Year == "" {
		return ""
	}
	return h.Day + " " + h.Month.En + " " + h.Year + " AH"
}

// GregorianDate is the civil date echoed back by the API.
type GregorianDate struct {
	Date    string `json:"date"` // DD-MM-YYYY
	Day     string `json:"day"`
	Weekday struct {
		En string `json:"en"`
	} `json:"weekday"`
	Month struct {
		Number int    `json:"number"`
		En     string `json:"en"`
	} `json:"month"`
	Year string `json:"year"`
}

// Meta describes how the timings were computed.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

// MethodInfo identifies the calculation method.
type MethodInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

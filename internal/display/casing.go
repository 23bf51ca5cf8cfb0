package display

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Upper upper-cases s with Turkish rules, so "İmsak" and "ikindi" become
// "İMSAK" and "İKİNDİ" rather than "IKINDI".
func Upper(s string) string {
	return cases.Upper(language.Turkish).String(s)
}

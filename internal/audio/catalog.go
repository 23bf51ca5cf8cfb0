package audio

// Sound is an alert sound shipped as a WAV file in the sounds directory.
type Sound struct {
	ID   string
	Name string
	File string
}

// Catalog lists the selectable alert sounds. The first entry is the
// fallback for unknown ids.
var Catalog = []Sound{
	{ID: "beep", Name: "Bip Sesi", File: "beep.wav"},
	{ID: "chime", Name: "Zil Sesi", File: "chime.wav"},
	{ID: "bird", Name: "Kuş Sesi", File: "bird.wav"},
	{ID: "water", Name: "Su Sesi", File: "water.wav"},
	{ID: "adhan_makkah", Name: "Ezan (Mekke)", File: "adhan_makkah.wav"},
	{ID: "adhan_sabah", Name: "Sabah Ezanı", File: "adhan_madina.wav"},
}

// Lookup returns the sound for id, or the first catalog entry and false.
func Lookup(id string) (Sound, bool) {
	for _, s := range Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Catalog[0], false
}

package prayer

import "testing"

func TestShortNames_AllPrayers(t *testing.T) {
	for _, name := range Names {
		if _, ok := ShortNames[name]; !ok {
			t.Errorf("ShortNames missing entry for prayer %q", name)
		}
	}
}

func TestParseName(t *testing.T) {
	if n, err := ParseName("Maghrib"); err != nil || n != Maghrib {
		t.Errorf("ParseName(Maghrib) = %q, %v", n, err)
	}
	if _, err := ParseName("Tahajjud"); err == nil {
		t.Error("expected error for unknown prayer")
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels Labels
		prayer Name
		want   string
	}{
		{"default maghrib", DefaultLabels(), Maghrib, "Akşam"},
		{"ramadan maghrib", RamadanLabels(), Maghrib, "İftar"},
		{"ramadan isha", RamadanLabels(), Isha, "Teravih"},
		{"ramadan keeps fajr", RamadanLabels(), Fajr, "İmsak"},
		{"nil labels fall back", nil, Asr, "Asr"},
		{"empty label falls back", Labels{Asr: ""}, Asr, "Asr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.labels.Label(tt.prayer); got != tt.want {
				t.Errorf("Label(%s) = %q, want %q", tt.prayer, got, tt.want)
			}
		})
	}
}

func TestLabelsFor(t *testing.T) {
	if LabelsFor(true).Label(Maghrib) != "İftar" {
		t.Error("LabelsFor(true) should use Ramadan labels")
	}
	if LabelsFor(false).Label(Maghrib) != "Akşam" {
		t.Error("LabelsFor(false) should use default labels")
	}
}

// Package hadith picks the hadith of the day shown under the schedule.
package hadith

import "time"

// Hadith is a short narration with its collection reference.
type Hadith struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

var all = []Hadith{
	{"Buhârî, Îmân 1", "Ameller niyetlere göredir. Herkes sadece niyet ettiğinin karşılığını alır."},
	{"Müslim, Îmân 106", "Din kolaylıktır. Dini aşmak isteyen kimse, ona yenik düşer. O halde orta yolu tutun, en iyiyi yapmaya çalışın."},
	{"Buhârî, Edeb 18", "Sizin en hayırlınız, ahlakı en güzel olanınızdır."},
	{"Tirmizî, Zühd 11", "Tebessüm sadakadır."},
	{"Buhârî, Savm 9", "Oruç bir kalkandır."},
	{"Müslim, Sıyâm 163", "Ramazan ayı girdiğinde cennet kapıları açılır, cehennem kapıları kapanır ve şeytanlar zincire vurulur."},
	{"Buhârî, Bed’ü’l-vahy 1", "Kolaylaştırınız, güçleştirmeyiniz; müjdeleyiniz, nefret ettirmeyiniz."},
	{"Müslim, Birr 103", "Mümin, bir delikten iki defa ısırılmaz (aynı hataya iki kez düşmez)."},
	{"Buhârî, Rikâk 10", "İki nimet vardır ki insanların çoğu onların kıymetini bilmez: Sağlık ve boş vakit."},
	{"Tirmizî, Birr 55", "Merhamet etmeyene merhamet olunmaz."},
	{"İbn Mâce, Mukaddime 9", "Temizlik imanın yarısıdır."},
	{"Buhârî, İstikraz 2", "Veren el, alan elden üstündür."},
}

// ForDay returns the hadith for t's day of the year, so the text changes
// once a day and repeats yearly.
func ForDay(t time.Time) Hadith {
	return all[t.YearDay()%len(all)]
}

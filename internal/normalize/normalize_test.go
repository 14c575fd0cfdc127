package normalize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var normalizeCases = []struct {
	name string
	raw  string
	want string
}{
	{"empty", "", ""},
	{"grams trailing bare", "Τυρί 200Γ", "τυρί 200 γραμμάρια "},
	{"grams abbreviation with dot", "ΤΥΡΙ ΦΕΤΑ 400ΓΡ. ΒΑΚΙ", "τυρι φετα 400 γραμμάρια βακι"},
	{"grams trailing abbreviation", "ΦΕΤΑ 400ΓΡ", "φετα 400 γραμμάρια "},
	{"grams lower abbreviation", "ΚΑΦΕ 250γρ ΑΛΕΣΜΕΝΟ", "καφε 250 γραμμάρια αλεσμενο"},
	{"grams gate not met", "ΚΑΦΕ 250 γρ. ΑΛΕΣΜΕΝΟ", "καφε 250 γρ. αλεσμενο"},
	{"grams mixed case abbreviation", "Τυρί 200Γρ.", "τυρί 200 γραμμάρια "},
	{"grams mixed case inner", "ΦΕΤΑ 400Γρ ΒΑΚΙ", "φετα 400 γραμμάρια βακι"},
	{"grams group gated once", "ΦΕΤΑ 400ΓΡ. ΜΕΓ", "φετα 400 γραμμάρια με γραμμάρια "},
	{"grams dot is literal", "ΧΥΜΟ 1Γ ΓΡΑΝΑΔΑ", "χυμο 1γ γραναδα"},
	{"millilitres latin", "ΑΝΑΨΥΚΤΙΚΟ 500ML", "αναψυκτικο 500ml"},
	{"millilitres greek mu", "ΓΑΛΑ 500ΜL", "γαλα 500ml"},
	{"litres", "ΚΡΑΣΙ 1.5LT.", "κρασι 1.5 λίτρα "},
	{"litres lower case", "ΚΡΑΣΙ 5 lt.", "κρασι 5 λίτρα "},
	{"litres inside word", "ΑΛΑΤΙ SALT.", "αλατι salt."},
	{"one litre", "Γάλα 1L", "γάλα 1 λίτρο "},
	{"one litre after digit", "ΝΕΡΟ 11L", "νερο 11l"},
	{"one litre after decimal", "ΝΕΡΟ 1.1L", "νερο 1.1l"},
	{"pieces", "ΜΠΙΣΚΟΤΑ 12ΤΕΜ.", "μπισκοτα 12 τεμάχια "},
	{"pieces mixed case", "Μπισκότα 12Τεμ.", "μπισκότα 12 τεμάχια "},
	{"pieces trailing", "ΑΥΓΑ 6τεμ", "αυγα 6 τεμάχια "},
	{"pieces gate not met", "ΤΕΜ. ΜΠΙΣΚΟΤΑ", "τεμ. μπισκοτα"},
	{"brand", "MrGrand. ΚΑΡΑΜΕΛΑ", "mr. grand καραμελα"},
	{"gluten free joined", "ΨΩΜΙ ΧΓΛΟΥΤΕΝΗ", "ψωμι xωρίς γλουτένη"},
	{"gluten free short", "ΚΡΙΤΣΙΝΙΑ ΧΓΛ", "κριτσινια xωρίς γλουτένη"},
	{"gluten free spelled", "ΜΠΙΣΚΟΤΑ ΧΩΡ ΓΛΟΥΤΕΝΗ", "μπισκοτα xωρίς γλουτένη"},
	{"sugar free", "ΣΟΚΟΛΑΤΑ Χ ΖΑΧ", "σοκολατα xωρίς ζάχαρη"},
	{"gift", "ΣΑΜΠΟΥΑΝ ΔΩΡ ΑΦΡΟΛΟΥΤΡΟ", "σαμπουαν δώρο αφρολουτρο"},
	{"sachet", "ΤΣΑΙ ΒΟΥΝΟΥ ΦΑΚ 20", "τσαι βουνου φακελάκι 20"},
	{"euro", "ΠΡΟΣΦΟΡΑ 2€", "προσφορα 2 ευρώ "},
	{"double quotes", `ΧΥΜΟ "ΑΜΙΤΑ"`, `χυμο 'αμιτα'`},
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	for _, tt := range normalizeCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	for _, tt := range normalizeCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			once := Normalize(tt.raw)
			assert.Equal(t, once, Normalize(once))
		})
	}
}

func TestNormalizeNeverEmitsDoubleQuote(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`"`, `""ΔΩΡ""`, `12" ΟΘΟΝΗ`, `MrGrand."`} {
		assert.NotContains(t, Normalize(raw), `"`, raw)
	}
}

func TestNormalizeConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Equal(t, "τυρί 200 γραμμάρια ", Normalize("Τυρί 200Γ"))
			}
		}()
	}
	wg.Wait()
}

// Package normalize rewrites raw product descriptions from the store's
// point-of-sale exports into readable, lower-cased, unit-annotated labels.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// rule is one substitution.
type rule struct {
	name    string
	pattern *regexp.Regexp
	repl    string
	literal bool
}

func (r *rule) apply(s string) string {
	if r.literal {
		return r.pattern.ReplaceAllLiteralString(s, r.repl)
	}
	return r.pattern.ReplaceAllString(s, r.repl)
}

// group is an ordered run of rules. When gate is set it is tested once on the
// label as the group receives it; a match applies every rule of the group.
type group struct {
	gate  *regexp.Regexp
	rules []rule
}

func (g *group) apply(s string) string {
	if g.gate != nil && !g.gate.MatchString(s) {
		return s
	}
	for i := range g.rules {
		s = g.rules[i].apply(s)
	}
	return s
}

const (
	grams      = " Γραμμάρια "
	pieces     = " Τεμάχια "
	litres     = " Λίτρα "
	glutenFree = "xωρίς γλουτένη"
	sugarFree  = "xωρίς ζάχαρη"
)

var multiSpace = regexp.MustCompile(` {2,}`)

func literal(name, pattern, repl string) rule {
	return rule{name: name, pattern: regexp.MustCompile(pattern), repl: repl, literal: true}
}

// beforeLower run in order on the raw label. Abbreviations match in any letter
// case, so the lower-cased result never matches again.
var beforeLower = []group{
	{
		gate: regexp.MustCompile(`[0-9](?i:γ)`),
		rules: []rule{
			literal("grams-abbrev", `(?i:γρ)(?:\. ?| )`, grams),
			literal("grams-trailing-abbrev", `(?i:γρ)$`, grams),
			literal("grams-trailing", `(?i:γ)$`, grams),
		},
	},
	{rules: []rule{
		literal("millilitres", `[MΜ]L`, "mL"),
		{name: "litres", pattern: regexp.MustCompile(`([0-9 ])(?i:lt)\.`), repl: "${1}" + litres},
		{name: "one-litre", pattern: regexp.MustCompile(`(^|[^0-9.,A-Za-z])1L`), repl: "${1} 1 Λίτρο "},
	}},
	{
		gate: regexp.MustCompile(`[0-9](?i:τεμ)`),
		rules: []rule{
			literal("pieces", `(?i:τεμ)(?:\. ?| |$)`, pieces),
		},
	},
	{rules: []rule{
		literal("brand-mr-grand", `MrGrand\.?`, "Mr. Grand "),

		// longest spelling first so the shorter ones never split a longer word
		literal("gluten-free", `ΧΓΛΟΥΤΕΝΗ`, glutenFree),
		literal("gluten-free", `ΧΓΛΟΥΤ`, glutenFree),
		literal("gluten-free", `ΧΓΛ`, glutenFree),
		literal("gluten-free", `Χ ΓΛΟΥΤΕΝΗ`, glutenFree),
		literal("gluten-free", `Χ ΓΛΟΥΤ`, glutenFree),
		literal("gluten-free", `Χ ΓΛΟΥ`, glutenFree),
		literal("gluten-free", `ΧΩΡ ΓΛΟΥΤΕΝΗ`, glutenFree),
		literal("gluten-free", `ΧΩΡ ΓΛΟΥΤ`, glutenFree),

		literal("sugar-free", `Χ ΖΑΧ`, sugarFree),
		literal("sugar-free", `ΧΩΡ ΖΑΧΑΡΗ`, sugarFree),

		literal("gift", ` ΔΩΡ `, " δώρο "),
		literal("sachet", ` ΦΑΚ `, " φακελάκι "),
	}},
}

// Normalize returns the canonical label for a raw description.
// It never fails and is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := raw
	for i := range beforeLower {
		s = beforeLower[i].apply(s)
	}

	// cases.Caser keeps state between calls, so one per label
	s = cases.Lower(language.Greek).String(s)

	s = strings.ReplaceAll(s, "€", " ευρώ ")
	s = multiSpace.ReplaceAllLiteralString(s, " ")

	return strings.ReplaceAll(s, `"`, `'`)
}

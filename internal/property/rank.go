// internal/property/rank.go
package property

// Rank is the source an effective value came from. Ranks form a strict
// total order; a higher rank always wins over a lower one.
type Rank uint8

const (
	RankDefault Rank = iota
	RankInherited
	RankImplicitStyleReference
	RankThemeStyleSetter
	RankTemplateSetter
	RankStyleSetter
	RankThemeStyleTrigger
	RankTemplateTrigger
	RankStyleTrigger
	RankTemplateParentTrigger
	RankLocal
)

var rankNames = [...]string{
	RankDefault:                "Default",
	RankInherited:              "Inherited",
	RankImplicitStyleReference: "ImplicitStyleReference",
	RankThemeStyleSetter:       "ThemeStyleSetter",
	RankTemplateSetter:         "TemplateSetter",
	RankStyleSetter:            "StyleSetter",
	RankThemeStyleTrigger:      "ThemeStyleTrigger",
	RankTemplateTrigger:        "TemplateTrigger",
	RankStyleTrigger:           "StyleTrigger",
	RankTemplateParentTrigger:  "TemplateParentTrigger",
	RankLocal:                  "Local",
}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "Rank(?)"
}

// Outranks reports whether r takes precedence over o.
func (r Rank) Outranks(o Rank) bool {
	return r > o
}

// Entry is a memoized effective value: the (property, value, rank) triple
// cached per node for every property that has been resolved.
type Entry struct {
	Value any
	Rank  Rank
	// FromResource marks values dereferenced from a resource reference; such
	// entries depend on the resource lookup chain and not only on their rank source.
	FromResource bool
	// Coerced records that Value differs from the base value produced by the
	// rank source because the property's coercion callback adjusted it.
	Coerced   bool
	BaseValue any
}

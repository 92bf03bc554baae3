package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// TierLevel is a subscription tier. Tiers are totally ordered.
type TierLevel string

const (
	TierFree       TierLevel = "free"
	TierGrowth     TierLevel = "growth"
	TierScale      TierLevel = "scale"
	TierEnterprise TierLevel = "enterprise"
)

// TierOrder lists tiers from lowest to highest.
var TierOrder = []TierLevel{TierFree, TierGrowth, TierScale, TierEnterprise}

// tierSynonyms maps legacy plan names onto current tiers.
var tierSynonyms = map[string]TierLevel{
	"premium": TierScale,
	"pro":     TierGrowth,
	"basic":   TierFree,
}

// Index returns the position of t in TierOrder, or -1 if t is unknown.
func (t TierLevel) Index() int {
	for i, o := range TierOrder {
		if o == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a known tier.
func (t TierLevel) Valid() bool {
	return t.Index() >= 0
}

// Meets reports whether caller is at or above required.
func Meets(caller, required TierLevel) bool {
	return caller.Index() >= required.Index()
}

// ParseTier normalizes a raw tier name, applying the legacy synonym remap.
func ParseTier(raw string) (TierLevel, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if syn, ok := tierSynonyms[name]; ok {
		return syn, nil
	}
	t := TierLevel(name)
	if !t.Valid() {
		return TierFree, eris.Errorf("tier: unknown tier %q", raw)
	}
	return t, nil
}

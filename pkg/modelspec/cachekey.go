// SPDX-License-Identifier: MPL-2.0

package modelspec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// compileIdentity is the canonical serialization form hashed by CacheKey.
// Field order is fixed; changing it invalidates every existing cache, so
// bump identityVersion instead of editing silently.
type compileIdentity struct {
	Version  int      `json:"v"`
	Formula  string   `json:"formula"`
	Family   Family   `json:"family"`
	Priors   []Prior  `json:"priors"`
	Grouping []string `json:"grouping"`
}

const identityVersion = 1

// CacheKey returns a hex sha256 over the compile-relevant fields: formula
// (whitespace-normalized), family, the ordered prior assignments, and the
// grouping structure. Title, sampler configuration, and data are excluded:
// they never influence the compiled representation.
func (s *ModelSpec) CacheKey() string {
	id := compileIdentity{
		Version:  identityVersion,
		Formula:  normalizeFormula(s.Formula),
		Family:   s.Family,
		Priors:   s.Priors,
		Grouping: s.Formula.GroupingTerms(),
	}

	// Marshal of a fixed struct with no maps is deterministic.
	raw, err := json.Marshal(id)
	if err != nil {
		// Only unrepresentable values can fail here, and compileIdentity
		// holds none.
		panic("modelspec: marshal compile identity: " + err.Error())
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CompileEquivalent reports whether two specs would produce interchangeable
// compiled representations.
func (s *ModelSpec) CompileEquivalent(other *ModelSpec) bool {
	return s.CacheKey() == other.CacheKey()
}

// normalizeFormula collapses runs of whitespace so cosmetic reformatting of
// a model file does not change its identity.
func normalizeFormula(f Formula) string {
	return strings.Join(strings.Fields(string(f)), " ")
}

package sqlguard

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/runenames"
)

// dangerousBlocks are Unicode block names whose characters visually imitate
// Latin letters. A rune belongs to one when its character name contains the
// block string.
var dangerousBlocks = []string{"FULLWIDTH", "CHEROKEE", "CYRILLIC", "MATHEMATICAL"}

// screenedKeywords sets the window lengths for the block scan: a lookalike
// character only matters where it could be forging one of these words.
var screenedKeywords = []string{
	"SELECT", "FROM", "WHERE", "UNION", "ORDER", "GROUP", "HAVING",
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
}

// lookalikePatterns match keywords spelled with mixed-script substitutes
// that the block scan alone would miss, such as modifier-letter capitals.
// Each class mixes the imposter runes with their ASCII counterparts; a match
// counts only if it actually contains a non-ASCII rune.
var lookalikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[ᎾО][ᴿRр][ᴰDḊ][ᴱEе][ᴿRр]`),
	regexp.MustCompile(`(?i)[ᵁUｕ][ᴺNｎ][ᴵIｉ][ᴼOｏ][ᴺNｎ]`),
	regexp.MustCompile(`(?i)[ˢSｓ][ᴱEｅ][ᴸLｌ][ᴱEｅ][ᶜCｃ][ᵀTｔ]`),
	regexp.MustCompile(`(?i)[ᴰDｄ][ᴿRｒ][ᴼOｏ][ᴾPｐ]`),
	regexp.MustCompile(`(?i)[ᴵIｉ][ᴺNｎ][ˢSｓ][ᴱEｅ][ᴿRｒ][ᵀTｔ]`),
}

// containsSuspiciousUnicode screens the raw, pre-normalization text for
// homoglyph substitution. It must see the text before NFKC folds fullwidth
// and mathematical characters back to ASCII.
func containsSuspiciousUnicode(text string) bool {
	runes := []rune(text)

	// Resolve each rune's block membership once; the window scan below then
	// works on booleans.
	dangerous := make([]bool, len(runes))
	for i, r := range runes {
		dangerous[i] = r > 127 && inDangerousBlock(r)
	}

	for _, kw := range screenedKeywords {
		k := len(kw)
		for i := 0; i+k <= len(runes); i++ {
			for j := i; j < i+k; j++ {
				if dangerous[j] {
					return true
				}
			}
		}
	}

	for _, pat := range lookalikePatterns {
		m := pat.FindString(text)
		if m == "" {
			continue
		}
		for _, r := range m {
			if r > 127 {
				return true
			}
		}
	}

	return false
}

func inDangerousBlock(r rune) bool {
	name := runenames.Name(r)
	for _, block := range dangerousBlocks {
		if strings.Contains(name, block) {
			return true
		}
	}
	return false
}

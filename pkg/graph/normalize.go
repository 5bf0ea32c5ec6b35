package graph

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/corpusgraph/backend/internal/util"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizedName is the result of normalizing a raw name string. Display is
// the canonical "Last, First" form used for presentation and registry keys;
// Slug is the lowercase underscore-separated candidate used for ID assignment.
type NormalizedName struct {
	Display string
	Slug    string
}

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9_]+$`)
	slugCharFilter = regexp.MustCompile(`[^a-z0-9\s]`)
)

// abbreviation is a curated leading-token expansion. When RequireSurname is
// set, the expansion only applies if the final token of the name matches,
// which keeps common nicknames from corrupting unrelated people.
type abbreviation struct {
	Expansion      string
	RequireSurname string
}

// Curated expansions for known OCR/extraction artifacts in the corpus.
// Matched only against the leading given-name token, never mid-string.
var abbreviationTable = map[string]abbreviation{
	"je":   {Expansion: "Jeffrey"},
	"jes":  {Expansion: "James"},
	"ghis": {Expansion: "Ghislaine"},
	"bill": {Expansion: "William", RequireSurname: "clinton"},
}

// Honorifics and suffixes are matched by set membership on the lowercased
// token with trailing periods stripped, not by regex heuristics.
var honorificSet = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"professor": true, "sir": true, "dame": true, "lady": true, "lord": true,
	"rev": true, "hon": true, "capt": true, "col": true, "gen": true,
	"judge": true, "sen": true, "gov": true, "pres": true, "president": true,
	"prince": true, "princess": true, "duke": true, "duchess": true,
	"baron": true, "baroness": true, "count": true, "countess": true,
}

var suffixSet = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
	"esq": true, "md": true, "phd": true, "jd": true, "dds": true,
	"mba": true, "cbe": true, "obe": true, "kbe": true,
}

// Normalize maps a raw name string to its canonical display form and slug
// candidate. The steps run in a fixed order: accent stripping first so that
// "Müller" and "Muller" hit the same downstream rules, and duplicate-token
// collapsing before abbreviation expansion so that "Je Je Epstein" expands
// correctly.
//
// Single-word names pass through unchanged; no "Last, First" inversion is
// attempted for them. A result that cannot form a valid slug is rejected
// with InvalidNameError.
func Normalize(raw string) (NormalizedName, error) {
	stripped := stripAccents(raw)
	cleaned := util.NormalizeWhitespace(stripped)
	if cleaned == "" {
		return NormalizedName{}, &InvalidNameError{Raw: raw, Reason: "empty after normalization"}
	}

	slug, err := slugify(cleaned)
	if err != nil {
		return NormalizedName{}, &InvalidNameError{Raw: raw, Reason: err.Error()}
	}

	display := formatDisplay(cleaned)
	if display == "" {
		return NormalizedName{}, &InvalidNameError{Raw: raw, Reason: "no name tokens"}
	}

	return NormalizedName{Display: display, Slug: slug}, nil
}

// SlugCandidate returns only the slug path of Normalize.
func SlugCandidate(raw string) (string, error) {
	n, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return n.Slug, nil
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripAccents(s string) string {
	result, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return result
}

// slugify runs the slug path: lowercase, commas removed, adjacent duplicate
// tokens collapsed, leading-token abbreviation applied, then reduction to
// [a-z0-9_] with single underscores.
func slugify(cleaned string) (string, error) {
	lowered := strings.ToLower(cleaned)
	lowered = strings.ReplaceAll(lowered, ",", " ")

	tokens := collapseAdjacentDuplicates(strings.Fields(lowered))
	surname := ""
	if len(tokens) > 1 {
		surname = tokens[len(tokens)-1]
	}
	tokens = expandLeading(tokens, surname)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	joined := strings.Join(tokens, " ")
	joined = slugCharFilter.ReplaceAllString(joined, "")
	joined = strings.Join(strings.Fields(joined), "_")
	joined = strings.Trim(joined, "_")
	for strings.Contains(joined, "__") {
		joined = strings.ReplaceAll(joined, "__", "_")
	}

	if joined == "" {
		return "", &InvalidNameError{Raw: cleaned, Reason: "empty slug"}
	}
	if len(joined) < 2 {
		return "", &InvalidNameError{Raw: cleaned, Reason: "slug shorter than 2 characters"}
	}
	if !slugPattern.MatchString(joined) {
		return "", &InvalidNameError{Raw: cleaned, Reason: "slug contains invalid characters"}
	}
	return joined, nil
}

// formatDisplay produces the canonical "Last, First Middle" display form.
// Commas are meaningful separators here: a name that already contains one is
// treated as "Last, First" and only cleaned up, never re-inverted.
func formatDisplay(cleaned string) string {
	if last, given, ok := strings.Cut(cleaned, ","); ok {
		lastTokens := collapseAdjacentDuplicates(strings.Fields(last))
		givenTokens := collapseAdjacentDuplicates(strings.Fields(strings.ReplaceAll(given, ",", " ")))

		honorifics, givenTokens, suffixes := extractAffixes(givenTokens)
		givenTokens = expandAbbreviationWithSurname(givenTokens, lastTokens)
		return assembleDisplay(lastTokens, givenTokens, honorifics, suffixes)
	}

	tokens := collapseAdjacentDuplicates(strings.Fields(cleaned))
	honorifics, tokens, suffixes := extractAffixes(tokens)

	if len(tokens) == 0 {
		// A pure honorific ("Dr.") has no name to format.
		return ""
	}
	if len(tokens) == 1 {
		return strings.Join(append(append(honorifics, tokens[0]), suffixes...), " ")
	}

	lastTokens := tokens[len(tokens)-1:]
	givenTokens := expandAbbreviationWithSurname(tokens[:len(tokens)-1], lastTokens)
	return assembleDisplay(lastTokens, givenTokens, honorifics, suffixes)
}

func assembleDisplay(lastTokens, givenTokens, honorifics, suffixes []string) string {
	var b strings.Builder
	b.WriteString(strings.Join(lastTokens, " "))
	if len(givenTokens) > 0 || len(honorifics) > 0 {
		b.WriteString(", ")
		parts := append(append([]string{}, honorifics...), givenTokens...)
		b.WriteString(strings.Join(parts, " "))
	}
	if len(suffixes) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(suffixes, " "))
	}
	return strings.TrimSpace(b.String())
}

// extractAffixes peels honorific prefixes off the front and suffixes off the
// end of the token list. Both are returned so the formatted output can keep
// them; they are never discarded.
func extractAffixes(tokens []string) (honorifics, rest, suffixes []string) {
	rest = tokens
	for len(rest) > 1 && honorificSet[affixKey(rest[0])] {
		honorifics = append(honorifics, rest[0])
		rest = rest[1:]
	}
	for len(rest) > 1 && suffixSet[affixKey(rest[len(rest)-1])] {
		suffixes = append([]string{rest[len(rest)-1]}, suffixes...)
		rest = rest[:len(rest)-1]
	}
	return honorifics, rest, suffixes
}

func affixKey(token string) string {
	return strings.ToLower(strings.TrimRight(token, "."))
}

// collapseAdjacentDuplicates drops a token that immediately repeats the
// previous one, case-insensitively. Guards against a known OCR artifact
// ("Bill Bill Clinton").
func collapseAdjacentDuplicates(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	result := tokens[:1]
	for _, token := range tokens[1:] {
		if strings.EqualFold(token, result[len(result)-1]) {
			continue
		}
		result = append(result, token)
	}
	return result
}

func expandAbbreviationWithSurname(givenTokens, lastTokens []string) []string {
	surname := ""
	if len(lastTokens) > 0 {
		surname = strings.ToLower(lastTokens[len(lastTokens)-1])
	}
	return expandLeading(givenTokens, surname)
}

// expandLeading applies the abbreviation table to the first token only.
func expandLeading(tokens []string, surname string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	entry, ok := abbreviationTable[strings.ToLower(tokens[0])]
	if !ok {
		return tokens
	}
	if entry.RequireSurname != "" && entry.RequireSurname != surname {
		return tokens
	}
	result := append([]string{entry.Expansion}, tokens[1:]...)
	return result
}

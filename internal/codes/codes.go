// Package codes classifies, ranks and expands station codes.
//
// A station is known under several textual codes: bare RIL100 codes for
// Germany, RIL100 pseudo prefixes (X or Z plus a country letter), emoji
// flag prefixes, "XX:" colon prefixes and numeric UIC station numbers.
package codes

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownCountry is returned when a code names a country that is not in
// the country table
var ErrUnknownCountry = errors.New("unknown country")

// Representation is the syntactic kind of a code
type Representation int

const (
	Unrecognized Representation = iota
	Bare
	RIL100Pseudo
	FlagPrefix
	ColonPrefix
	NumericUIC
)

func (r Representation) String() string {
	switch r {
	case Bare:
		return "bare"
	case RIL100Pseudo:
		return "ril100_pseudo"
	case FlagPrefix:
		return "flag"
	case ColonPrefix:
		return "colon"
	case NumericUIC:
		return "uic"
	default:
		return "unrecognized"
	}
}

// Rank bands, lower is more canonical
const (
	RankLocal      = 0
	RankFlagLocal  = 10
	RankFlagUIC    = 11
	RankFlagOpaque = 12
	RankUIC        = 20
	RankColon      = 30
	RankUnknown    = 1000
)

var (
	uicPattern    = regexp.MustCompile(`^[1-9][0-9]\d{5,7}$`)
	colonPattern  = regexp.MustCompile(`^[A-Za-z]{2}:`)
	opaquePattern = regexp.MustCompile(`^O\d+$`)
	doubleSpace   = regexp.MustCompile(`\s{2,}`)
)

const (
	regionalIndicatorA = 0x1F1E6
	regionalIndicatorZ = 0x1F1FF
)

func isRegionalIndicator(r rune) bool {
	return r >= regionalIndicatorA && r <= regionalIndicatorZ
}

// splitFlag returns the flag and the remainder when code starts with two
// regional indicator letters
func splitFlag(code string) (string, string, bool) {
	runes := []rune(code)
	if len(runes) < 2 || !isRegionalIndicator(runes[0]) || !isRegionalIndicator(runes[1]) {
		return "", "", false
	}
	flag := string(runes[:2])
	return flag, code[len(flag):], true
}

func isPseudoPrefix(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[0] {
	case 'X', 'x', 'Z', 'z':
	default:
		return false
	}
	_, ok := byRIL100[strings.ToUpper(code[1:2])]
	return ok
}

// Classify determines the country and representation of a code. The
// returned error wraps ErrUnknownCountry when the representation names a
// country outside the table; the representation is still reported.
func Classify(code string) (Country, Representation, error) {
	if code == "" || strings.HasPrefix(code, ":") {
		return Unknown, Unrecognized, nil
	}

	if flag, _, ok := splitFlag(code); ok {
		c, found := byFlag[flag]
		if !found {
			return Unknown, FlagPrefix, fmt.Errorf("%w: flag %s", ErrUnknownCountry, flag)
		}
		return c, FlagPrefix, nil
	}

	if colonPattern.MatchString(code) {
		prefix := strings.ToUpper(code[:2])
		if c, ok := byISO[prefix]; ok {
			return c, ColonPrefix, nil
		}
		if c, ok := byTLD[prefix]; ok {
			return c, ColonPrefix, nil
		}
		return Unknown, ColonPrefix, fmt.Errorf("%w: prefix %s", ErrUnknownCountry, prefix)
	}

	if uicPattern.MatchString(code) {
		number, _ := strconv.Atoi(code[:2])
		if c, ok := byUIC[number]; ok {
			return c, NumericUIC, nil
		}
		return Unknown, NumericUIC, fmt.Errorf("%w: uic %d", ErrUnknownCountry, number)
	}

	if isPseudoPrefix(code) {
		return byRIL100[strings.ToUpper(code[1:2])], RIL100Pseudo, nil
	}

	return Germany, Bare, nil
}

// Local returns the part of a code after its country prefix. Bare and
// numeric codes are returned unchanged.
func Local(code string) string {
	if _, rest, ok := splitFlag(code); ok {
		return rest
	}
	_, rep, _ := Classify(code)
	switch rep {
	case ColonPrefix:
		return code[3:]
	case RIL100Pseudo:
		return code[2:]
	default:
		return code
	}
}

// Rank returns the canonical rank of a code. It depends only on the
// representation kind, never on the country table.
func Rank(code string) int {
	_, rep, _ := Classify(code)
	switch rep {
	case Bare, RIL100Pseudo:
		return RankLocal
	case FlagPrefix:
		local := Local(code)
		switch {
		case uicPattern.MatchString(local):
			return RankFlagUIC
		case opaquePattern.MatchString(local):
			return RankFlagOpaque
		default:
			return RankFlagLocal
		}
	case NumericUIC:
		return RankUIC
	case ColonPrefix:
		return RankColon
	default:
		return RankUnknown
	}
}

var aliasGroups = [][]string{
	{"EMSTP", "EMST"},
}

// Expand returns the code followed by its equivalent spellings: the
// whitespace-collapsed form, the part before the first space, alias group
// members and, for numeric UIC numbers, the flag-prefixed number. The
// result has no duplicates and no empty strings.
func Expand(code string) []string {
	if code == "" {
		return nil
	}
	out := []string{code}
	add := func(s string) {
		if s == "" {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}

	collapsed := doubleSpace.ReplaceAllString(code, " ")
	add(collapsed)
	if i := strings.IndexByte(collapsed, ' '); i > 0 {
		add(collapsed[:i])
	}

	for _, candidate := range append([]string(nil), out...) {
		for _, group := range aliasGroups {
			if !contains(group, candidate) {
				continue
			}
			for _, alias := range group {
				add(alias)
			}
		}
	}

	if c, rep, err := Classify(code); err == nil && rep == NumericUIC {
		add(c.Flag() + code)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

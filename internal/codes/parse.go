package codes

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ParseInput turns station arguments into code sets.
//
// Tokens are separated by whitespace or commas. "A=B" declares two
// spellings of the same station. A lone country prefix ("XS", "CH:" or a
// flag) switches the country applied to the bare codes that follow; a
// lone German prefix switches back. While a foreign country is active,
// codes without a flag, colon or numeric form are local to it.
//
// Codes naming a country outside the table are kept as they are and
// logged; a lone unknown prefix leaves the current country unchanged.
func ParseInput(tokens []string, caseSensitive bool, logger *zap.Logger) ([]CodeSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		current *Country
		sets    []CodeSet
	)

	split := func(r rune) bool { return r == ',' || unicode.IsSpace(r) }
	for _, arg := range tokens {
		for _, token := range strings.FieldsFunc(arg, split) {
			var group []string
			for _, code := range strings.Split(token, "=") {
				if code == "" {
					continue
				}
				if !caseSensitive {
					code = strings.ToUpper(code)
				}

				country, rep, err := Classify(code)
				if errors.Is(err, ErrUnknownCountry) {
					logger.Warn("unknown country in station code", zap.String("code", code), zap.Error(err))
					if Local(code) != "" {
						group = append(group, code)
					}
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("station %q: %w", code, err)
				}
				if rep == Unrecognized {
					return nil, fmt.Errorf("station %q: unrecognized code", code)
				}

				if rep != Bare && Local(code) == "" {
					if country.ISO3166 == Germany.ISO3166 {
						current = nil
					} else {
						c := country
						current = &c
					}
					continue
				}

				if current != nil && (rep == Bare || rep == RIL100Pseudo) {
					code = current.Flag() + code
				}
				group = append(group, code)
			}
			if len(group) > 0 {
				sets = append(sets, NewCodeSet(group...))
			}
		}
	}
	return sets, nil
}

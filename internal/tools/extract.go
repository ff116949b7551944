package tools

import (
	"hash/fnv"
	"regexp"
	"strings"

	"synapse/internal/geo"
)

// Route extraction works against the built-in gazetteer: explicit
// origin=/dest= hints win, then "from X to Y" phrasing, then the order in
// which known place names appear in the text.

var (
	originHintRe = regexp.MustCompile(`(?i)origin\s*=\s*([^,;\n)]+)`)
	destHintRe   = regexp.MustCompile(`(?i)dest\s*=\s*([^,;\n)]+)`)
	fromToRe     = regexp.MustCompile(`(?i)\bfrom\s+(.+?)\s+to\s+(.+?)(?:[.,;\n]|$)`)
)

// ExtractRoute pulls origin and destination place names out of free text.
// Either result may be empty; a single recognized place is treated as the
// destination.
func ExtractRoute(text string) (origin, dest string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	if m := originHintRe.FindStringSubmatch(text); m != nil {
		origin = geo.OnlyPlaceName(m[1])
	}
	if m := destHintRe.FindStringSubmatch(text); m != nil {
		dest = geo.OnlyPlaceName(m[1])
	}
	if origin != "" && dest != "" {
		return origin, dest
	}

	if m := fromToRe.FindStringSubmatch(text); m != nil {
		if origin == "" {
			if p, ok := geo.LookupPlace(m[1]); ok {
				origin = p.Name
			}
		}
		if dest == "" {
			if p, ok := geo.LookupPlace(m[2]); ok {
				dest = p.Name
			}
		}
	}
	if origin != "" && dest != "" {
		return origin, dest
	}

	// Fall back to gazetteer mentions in textual order.
	var mentions []string
	lower := strings.ToLower(text)
	for _, name := range knownPlaceNames() {
		idx := strings.Index(lower, strings.ToLower(name))
		if idx >= 0 {
			mentions = append(mentions, name)
		}
	}
	sortByPosition(lower, mentions)

	for _, name := range mentions {
		if strings.EqualFold(name, origin) || strings.EqualFold(name, dest) {
			continue
		}
		if dest == "" {
			dest = name
			continue
		}
		if origin == "" {
			// Two mentions read as origin then destination.
			origin, dest = dest, name
		}
		break
	}
	return origin, dest
}

func knownPlaceNames() []string {
	names := []string{
		"SRMIST Chennai", "Chennai International Airport", "T Nagar",
		"Marina Beach", "Phoenix Marketcity Velachery", "Guindy", "Tambaram",
	}
	return names
}

func sortByPosition(lower string, names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0; j-- {
			a := strings.Index(lower, strings.ToLower(names[j-1]))
			b := strings.Index(lower, strings.ToLower(names[j]))
			if b < a {
				names[j-1], names[j] = names[j], names[j-1]
			} else {
				break
			}
		}
	}
}

var flightRe = regexp.MustCompile(`(?i)flight\s+([A-Z0-9]{2,8})`)

// ExtractFlight pulls a flight number like "flight 6E102" out of free text.
func ExtractFlight(text string) string {
	if m := flightRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// seedFor derives a stable pseudo-random seed from input strings, so the
// simulated services return the same numbers for the same request.
func seedFor(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	useCaseIDRe  = regexp.MustCompile(`^UC-[A-Z0-9]+-\d{3,}$`)
	scenarioIDRe = regexp.MustCompile(`^UC-[A-Z0-9]+-\d{3,}-S\d{2,}$`)
)

// ValidUseCaseID reports whether id has the UC-<PREFIX>-<NNN> shape.
func ValidUseCaseID(id string) bool { return useCaseIDRe.MatchString(id) }

// ValidScenarioID reports whether id has the <use-case-id>-S<NN> shape.
func ValidScenarioID(id string) bool { return scenarioIDRe.MatchString(id) }

func scenarioIDBelongs(useCaseID, scenarioID string) bool {
	return scenarioIDRe.MatchString(scenarioID) &&
		strings.HasPrefix(scenarioID, useCaseID+"-S")
}

// CategoryPrefix derives the three-letter ID prefix from a category
// name: uppercase, keep alphanumerics, take the first three, pad with X.
func CategoryPrefix(category string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(category) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	prefix := b.String()
	for len(prefix) < 3 {
		prefix += "X"
	}
	return prefix
}

// maxIDProbe bounds the free-slot scan; hitting it means the ID space
// for a category is exhausted or the inputs are corrupt.
const maxIDProbe = 100000

// NextUseCaseID allocates the lowest numbered free ID for the category,
// skipping IDs present in either the in-memory set or the on-disk set.
func NextUseCaseID(category string, inMemory, onDisk map[string]bool) (string, error) {
	prefix := CategoryPrefix(category)
	for n := 1; n <= maxIDProbe; n++ {
		id := fmt.Sprintf("UC-%s-%03d", prefix, n)
		if !inMemory[id] && !onDisk[id] {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free id for category %q below UC-%s-%d", category, prefix, maxIDProbe)
}

// NextScenarioID returns the next sequential scenario ID for the use
// case, one past the highest existing suffix.
func (u *UseCase) NextScenarioID() string {
	max := 0
	for _, s := range u.Scenarios {
		if i := strings.LastIndex(s.ID, "-S"); i >= 0 {
			n := 0
			if _, err := fmt.Sscanf(s.ID[i+2:], "%d", &n); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("%s-S%02d", u.ID, max+1)
}

// SnakeCase lowercases s and collapses runs of non-alphanumerics into
// single underscores. Used for category directory names.
func SnakeCase(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

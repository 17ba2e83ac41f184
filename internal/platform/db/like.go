package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE/ILIKE argument matching text as a literal
// substring. Wildcards typed by users are escaped with the default backslash.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

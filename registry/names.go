package registry

import "regexp"

// reDatabaseName mirrors the original implementation's database name
// grammar: a letter or underscore, followed by letters, digits,
// underscores, or hyphens.
var reDatabaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

const maxDatabaseNameLength = 64

// IsAllowedDatabaseName reports whether name is a legal database name.
// allowSystem permits names beginning with an underscore (the "_system"
// bootstrap database and any future system-reserved database); ordinary
// callers creating user databases must pass false.
func IsAllowedDatabaseName(allowSystem bool, name string) bool {
	if name == "" || len(name) > maxDatabaseNameLength {
		return false
	}
	if !reDatabaseName.MatchString(name) {
		return false
	}
	if name[0] == '_' && !allowSystem {
		return false
	}
	return true
}

package enums

import "fmt"

// UserLevel maps to the user_level_enum enum in Postgres.
type UserLevel string

const (
	UserLevelNormal  UserLevel = "normal"
	UserLevelVIP     UserLevel = "vip"
	UserLevelSVIP    UserLevel = "svip"
	UserLevelMax     UserLevel = "max"
	UserLevelPartner UserLevel = "partner"
)

var validUserLevels = []UserLevel{
	UserLevelNormal,
	UserLevelVIP,
	UserLevelSVIP,
	UserLevelMax,
	UserLevelPartner,
}

// expirableLevels are the tiers subject to time-based downgrade.
var expirableLevels = []UserLevel{
	UserLevelVIP,
	UserLevelSVIP,
	UserLevelMax,
}

// LegacyLevelAliases maps historical tier spellings to their canonical value.
var LegacyLevelAliases = map[string]UserLevel{
	"gold":     UserLevelVIP,
	"platinum": UserLevelSVIP,
}

// IsValid reports whether the value matches the canonical user level enum.
func (l UserLevel) IsValid() bool {
	for _, candidate := range validUserLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// IsExpirable reports whether the level is downgraded when its expiry passes.
func (l UserLevel) IsExpirable() bool {
	for _, candidate := range expirableLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// ExpirableLevelValues returns the stored level values a downgrade sweep
// matches. The level_code column is the user_level_enum type, so only
// canonical members may appear here: binding anything else fails at the
// Postgres enum input conversion. Legacy alias spellings exist only as
// request input and are resolved by ParseUserLevel before storage.
func ExpirableLevelValues() []string {
	values := make([]string, 0, len(expirableLevels))
	for _, level := range expirableLevels {
		values = append(values, string(level))
	}
	return values
}

// ParseUserLevel converts raw input into UserLevel, resolving legacy aliases.
func ParseUserLevel(value string) (UserLevel, error) {
	for _, candidate := range validUserLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	if canonical, ok := LegacyLevelAliases[value]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("invalid user level %q", value)
}

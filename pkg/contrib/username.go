package contrib

// MaxUsernameLength is the longest login GitHub accepts.
const MaxUsernameLength = 39

// ValidUsername reports whether s is a well formed GitHub login: 1 to 39 ASCII
// letters, digits or hyphens, not starting or ending with a hyphen and without
// two hyphens in a row.
func ValidUsername(s string) bool {
	if len(s) == 0 || len(s) > MaxUsernameLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-':
			if i == 0 || i == len(s)-1 || s[i-1] == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ValidateUsername returns an InvalidUsername error when s is not a valid
// GitHub login.
func ValidateUsername(s string) error {
	if !ValidUsername(s) {
		return NewError(KindInvalidUsername, "invalid GitHub username %q", s)
	}
	return nil
}

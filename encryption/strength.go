package encryption

import "unicode"

// MinStrongLength is the shortest password reported as strong
const MinStrongLength = 12

// Strength is the result of PasswordStrength
type Strength struct {
	Score    int      `json:"score"`
	IsStrong bool     `json:"is_strong"`
	Feedback []string `json:"feedback,omitempty"`
}

// PasswordStrength scores a password from 0 to 100: up to 40 points for length
// (2.5 per character, capped at 16) and 15 for each character class present.
func PasswordStrength(password string) Strength {
	var length int
	var lower, upper, digit, symbol bool

	for _, r := range password {
		length++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	capped := length
	if capped > 16 {
		capped = 16
	}
	score := capped * 5 / 2

	var feedback []string
	for _, class := range []struct {
		present bool
		hint    string
	}{
		{lower, "Add lowercase letters"},
		{upper, "Add uppercase letters"},
		{digit, "Add numbers"},
		{symbol, "Add symbols"},
	} {
		if class.present {
			score += 15
		} else {
			feedback = append(feedback, class.hint)
		}
	}

	if length < MinStrongLength {
		feedback = append([]string{"Use at least 12 characters"}, feedback...)
	}

	if score > 100 {
		score = 100
	}

	return Strength{
		Score:    score,
		IsStrong: score >= 75 && length >= MinStrongLength,
		Feedback: feedback,
	}
}

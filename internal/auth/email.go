package auth

import (
	"os"
	"regexp"

	"github.com/pkg/errors"
)

var emailRegexp = regexp.MustCompile(`(?i)[a-z0-9]+(?:[._-][a-z0-9]+)*@[a-z]+(?:\.[a-z]+)*\.[a-z]{2,}`)

var fullEmailRegexp = regexp.MustCompile(`^(?:` + emailRegexp.String() + `)$`)

// IsEmail returns true if the whole string is a syntactically valid email.
func IsEmail(s string) bool {
	return fullEmailRegexp.MatchString(s)
}

// FindEmails returns every email address found in the text.
func FindEmails(text string) []string {
	return emailRegexp.FindAllString(text, -1)
}

// FindEmailsInFile returns every email address found in the file.
func FindEmailsInFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return FindEmails(string(b)), nil
}

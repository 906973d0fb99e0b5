// Package luhmann parses, orders and queries the hierarchical Luhmann IDs
// embedded in note file names, e.g. "202012091130 (1,2,a) Cells.md".
package luhmann

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the characters that wrap and split a Luhmann ID.
type Config struct {
	Prefix    string `yaml:"prefix"`
	Postfix   string `yaml:"postfix"`
	Delimiter string `yaml:"delimiter"`
}

// DefaultConfig returns the "(1,2,a)" grammar.
func DefaultConfig() Config {
	return Config{
		Prefix:    "(",
		Postfix:   ")",
		Delimiter: ",",
	}
}

// Validate validates the grammar characters.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Prefix, validation.Required, validation.RuneLength(1, 3), validation.By(notSegmentText)),
		validation.Field(&c.Postfix, validation.Required, validation.RuneLength(1, 3), validation.By(notSegmentText)),
		validation.Field(&c.Delimiter, validation.Required, validation.RuneLength(1, 3), validation.By(notSegmentText)),
	); err != nil {
		return err
	}
	tokens := []string{c.Prefix, c.Postfix, c.Delimiter}
	for i, a := range tokens {
		for j, b := range tokens {
			if i != j && strings.Contains(a, b) {
				return fmt.Errorf("luhmann: prefix %q, postfix %q and delimiter %q must not overlap", c.Prefix, c.Postfix, c.Delimiter)
			}
		}
	}
	return nil
}

// notSegmentText rejects values containing letters, digits or whitespace,
// since those belong to segments, primary IDs and titles.
func notSegmentText(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return errors.New("must not contain letters, digits or whitespace")
		}
	}
	if strings.ContainsAny(s, "/\\") {
		return errors.New("must not contain path separators")
	}
	return nil
}

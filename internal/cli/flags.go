package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/catalog"
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/spf13/pflag"
)

// categoryValue is a pflag.Value accepting only known plan categories.
type categoryValue struct {
	set   bool
	value domain.Category
}

var _ pflag.Value = (*categoryValue)(nil)

func (c *categoryValue) String() string { return string(c.value) }

func (c *categoryValue) Set(s string) error {
	cat, err := domain.ParseCategory(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return err
	}
	c.value = cat
	c.set = true
	return nil
}

func (c *categoryValue) Type() string { return "category" }

// vibeValue is a pflag.Value accepting catalog vibe IDs.
type vibeValue struct {
	set   bool
	value domain.Vibe
}

var _ pflag.Value = (*vibeValue)(nil)

func (v *vibeValue) String() string { return v.value.ID }

func (v *vibeValue) Set(s string) error {
	vibe, ok := catalog.LookupVibe(strings.TrimSpace(s))
	if !ok {
		return fmt.Errorf("unknown vibe %q (want one of %s)", s, strings.Join(vibeIDs(), ", "))
	}
	v.value = vibe
	v.set = true
	return nil
}

func (v *vibeValue) Type() string { return "vibe" }

func vibeIDs() []string {
	ids := make([]string, len(catalog.Vibes))
	for i, v := range catalog.Vibes {
		ids[i] = v.ID
	}
	return ids
}

func categoryNames() []string {
	names := make([]string, len(domain.ValidCategories))
	for i, c := range domain.ValidCategories {
		names[i] = string(c)
	}
	return names
}

// validateColor accepts #rgb or #rrggbb after palette names are resolved.
func validateColor(s string) error {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return fmt.Errorf("invalid color %q: use a palette name or #rrggbb", s)
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("invalid color %q: use a palette name or #rrggbb", s)
		}
	}
	return nil
}

// validateClock accepts an empty string or HH:MM.
func validateClock(s string) error {
	if s == "" {
		return nil
	}
	bad := fmt.Errorf("invalid time %q: use HH:MM", s)
	if len(s) != 5 || s[2] != ':' {
		return bad
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return bad
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return bad
	}
	return nil
}

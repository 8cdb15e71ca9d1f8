package accounts

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/forge-sparks/internal/forge"
)

// Fields holds the form values on the heap so that huh's Value() pointers
// stay valid across Bubble Tea model copies.
type Fields struct {
	Kind  string
	URL   string
	Token string
}

func (f *Fields) kind() forge.Kind {
	return forge.Kind(f.Kind)
}

// host returns the instance the token belongs to.
func (f *Fields) host() string {
	if u := strings.TrimSpace(f.URL); u != "" && f.kind().Info().AllowInstances {
		return u
	}
	return f.kind().Info().DefaultURL
}

// TokenHelp tells the user where to create a token and which scopes it
// needs.
func (f *Fields) TokenHelp() string {
	info := f.kind().Info()
	if info.Kind == "" {
		return ""
	}
	return fmt.Sprintf(
		"Create one at https://%s%s with scopes: %s",
		strings.TrimPrefix(strings.TrimPrefix(f.host(), "https://"), "http://"),
		info.TokenPage,
		strings.Join(info.Scopes, ", "),
	)
}

// NewForm builds the account form. When editing, the forge is fixed and
// an empty token keeps the stored one.
func NewForm(f *Fields, editing bool) *huh.Form {
	if f.Kind == "" {
		f.Kind = string(forge.KindGitHub)
	}

	var groups []*huh.Group
	if !editing {
		opts := make([]huh.Option[string], 0, len(forge.Kinds))
		for _, k := range forge.Kinds {
			opts = append(opts, huh.NewOption(k.String(), string(k)))
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Forge").
				Options(opts...).
				Value(&f.Kind),
		))
	}

	tokenDescription := "Leave empty to keep the current token."
	validateToken := func(string) error { return nil }
	if !editing {
		validateToken = validateRequired("Access token")
	}

	groups = append(groups,
		huh.NewGroup(
			huh.NewInput().
				Title("Instance").
				DescriptionFunc(func() string {
					return "Host of the instance, defaults to " + f.kind().Info().DefaultURL
				}, &f.Kind).
				PlaceholderFunc(func() string {
					return f.kind().Info().DefaultURL
				}, &f.Kind).
				Value(&f.URL),
		).WithHideFunc(func() bool {
			return !f.kind().Info().AllowInstances
		}),
		huh.NewGroup(
			huh.NewInput().
				Title("Access token").
				DescriptionFunc(func() string {
					if editing {
						return tokenDescription
					}
					return f.TokenHelp()
				}, f).
				EchoMode(huh.EchoModePassword).
				Value(&f.Token).
				Validate(validateToken),
		),
	)

	return huh.NewForm(groups...)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

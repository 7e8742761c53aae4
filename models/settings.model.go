package models

import "fmt"

type NavbarTheme string

const (
	ThemeLight      NavbarTheme = "light"
	ThemeDark       NavbarTheme = "dark"
	ThemeGradient   NavbarTheme = "gradient"
	ThemeRetro      NavbarTheme = "retro"
	ThemePastel     NavbarTheme = "pastel"
	ThemeAqua       NavbarTheme = "aqua"
	ThemePinkOrange NavbarTheme = "pink-orange"
	ThemeIndigo     NavbarTheme = "indigo"
	ThemeFrosted    NavbarTheme = "frosted"
	ThemeMinimal    NavbarTheme = "minimal"
	ThemeUnderline  NavbarTheme = "underline"
)

const DefaultNavbarTheme = ThemeLight

var AllNavbarThemes = []NavbarTheme{
	ThemeLight, ThemeDark, ThemeGradient, ThemeRetro, ThemePastel, ThemeAqua,
	ThemePinkOrange, ThemeIndigo, ThemeFrosted, ThemeMinimal, ThemeUnderline,
}

func ParseNavbarTheme(s string) (NavbarTheme, error) {
	for _, t := range AllNavbarThemes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown navbar theme %q", s)
}

// SiteSettings is the blob cached locally under the "siteSettings" key.
type SiteSettings struct {
	SiteName    string      `json:"siteName"`
	StoreLogo   string      `json:"storeLogo"` // base64-encoded image
	NavbarTheme NavbarTheme `json:"navbarTheme"`
}

// SiteDocument is settings/site in the document store.
type SiteDocument struct {
	ID        string `bson:"_id" json:"-"`
	SiteName  string `bson:"site_name" json:"site_name"`
	StoreLogo string `bson:"store_logo" json:"store_logo"`
}

// NavbarDocument is settings/navbar in the document store.
type NavbarDocument struct {
	ID    string      `bson:"_id" json:"-"`
	Theme NavbarTheme `bson:"theme" json:"theme"`
}

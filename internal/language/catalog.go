package language

// Option is one selectable audio language.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Catalog is the fixed, ordered audio language list. The first entry is the
// default for new installs.
var Catalog = []Option{
	{Code: "ja-JP", Label: "Japanese"},
	{Code: "en-US", Label: "English"},
	{Code: "es-419", Label: "Spanish (Latin America)"},
	{Code: "es-ES", Label: "Spanish (Spain)"},
	{Code: "pt-BR", Label: "Portuguese (Brazil)"},
	{Code: "fr-FR", Label: "French"},
	{Code: "de-DE", Label: "German"},
	{Code: "it-IT", Label: "Italian"},
}

// DefaultCode returns the catalog's first language code.
func DefaultCode() string {
	return Catalog[0].Code
}

// LabelFor returns the display label for a catalog code, or "" when the code
// is not in the catalog.
func LabelFor(code string) string {
	for _, option := range Catalog {
		if option.Code == code {
			return option.Label
		}
	}
	return ""
}

// Known reports whether code is part of the catalog.
func Known(code string) bool {
	return LabelFor(code) != ""
}

package domain

// Locale identifies the locale a collection run materializes documents for.
// Name is the store key form, e.g. "de_de".
type Locale struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

package mode

// Mode is the query builder variant chosen for a request.
type Mode string

// Route outcomes of the semantic/keyword router.
const (
	Keyword  Mode = "keyword"
	Semantic Mode = "semantic"
	// InvalidLanguage means no corpus index serves the requested language.
	InvalidLanguage Mode = "invalid_language"
	// Relational is the free-tier substring search against the relational store.
	Relational Mode = "relational"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Keyword || m == Semantic || m == InvalidLanguage || m == Relational
}

// Executes reports whether a query runs for this mode.
func (m Mode) Executes() bool { return m != InvalidLanguage }

// Package region resolves a country name and a coastal buffer distance
// into the analysis strip the index pipeline runs over.
package region

// Countries is the closed set of supported countries, in selector order.
// Names match the boundary dataset's name field exactly.
var Countries = []string{
	"Morocco",
	"Algeria",
	"Tunisia",
	"Libya",
	"Egypt",
	"Syria",
	"Lebanon",
	"Yemen",
	"Mauritania",
}

// Buffer distance domain, kilometers.
const (
	MinBufferKM = 1
	MaxBufferKM = 10
)

// metersPerKM converts the user-facing buffer distance to the backend's
// buffer unit.
const metersPerKM = 1000.0

// Supported reports whether name is in the country enumeration.
// Matching is case-sensitive, like the remote boundary filter.
func Supported(name string) bool {
	for _, c := range Countries {
		if c == name {
			return true
		}
	}
	return false
}

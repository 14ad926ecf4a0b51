package batch

// Field is a sub-resource that can be requested for a repository.
type Field uint8

const (
	FieldRepoInfo Field = 1 << iota
	FieldReleases
	FieldLatestRelease
)

// AllFields is the set used when a request names no known field.
const AllFields = FieldSet(FieldRepoInfo | FieldReleases | FieldLatestRelease)

var fieldNames = map[string]Field{
	"repo_info":      FieldRepoInfo,
	"releases":       FieldReleases,
	"latest_release": FieldLatestRelease,
}

// FieldSet is an immutable set of Fields.
type FieldSet uint8

// ParseFields maps requested field names to a FieldSet. Unknown names are
// ignored; if no known name remains the result is AllFields.
func ParseFields(names []string) FieldSet {
	var set FieldSet
	for _, n := range names {
		if f, ok := fieldNames[n]; ok {
			set |= FieldSet(f)
		}
	}
	if set == 0 {
		return AllFields
	}
	return set
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

package batch

import (
	"fmt"
	"strings"

	"github.com/ghinfo/ghinfo/internal/core/services"
)

// Ref identifies a repository by owner and name.
type Ref struct {
	Owner string
	Name  string
}

// String returns the "owner/name" display form.
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRef splits an "owner/name" identifier. Both parts must be non-empty
// and the name may not itself contain a slash.
func ParseRef(s string) (Ref, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Ref{}, fmt.Errorf("%w: %q", services.ErrInvalidFormat, s)
	}
	return Ref{Owner: owner, Name: name}, nil
}

package application

import (
	"regexp"

	"github.com/dfryer1193/postpage/blog/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IDParam is the route parameter that names a post.
const IDParam = "id"

const maxIdentifierLength = 128

var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// RouteParams exposes path parameters. *gin.Context satisfies it.
type RouteParams interface {
	Param(key string) string
}

// ParamMap is a RouteParams backed by a map, for callers outside of an HTTP router.
type ParamMap map[string]string

func (m ParamMap) Param(key string) string {
	return m[key]
}

// ExtractIdentifier reads and validates the post identifier from params.
// Any problem is reported as domain.ErrInvalidIdentifier.
func ExtractIdentifier(params RouteParams) (domain.PostIdentifier, error) {
	if params == nil {
		return "", domain.ErrInvalidIdentifier
	}
	return ParseIdentifier(params.Param(IDParam))
}

// ParseIdentifier validates a raw identifier string.
func ParseIdentifier(raw string) (domain.PostIdentifier, error) {
	err := validation.Validate(raw,
		validation.Required,
		validation.RuneLength(1, maxIdentifierLength),
		validation.Match(identifierRegex),
	)
	if err != nil {
		return "", domain.ErrInvalidIdentifier
	}
	return domain.PostIdentifier(raw), nil
}

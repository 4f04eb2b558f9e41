package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by
// [min, max], returning def when it is absent.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, queryError(key, "must be an integer")
	case n < min:
		return 0, queryError(key, "must be at least "+strconv.Itoa(min))
	case n > max:
		return 0, queryError(key, "must be at most "+strconv.Itoa(max))
	}
	return n, nil
}

func queryError(key, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter "+key).
		WithDetails(map[string]string{key: problem})
}

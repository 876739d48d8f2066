package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter. Absent means defaultVal;
// present but non-numeric or outside [min, max] is a validation error
// naming the offending parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

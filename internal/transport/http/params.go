package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cclens/internal/complaints"
	apierrors "cclens/internal/errors"
)

// maxLimit bounds client-supplied row limits at the transport edge. The
// analytics service applies its own configured ceiling below this.
const maxLimit = 500

// parseSelection reads the years and products filter parameters shared by
// every analytics route. Both accept repeated values and comma-separated
// lists, so ?years=2023&years=2024 and ?years=2023,2024 are equivalent.
func parseSelection(r *http.Request) (complaints.FilterSelection, *apierrors.APIError) {
	var sel complaints.FilterSelection

	for _, raw := range splitParam(r.URL.Query()["years"]) {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return complaints.FilterSelection{}, apierrors.ErrValidation("years", fmt.Sprintf("invalid year %q", raw))
		}
		sel.Years = append(sel.Years, year)
	}
	sel.Products = splitParam(r.URL.Query()["products"])

	return sel, nil
}

// splitParam flattens repeated query values and comma-separated lists into
// one slice, dropping empty entries.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryDefault returns a query parameter, or def when it is absent.
func queryDefault(r *http.Request, param, def string) string {
	if v := r.URL.Query().Get(param); v != "" {
		return v
	}
	return def
}

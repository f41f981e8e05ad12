// Package http implements the HTTP request handlers for the complaint
// analytics API. It is a thin layer between transport and the service
// packages: handlers parse and validate query parameters, call a service,
// and render the result.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service sentinels to HTTP responses
//	4. No aggregation logic - all computation belongs in internal/analytics
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Dataset
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *Handler) GetSomething(w http.ResponseWriter, r *http.Request) {
//	    sel, apiErr := parseSelection(r)
//	    if apiErr != nil {
//	        h.errorHandler.HandleError(w, r, apiErr)
//	        return
//	    }
//
//	    result, err := h.service.Something(r.Context(), sel)
//	    if err != nil {
//	        h.handleQueryError(w, r, "something", err)
//	        return
//	    }
//
//	    render.JSON(w, r, map[string]interface{}{
//	        "status": "success",
//	        "data":   result,
//	    })
//	}
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/analytics/invalid-query",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "invalid dimension: \"flavor\"",
//	    "instance": "/api/analytics/rankings",
//	    "error_code": "INVALID_DIMENSION"
//	}
//
// The status discipline: 400 for malformed parameters, 422 for well-formed
// but unknown dimensions/measures/granularities, 409 for a reload already
// in flight, 503 while no dataset is resident, and 500 for the rest. The
// one deliberate exception is year-over-year on a single-year selection,
// which answers 200 with status "insufficient_years" because dashboards
// treat it as an expected state, not a failure.
//
// # Downloads
//
// The export handler streams attachments instead of JSON: a multi-sheet
// XLSX workbook assembled from the same service calls the dashboard uses,
// and a BOM-prefixed CSV of any rankings table.
//
// # Testing
//
// Handlers are tested using httptest:
//
//	- Mock service dependencies
//	- Test various HTTP scenarios
//	- Verify error responses
package http

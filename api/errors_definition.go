//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the caller's fault and return
// HTTP 400/404. Codes 50001-59999 are the server's fault and return HTTP
// 500. NEVER change an existing code, only append after the current last
// 4XXX/5XXX — a gap is a retired code, not a hole to fill.
var (
	ErrResourceNotFound         = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedParam           = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrElectionNotFound         = Error{Code: 40003, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election not found")}
	ErrContestNotFound          = Error{Code: 40004, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("contest not found")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrTallyFailed                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("tally failed")}
	ErrMergeSweepFailed           = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("merge sweep failed")}
)

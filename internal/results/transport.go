package results

import (
	"context"
)

// Transport carries queries to the results API. Implementations return the
// body of a successful response; any other response is an
// *errors.APIError carrying the upstream status, so a 404 can be told apart
// with errors.IsNotFound.
type Transport interface {
	// Fetch executes a records or summary query.
	Fetch(ctx context.Context, q Query) ([]byte, error)
	// FetchLog fetches the log at logPath ("ns/results/uid/logs/uid").
	FetchLog(ctx context.Context, logPath string) ([]byte, error)
}

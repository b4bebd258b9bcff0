package sync

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/carlmjohnson/requests"
)

// HTTPRequestTimeout is the default timeout for all HTTP requests to external APIs.
const HTTPRequestTimeout = 60 * time.Second

// apiBuilder returns a new requests.Builder for the given endpoint.
// When recorddir is set, requests and responses are recorded under recorddir/target.
func apiBuilder(endpoint string, recorddir string, target string) *requests.Builder {
	result := requests.
		URL(endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if recorddir != "" {
		result = result.Transport(requests.Record(nil, filepath.Join(recorddir, target)))
	}
	return result
}

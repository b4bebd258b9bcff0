package sync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

// CampaignAPI is the raw Sailthru API used by the campaign client.
// Payloads are the JSON documents Sailthru expects in its json parameter.
// API level failures are reported in the Response, the error is reserved for transport failures.
type CampaignAPI interface {
	APIGet(ctx context.Context, resource string, payload string) (Response, error)
	APIPost(ctx context.Context, resource string, payload string) (Response, error)
}

// APIError is an error reported by the Sailthru API.
type APIError struct {
	Code    int    `json:"error"`
	Message string `json:"errormsg"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("sailthru error %d: %s", e.Code, e.Message)
}

// Response is the result of a Sailthru API call, either Ok(body) or Err(code, message).
type Response struct {
	Body  string
	Error *APIError
}

// OK reports whether the call succeeded.
func (r Response) OK() bool {
	return r.Error == nil
}

// Get returns the value at path in the response body.
func (r Response) Get(path string) gjson.Result {
	return gjson.Get(r.Body, path)
}

// SailthruClient calls the Sailthru REST API.
type SailthruClient struct {
	Settings          CampaignSettings
	RecordRequestsDir string
}

// SailthruAPIBuilder returns a new requests.Builder configured for the Sailthru API.
func (s SailthruClient) SailthruAPIBuilder() *requests.Builder {
	return apiBuilder(s.Settings.URI, s.RecordRequestsDir, "sailthru")
}

// APIGet sends a GET request for resource with the payload as query parameters.
func (s SailthruClient) APIGet(ctx context.Context, resource string, payload string) (Response, error) {
	builder := s.SailthruAPIBuilder().Path("/" + resource)
	for k, v := range s.params(payload) {
		builder = builder.Param(k, v...)
	}
	return s.send(ctx, builder)
}

// APIPost sends a POST request for resource with the payload as a form body.
func (s SailthruClient) APIPost(ctx context.Context, resource string, payload string) (Response, error) {
	return s.send(ctx, s.SailthruAPIBuilder().Path("/"+resource).BodyForm(s.params(payload)))
}

func (s SailthruClient) send(ctx context.Context, builder *requests.Builder) (Response, error) {
	var result Response
	var apiError APIError
	err := builder.
		ToString(&result.Body).
		ErrorJSON(&apiError).
		Fetch(ctx)
	if err != nil {
		if apiError.Code != 0 || apiError.Message != "" {
			result.Error = &apiError
			return result, nil
		}
		return result, err
	}
	// errors can also be reported with a 200
	if code := result.Get("error"); code.Exists() {
		result.Error = &APIError{Code: int(code.Int()), Message: result.Get("errormsg").String()}
	}
	return result, nil
}

func (s SailthruClient) params(payload string) url.Values {
	result := url.Values{
		"api_key": {s.Settings.APIKey},
		"format":  {"json"},
		"json":    {payload},
	}
	result.Set("sig", signature(s.Settings.APISecret, result))
	return result
}

// signature returns the Sailthru request signature: the md5 hex digest of the
// secret followed by the sorted parameter values.
func signature(secret string, params url.Values) string {
	var values []string
	for k, v := range params {
		if k == "sig" {
			continue
		}
		values = append(values, v...)
	}
	sort.Strings(values)
	sum := md5.Sum([]byte(secret + strings.Join(values, "")))
	return hex.EncodeToString(sum[:])
}

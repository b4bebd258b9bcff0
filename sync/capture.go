package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

// CaptureBackend fetches user records from Janrain Capture.
type CaptureBackend interface {
	GetRecord(ctx context.Context, id string, specs []AttributeSpec) (Record, error)
}

// CaptureError is returned when a record cannot be retrieved from Capture.
type CaptureError struct {
	ID      string
	Code    int
	Message string
	Err     error
}

func (e *CaptureError) Error() string {
	msg := fmt.Sprintf("capture record %s", e.ID)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s: error %d", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CaptureError) Unwrap() error { return e.Err }

// AttributeMissingError is returned when a requested path does not exist in a record.
type AttributeMissingError struct {
	ID   string
	Path string
}

func (e *AttributeMissingError) Error() string {
	return fmt.Sprintf("capture record %s is missing attribute %s", e.ID, e.Path)
}

// Record is a user record retrieved from Capture.
type Record struct {
	ID   string
	data gjson.Result
}

// ParseRecord parses the JSON representation of a capture record.
func ParseRecord(id string, json string) (Record, error) {
	if !gjson.Valid(json) {
		return Record{}, &CaptureError{ID: id, Message: "invalid json record"}
	}
	data := gjson.Parse(json)
	if !data.IsObject() {
		return Record{}, &CaptureError{ID: id, Message: "record is not an object"}
	}
	return Record{ID: id, data: data}, nil
}

// Lookup returns the value at a dot separated path.
// Each segment names a key of an object one level deeper; a segment missing at any level,
// or a value that is not an object before the last segment, reports false.
// Numbers are returned as json.Number so they keep their exact digits.
func (r Record) Lookup(path string) (interface{}, bool) {
	current := r.data
	for _, segment := range strings.Split(path, ".") {
		if !current.IsObject() {
			return nil, false
		}
		current = current.Get(gjson.Escape(segment))
		if !current.Exists() {
			return nil, false
		}
	}
	return resultValue(current), true
}

// resultValue converts a gjson result to a Go value, keeping numbers, including those
// nested in objects and arrays, as json.Number.
func resultValue(result gjson.Result) interface{} {
	switch result.Type {
	case gjson.Number:
		return json.Number(result.Raw)
	case gjson.JSON:
		var value interface{}
		decoder := json.NewDecoder(strings.NewReader(result.Raw))
		decoder.UseNumber()
		if err := decoder.Decode(&value); err != nil {
			return result.Value()
		}
		return value
	default:
		return result.Value()
	}
}

// AsFlatDict flattens the record to the requested attributes, keyed by capture path.
// The email is always included, as is the uuid (falling back to the id the record was fetched by).
// Missing attributes fail with an AttributeMissingError, no defaults are substituted.
func (r Record) AsFlatDict(specs []AttributeSpec) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(specs)+2)
	for _, spec := range specs {
		value, exists := r.Lookup(spec.CapturePath)
		if !exists {
			return nil, &AttributeMissingError{ID: r.ID, Path: spec.CapturePath}
		}
		if spec.Modifier != "" {
			// modifiers that cannot produce a value clear the var
			value = nil
			if modified := r.data.Get(spec.Path()); modified.Exists() {
				value = resultValue(modified)
			}
		}
		result[spec.CapturePath] = value
	}
	email, exists := r.Lookup(EmailAttribute)
	if !exists {
		return nil, &AttributeMissingError{ID: r.ID, Path: EmailAttribute}
	}
	result[EmailAttribute] = email
	if id, exists := r.Lookup(IDAttribute); exists && id != nil {
		result[IDAttribute] = id
	} else {
		result[IDAttribute] = r.ID
	}
	return result, nil
}

// CaptureClient retrieves records from the Janrain Capture entity API.
type CaptureClient struct {
	Settings          CaptureSettings
	RecordRequestsDir string
}

// CaptureAPIBuilder returns a new requests.Builder configured for the Capture API.
func (c CaptureClient) CaptureAPIBuilder() *requests.Builder {
	return apiBuilder(c.Settings.URI, c.RecordRequestsDir, "capture")
}

type captureAPIError struct {
	Stat             string `json:"stat"`
	Code             int    `json:"code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e captureAPIError) message() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Error
}

// GetRecord fetches the record with the given uuid, restricted to the attributes needed to sync it.
func (c CaptureClient) GetRecord(ctx context.Context, id string, specs []AttributeSpec) (Record, error) {
	attributes, err := json.Marshal(topLevelAttributes(specs))
	if err != nil {
		return Record{}, &CaptureError{ID: id, Err: err}
	}

	var body string
	var captureError captureAPIError
	err = c.CaptureAPIBuilder().
		Path("/entity").
		BodyForm(url.Values{
			"client_id":     {c.Settings.ClientID},
			"client_secret": {c.Settings.ClientSecret},
			"type_name":     {c.Settings.SchemaName},
			"uuid":          {id},
			"attributes":    {string(attributes)},
		}).
		ToString(&body).
		ErrorJSON(&captureError).
		Fetch(ctx)
	if err != nil {
		return Record{}, &CaptureError{ID: id, Code: captureError.Code, Message: captureError.message(), Err: err}
	}
	if !gjson.Valid(body) {
		return Record{}, &CaptureError{ID: id, Err: errors.New("invalid json response")}
	}
	response := gjson.Parse(body)
	if stat := response.Get("stat").String(); stat != "ok" {
		captureError = captureAPIError{
			Stat:             stat,
			Code:             int(response.Get("code").Int()),
			Error:            response.Get("error").String(),
			ErrorDescription: response.Get("error_description").String(),
		}
		return Record{}, &CaptureError{ID: id, Code: captureError.Code, Message: captureError.message()}
	}
	return ParseRecord(id, response.Get("result").Raw)
}

// topLevelAttributes returns the distinct top level attribute names for the specs,
// always including the identity attributes.
func topLevelAttributes(specs []AttributeSpec) []string {
	result := []string{IDAttribute, EmailAttribute}
	seen := map[string]bool{IDAttribute: true, EmailAttribute: true}
	for _, spec := range specs {
		name, _, _ := strings.Cut(spec.CapturePath, ".")
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	return result
}

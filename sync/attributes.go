package sync

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
)

const (
	// IDAttribute is the capture attribute holding the record's unique id.
	// It is sent to Sailthru as the extid key.
	IDAttribute = "uuid"
	// EmailAttribute is the capture attribute holding the record's email.
	EmailAttribute = "email"
)

// AttributeSpec pairs a capture attribute path with the Sailthru var it is synced to.
type AttributeSpec struct {
	CapturePath string // dot separated capture path e.g. "profile.name"
	Modifier    string // optional gjson modifier e.g. "@countryName" or "@phone:44"
	CampaignVar string // Sailthru var name e.g. "profile_name"
}

// Path returns the gjson path used to read the attribute, including any modifier.
// Each segment of the capture path is escaped so gjson reads it as a literal key.
func (a AttributeSpec) Path() string {
	path := escapePath(a.CapturePath)
	if a.Modifier == "" {
		return path
	}
	return path + "|" + a.Modifier
}

func escapePath(path string) string {
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		segments[i] = gjson.Escape(segment)
	}
	return strings.Join(segments, ".")
}

// validPath reports whether every segment of a dot separated path is a plain key name,
// free of gjson wildcards, queries and escapes.
func validPath(path string) bool {
	for _, segment := range strings.Split(path, ".") {
		if segment == "" || gjson.Escape(segment) != segment || strings.TrimSpace(segment) != segment {
			return false
		}
	}
	return true
}

// ConfigurationError reports a setting that makes syncing impossible.
// It is never retryable.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Setting, e.Reason)
}

// ParseAttributes converts the comma separated JANRAIN_ATTRIBUTES setting into attribute specs.
// Entries are trimmed, empties dropped and the identity attributes removed, as uuid and email
// are always sent as Sailthru keys rather than vars.
// Sailthru strips dots out of var names so they are replaced with underscores.
// Entries that normalise to an existing var name are dropped, first one wins.
func ParseAttributes(raw string, snakecase bool) ([]AttributeSpec, error) {
	var result []AttributeSpec
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		path, modifier, _ := strings.Cut(entry, "|")
		path = strings.TrimSpace(path)
		modifier = strings.TrimSpace(modifier)
		if path == "" || path == EmailAttribute || path == IDAttribute {
			continue
		}
		if !validPath(path) {
			return nil, &ConfigurationError{
				Setting: "JANRAIN_ATTRIBUTES",
				Reason:  fmt.Sprintf("invalid attribute path %q", path),
			}
		}
		if modifier != "" && !strings.HasPrefix(modifier, "@") {
			return nil, &ConfigurationError{
				Setting: "JANRAIN_ATTRIBUTES",
				Reason:  fmt.Sprintf("invalid modifier %q for attribute %s", modifier, path),
			}
		}
		field := strings.ReplaceAll(path, ".", "_")
		if snakecase {
			field = strcase.ToSnake(field)
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		result = append(result, AttributeSpec{
			CapturePath: path,
			Modifier:    modifier,
			CampaignVar: field,
		})
	}
	if len(result) == 0 {
		return nil, &ConfigurationError{Setting: "JANRAIN_ATTRIBUTES", Reason: "no attributes specified"}
	}
	return result, nil
}

// ParseLists converts the comma separated SAILTHRU_LISTS setting into Sailthru list memberships.
// A list name prefixed with "-" removes the user from that list.
// Returns nil when no lists are configured.
func ParseLists(raw string) map[string]int {
	var result map[string]int
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		membership := 1
		if strings.HasPrefix(entry, "-") {
			entry = strings.TrimSpace(strings.TrimPrefix(entry, "-"))
			membership = 0
		}
		if entry == "" {
			continue
		}
		if result == nil {
			result = make(map[string]int)
		}
		result[entry] = membership
	}
	return result
}

// CapturePaths returns the capture paths of the specs in order.
func CapturePaths(specs []AttributeSpec) []string {
	result := make([]string, len(specs))
	for i, s := range specs {
		result[i] = s.CapturePath
	}
	return result
}

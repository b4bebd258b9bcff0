package sync

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LookupEnvFunc looks up an environment variable, see os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// configOptions holds optional configuration for LoadConfig.
type configOptions struct {
	lookupEnv LookupEnvFunc
	sources   []MappingFile
}

// ConfigOption is a functional option for configuring LoadConfig.
type ConfigOption func(*configOptions)

// ConfigWithLookupEnv replaces os.LookupEnv as the source of environment variables.
func ConfigWithLookupEnv(fn LookupEnvFunc) ConfigOption {
	return func(o *configOptions) {
		o.lookupEnv = fn
	}
}

// ConfigWithMappingFile layers a YAML file over the embedded defaults.
// Environment variables still take precedence over its values.
func ConfigWithMappingFile(file MappingFile) ConfigOption {
	return func(o *configOptions) {
		o.sources = append(o.sources, file)
	}
}

// resolveEnvironment returns the value of every default, overridden by the environment.
// An empty environment value means use the default.
func resolveEnvironment(defaults map[string]interface{}, lookupenv LookupEnvFunc) map[string]interface{} {
	result := make(map[string]interface{}, len(defaults))
	for key, defaultValue := range defaults {
		result[key] = defaultValue
		if value, exists := lookupenv(key); exists && value != "" {
			result[key] = coerceEnvValue(value, defaultValue)
		}
	}
	return result
}

// coerceEnvValue converts an environment value to the type of its default.
// Booleans are true for anything but FALSE, integers that fail to parse are 0.
func coerceEnvValue(value string, defaultValue interface{}) interface{} {
	switch defaultValue.(type) {
	case bool:
		return strings.ToUpper(value) != "FALSE"
	case int, int64, uint64:
		i, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return i
	default:
		return value
	}
}

// dumpEnvironment returns the resolved settings as sorted KEY=value lines, with secrets masked.
func dumpEnvironment(settings map[string]interface{}) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var result []string
	for _, key := range keys {
		value := fmt.Sprintf("%v", settings[key])
		if isSecret(key) && value != "" {
			value = "********"
		}
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	return result
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "_SECRET") || strings.HasSuffix(key, "_KEY")
}

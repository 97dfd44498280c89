package env

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// Bool reads a boolean env var, returning defaultValue when unset or unparsable.
func Bool(env string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// Int reads an integer env var, returning defaultValue when unset or unparsable.
func Int(env string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return num
}

// String reads a string env var, returning defaultValue when unset.
func String(env string, defaultValue string) string {
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return defaultValue
}

// StringSlice reads a list env var. Both a JSON array (`["a","b"]`) and a
// comma separated list (`a,b`) are accepted; blank items are dropped.
func StringSlice(env string, defaultValue []string) []string {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}

	var items []string
	if strings.HasPrefix(v, "[") {
		if err := json.Unmarshal([]byte(v), &items); err != nil {
			return defaultValue
		}
	} else {
		items = strings.Split(v, ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

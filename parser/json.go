package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// parseJSON flattens scalar leaves of path's JSON document to
// "dotted.path: value" lines. On parse failure it returns the raw file
// text instead of an error.
func parseJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("parser: reading %s: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return toValidUTF8(data), nil
	}

	var lines []string
	flattenJSON("", doc, &lines)
	return strings.Join(lines, "\n") + "\n", nil
}

func flattenJSON(prefix string, v any, out *[]string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinPath(prefix, k), val[k], out)
		}
	case []any:
		for i, item := range val {
			flattenJSON(fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	case nil:
		*out = append(*out, fmt.Sprintf("%s: null", prefix))
	default:
		*out = append(*out, fmt.Sprintf("%s: %v", prefix, val))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

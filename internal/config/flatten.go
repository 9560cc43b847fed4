package config

import (
	"slices"
	"strings"
)

// secretKeys lists the dot-separated keys whose values are masked when
// listed.
var secretKeys = map[string]bool{
	"telegram.token": true,
	"gist.token":     true,
	"admin.password": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Flatten turns nested JSON objects into dot-separated keys, so
// {"gist": {"id": "abc"}} becomes {"gist.id": "abc"}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		node := out
		for {
			head, rest, nested := strings.Cut(key, ".")
			if !nested {
				node[head] = v
				break
			}
			child, ok := node[head].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[head] = child
			}
			node, key = child, rest
		}
	}
	return out
}

// MaskSecrets returns a copy of flat with every non-empty secret replaced by
// "***" and its last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && secretKeys[k] && s != "" {
			v = mask(s)
		}
		out[k] = v
	}
	return out
}

func mask(s string) string {
	r := []rune(s)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return "***" + string(r)
}

// SortedKeys returns the keys of flat in lexical order.
func SortedKeys(flat map[string]any) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

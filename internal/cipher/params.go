package cipher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

// Parameters arrive from flags as strings and from JSON recipes as float64,
// so every accessor accepts both.

func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}

func intParam(params map[string]interface{}, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("%w: parameter %s must be an integer, got %v", cryptoerr.ErrInvalidArgument, key, x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: parameter %s: %v", cryptoerr.ErrInvalidArgument, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: parameter %s has unsupported type %T", cryptoerr.ErrInvalidArgument, key, v)
	}
}

func boolParam(params map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: parameter %s: %v", cryptoerr.ErrInvalidArgument, key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: parameter %s has unsupported type %T", cryptoerr.ErrInvalidArgument, key, v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

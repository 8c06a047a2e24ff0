package transfer

import (
	"fmt"
	"strings"
)

// Args are key/value pairs given as `key=value` strings, such as extra
// request headers.
type Args map[string]string

// ParseArgs parses the given `key=value` lines. Keys must not be empty.
func ParseArgs(lines []string) (Args, error) {
	args := make(Args, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid argument: %q", line)
		}
		key, value := strings.TrimSpace(parts[0]), parts[1]
		args[key] = value
	}
	return args, nil
}

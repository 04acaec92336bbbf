package api

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadInput returns command input from a file, positional args, or stdin,
// in that order. A file of "-" reads stdin.
func ReadInput(file string, args []string, stdin io.Reader) (string, error) {
	switch {
	case file == "-":
		return readAll(stdin)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return readAll(stdin)
	}
}

func readAll(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// input is one message to process.
type input struct {
	name    string
	message string
	err     error
}

// expandArgs turns file names, glob patterns and "-" into a de-duplicated
// list of inputs. Matches of one pattern are sorted; a pattern that matches
// nothing is an error.
func expandArgs(args []string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, arg := range args {
		if arg == "-" {
			names = append(names, arg)
			continue
		}
		if !strings.ContainsAny(arg, "*?[{") {
			if !seen[arg] {
				seen[arg] = true
				names = append(names, arg)
			}
			continue
		}
		if !doublestar.ValidatePattern(arg) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				names = append(names, m)
			}
		}
	}
	return names, nil
}

// readInputs reads every named input; "-" reads stdin.
func readInputs(names []string, stdin io.Reader) []input {
	inputs := make([]input, 0, len(names))
	for _, name := range names {
		var data []byte
		var err error
		if name == "-" {
			data, err = io.ReadAll(stdin)
			name = "stdin"
		} else {
			data, err = os.ReadFile(name)
		}
		inputs = append(inputs, input{name: name, message: normalize(string(data)), err: err})
	}
	return inputs
}

// normalize converts line endings to the HL7 segment terminator.
func normalize(message string) string {
	message = strings.ReplaceAll(message, "\r\n", "\r")
	message = strings.ReplaceAll(message, "\n", "\r")
	return strings.Trim(message, "\r \t")
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}

// outputJSONError writes {"error": "..."} to stdout and exits with code 1.
func outputJSONError(err error) {
	_ = writeJSON(os.Stdout, map[string]string{"error": err.Error()})
	os.Exit(1)
}

// reported marks an error whose JSON body was already written by the
// command, so the exit path only sets the status.
type reported struct{ err error }

func (r reported) Error() string { return r.err.Error() }
func (r reported) Unwrap() error { return r.err }

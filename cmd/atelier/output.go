package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"Atelier/internal/ledger"
)

// errReported marks an error whose JSON body was already written to stdout.
var errReported = errors.New("reported")

// failure is the JSON body printed for a rejected operation.
type failure struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// writeJSON prints v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// result prints v, or for ledger rejections prints the kind and reason and
// returns errReported so the process exits non-zero. Infrastructure errors
// are returned unchanged.
func result(out io.Writer, v any, err error) error {
	if err == nil {
		return writeJSON(out, v)
	}

	kind := ledger.KindOf(err)
	if kind == ledger.KindNone {
		return err
	}

	if werr := writeJSON(out, failure{Error: kind.String(), Reason: err.Error()}); werr != nil {
		return werr
	}

	return errReported
}

// parseID parses a positive item id argument.
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q:\n%w", s, err)
	}

	return id, nil
}

// parseAddress parses a hex identity flag or argument.
func parseAddress(name, s string) (ledger.Address, error) {
	if s == "" {
		return ledger.Address{}, fmt.Errorf("%s is required", name)
	}

	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("invalid %s:\n%w", name, err)
	}

	return addr, nil
}

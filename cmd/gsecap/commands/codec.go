package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvbgse/gogse/internal/gse/ext"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
)

// parseLabel turns a --label flag value into a gsetype.Label. Accepted
// forms: "broadcast", or a hex string encoding exactly 3 or 6 bytes
// (e.g. "aabbcc" or "010203040506").
func parseLabel(s string) (gsetype.Label, error) {
	if strings.EqualFold(s, "broadcast") {
		return gsetype.BroadcastLabel(), nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return gsetype.Label{}, fmt.Errorf("invalid --label %q: %w", s, err)
	}
	switch len(raw) {
	case 3:
		var b [3]byte
		copy(b[:], raw)
		return gsetype.ThreeByteLabel(b), nil
	case 6:
		var b [6]byte
		copy(b[:], raw)
		return gsetype.SixByteLabel(b), nil
	default:
		return gsetype.Label{}, fmt.Errorf("invalid --label %q: must be 3 or 6 bytes hex, or \"broadcast\"", s)
	}
}

// parseRegistry resolves the --registry flag to a mandatory extension
// registry.
func parseRegistry(s string) (ext.Registry, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return ext.NoMandatoryExtensions{}, nil
	case "rcs2":
		return ext.RCS2Registry{}, nil
	default:
		return nil, fmt.Errorf("unknown --registry %q (want \"none\" or \"rcs2\")", s)
	}
}

// readInput reads all of path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// openOutput opens path for writing, or stdout when path is "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" || path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Command gsecap is the reference CLI for the gogse DVB GSE codec: it
// encapsulates a PDU into a GSE packet stream, decapsulates a GSE packet
// stream back into PDUs, or round-trips a PDU through both to self-check
// the codec end to end.
package main

import (
	"fmt"
	"os"

	"github.com/dvbgse/gogse/cmd/gsecap/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

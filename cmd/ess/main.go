// Command ess is the email search service: it ingests mail from
// Microsoft Graph, Gmail and local JSON archives into one local store,
// keeps a full-text index over it, and serves search from the command
// line or over the stdio tool protocol.
package main

import "github.com/krasmussen37/ess/internal/cli"

func main() {
	cli.Execute()
}

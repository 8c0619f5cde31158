// reportkb is a CLI that builds an incremental knowledge base from a
// folder of annual report files and answers questions over it.
package main

import (
	"github.com/finlight-labs/reportkb-cli/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}

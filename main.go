package main

import (
	"os"

	"github.com/bsv-blockchain/utxobalances/cmd/balancescli/balancescli"
)

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func main() {
	balancescli.Start(os.Args, version, commit)
}

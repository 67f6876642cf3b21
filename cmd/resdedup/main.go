// Resdedup packs multi-version plugin build output into a deduplicated
// installer resource set.
package main

import (
	"github.com/plugindist/resdedup/cmd/resdedup/internal/cli"
)

func main() {
	cli.Execute()
}

// formbuilder builds, stores, fills and serves dynamic forms.
package main

import (
	"os"

	"github.com/goliatone/go-formbuilder/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

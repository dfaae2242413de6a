package main

import (
	"os"

	"github.com/coreyt/sine/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

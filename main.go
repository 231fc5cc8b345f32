package main

import (
	"os"

	"github.com/perfgate/pagecheck/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

package main

import (
	"os"

	"github.com/vladimirazarov/isa-top/cmd/isa-top/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

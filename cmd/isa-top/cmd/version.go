package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladimirazarov/isa-top/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print isa-top's version and exit",
		Run: func(*cobra.Command, []string) {
			fmt.Print(version.Version())
		},
	}
}

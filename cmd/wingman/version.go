package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curtisgray/wingman-sub001/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the client version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.String())
		},
	}
}

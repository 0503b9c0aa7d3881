package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bot's version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

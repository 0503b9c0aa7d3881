package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load the configuration file and report any validation errors.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := newSetup(cfgFile, false)
			if err != nil {
				return err
			}
			fmt.Println("configuration is valid")
			return nil
		},
	}
}

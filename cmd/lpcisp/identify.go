package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synthread/go-lpcisp/flash"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Synchronize with the bootloader and print the part id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := flash.NewMicrocontroller(&cfg).Identify()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

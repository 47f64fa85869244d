package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// prepick shop: administrative shop commands.
var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "Manage shops",
}

// prepick shop verify <id>: make a shop visible to customers.
var shopVerifyCmd = &cobra.Command{
	Use:   "verify <shop-id>",
	Short: "Mark a shop as verified",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sh, err := a.shops.Verify(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verified %s (%s)\n", sh.Name, sh.ID)
		return nil
	},
}

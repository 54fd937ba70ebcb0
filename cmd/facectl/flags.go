package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// mustGetString panics on unknown flags, which are programming errors.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

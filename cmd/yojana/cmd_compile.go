package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <scheme-code>",
	Short: "Print the compiled logic program for a scheme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		source, err := eng.Compiled(args[0])
		if err != nil {
			return err
		}
		fmt.Print(source)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List the loaded scheme catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, reg, err := openEngine()
		if err != nil {
			return err
		}
		for _, entry := range reg.List() {
			def := entry.Definition
			status := "ok"
			if entry.CompileErr != nil {
				status = "direct only"
			}
			fmt.Printf("%-24s %-8s rules=%d exclusions=%d provisions=%d [%s]\n",
				def.Code, def.Eligibility.Logic,
				len(def.Eligibility.Rules),
				len(def.Eligibility.ExclusionCriteria),
				len(def.Provisions), status)
		}
		return nil
	},
}

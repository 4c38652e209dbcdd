package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yojana/internal/applicant"
	"yojana/internal/eval"
)

var (
	applicantFile string
	applicantDB   string
	applicantID   string
	backendName   string
	checkAll      bool
)

var checkCmd = &cobra.Command{
	Use:   "check [scheme-code]",
	Short: "Evaluate an applicant against a scheme",
	Long: `Evaluate an applicant record against one scheme, or against every
scheme in the catalog with --all.

The applicant comes from a JSON file (--applicant) or from a SQLite store
(--db with --id). Results are printed as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !checkAll && len(args) == 0 {
			return fmt.Errorf("scheme code required unless --all is set")
		}

		rec, id, err := loadApplicant(cmd)
		if err != nil {
			return err
		}
		backend, err := parseBackend(backendName)
		if err != nil {
			return err
		}

		eng, _, err := openEngine()
		if err != nil {
			return err
		}

		if checkAll {
			results, err := eng.CheckAll(cmd.Context(), id, rec, backend)
			if err != nil {
				return err
			}
			return printJSON(results)
		}

		res, err := eng.Check(cmd.Context(), args[0], id, rec, backend)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func loadApplicant(cmd *cobra.Command) (applicant.Record, string, error) {
	switch {
	case applicantFile != "":
		data, err := os.ReadFile(applicantFile)
		if err != nil {
			return nil, "", fmt.Errorf("read applicant: %w", err)
		}
		var rec applicant.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, "", fmt.Errorf("parse applicant %s: %w", applicantFile, err)
		}
		id := applicantID
		if id == "" {
			id = "applicant"
		}
		return rec, id, nil
	case applicantDB != "":
		if applicantID == "" {
			return nil, "", fmt.Errorf("--id is required with --db")
		}
		store, err := applicant.OpenStore(applicantDB)
		if err != nil {
			return nil, "", err
		}
		defer store.Close()
		rec, err := store.Get(cmd.Context(), applicantID)
		if err != nil {
			return nil, "", err
		}
		return rec, applicantID, nil
	default:
		return nil, "", fmt.Errorf("either --applicant or --db is required")
	}
}

func parseBackend(name string) (eval.Backend, error) {
	switch name {
	case "", "direct":
		return eval.BackendDirect, nil
	case "reasoner":
		return eval.BackendReasoner, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want direct or reasoner)", name)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	checkCmd.Flags().StringVarP(&applicantFile, "applicant", "a", "", "applicant record JSON file")
	checkCmd.Flags().StringVar(&applicantDB, "db", "", "SQLite applicant store")
	checkCmd.Flags().StringVar(&applicantID, "id", "", "applicant id")
	checkCmd.Flags().StringVarP(&backendName, "backend", "b", "direct", "evaluation backend (direct or reasoner)")
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "evaluate against every scheme")
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/autosave"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/client"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			list, err := g.client().ListDocuments(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if list.Count == 0 {
				fmt.Fprintln(out, "No cases.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUPLOADED\tSTATUS\tPREDICTION")
			for _, s := range list.Documents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.UploadedAt, s.Status, predictionText(s.Prediction))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d\n", list.Count)
			return nil
		},
	}
}

func newShowCmd(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			detail, err := g.client().GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(detail)
			}
			return printCase(cmd.OutOrStdout(), detail)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON record")
	return cmd
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List editable fields and their accepted input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tLABEL\tKIND\tVALUES")
			for _, spec := range validation.Schema {
				values := strings.Join(spec.Enum, "|")
				switch spec.Kind {
				case validation.KindBoolean:
					values = "yes|no"
				case validation.KindNumber:
					if spec.ZeroValid {
						values = ">= 0 allowed"
					} else {
						values = "non-zero"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Name, spec.Label, spec.Kind, values)
			}
			return tw.Flush()
		},
	}
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>",
		Short: "Report missing or invalid fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			detail, err := g.client().GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			result := detail.Evaluate()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", result.Status)
			if len(result.InvalidFields) == 0 {
				fmt.Fprintln(out, "All required fields are valid.")
				return nil
			}
			fmt.Fprintf(out, "Invalid fields (%d):\n", len(result.InvalidFields))
			for _, name := range result.InvalidFields {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
}

func newUploadCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file> [file]",
		Short: "Upload a PDF, or up to two JPG/PNG images merged into one PDF",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]client.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, client.File{Filename: filepath.Base(path), Data: data})
			}

			ctx, cancel := g.context(cmd)
			defer cancel()

			detail, err := g.client().Upload(ctx, files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s), status %s\n", detail.ID, detail.Filename, detail.Status)
			return nil
		},
	}
}

func newEditCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> field=value...",
		Short: "Change fields; each one is saved as if the input lost focus",
		Long: `Change fields one at a time. Each assignment is saved separately against
the last accepted record. Numeric input that does not parse is discarded;
an empty value clears the field.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			api := g.client()
			detail, err := api.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}

			store, err := g.sessionStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			toaster := autosave.NewToaster(0)
			toaster.OnShow(func(t autosave.Toast) { fmt.Fprintf(out, "[%s] %s\n", t.Kind, t.Message) })
			sess := autosave.New(api, detail.Case, autosave.WithToaster(toaster))

			var failed int
			for _, assignment := range args[1:] {
				field, value, ok := strings.Cut(assignment, "=")
				if !ok {
					return fmt.Errorf("expected field=value, got %q", assignment)
				}
				sess.Change(field, value)
				if err := store.SetDraft(detail.ID, sess.Pending()); err != nil {
					log.Warn().Err(err).Msg("Failed to persist draft")
				}

				outcome, err := sess.Blur(ctx, field)
				switch outcome {
				case autosave.OutcomeUnchanged:
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s unchanged\n", field)
				case autosave.OutcomeReverted:
					fmt.Fprintf(out, "%s: %q is not a valid value, kept previous\n", field, value)
				case autosave.OutcomeFailed:
					failed++
				}
			}

			if err := store.ClearDraft(); err != nil {
				log.Warn().Err(err).Msg("Failed to clear draft")
			}
			fmt.Fprintf(out, "Status: %s\n", sess.Evaluate().Status)
			if failed > 0 {
				return fmt.Errorf("%d field(s) failed to save", failed)
			}
			return nil
		},
	}
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Run the model and record its recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			detail, err := g.client().AnalyzeDocument(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model prediction: %s (status %s)\n", predictionText(detail.ModelPrediction), detail.Status)
			return nil
		},
	}
}

func newDecideCmd(g *globals) *cobra.Command {
	var override bool
	cmd := &cobra.Command{
		Use:       "decide <id> accepted|rejected|clear",
		Short:     "Record the underwriter's decision",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"accepted", "rejected", "clear"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var decision *entities.Prediction
			switch strings.ToLower(args[1]) {
			case "accepted", "accept":
				p := entities.PredictionAccepted
				decision = &p
			case "rejected", "reject":
				p := entities.PredictionRejected
				decision = &p
			case "clear", "none":
			default:
				return fmt.Errorf("decision must be accepted, rejected or clear, got %q", args[1])
			}

			ctx, cancel := g.context(cmd)
			defer cancel()

			detail, err := g.client().SetHumanPrediction(ctx, args[0], decision, override)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Human prediction: %s (status %s)\n", predictionText(detail.HumanPrediction), detail.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&override, "override", false, "Accept even when required fields are invalid")
	return cmd
}

func newRenameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Set the display name of a case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			name, err := g.client().RenameDocument(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q\n", name)
			return nil
		},
	}
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a case and its PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			if err := g.client().DeleteDocument(ctx, args[0]); err != nil {
				return err
			}
			if store, err := g.sessionStore(); err == nil {
				if err := store.ForgetCase(args[0]); err != nil {
					log.Warn().Err(err).Msg("Failed to drop cached session state")
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newPredictCmd(g *globals) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "predict <id>",
		Short: "Score a case with the prediction service and show feature impacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.sessionStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cached {
				impacts, ok := store.Impacts(args[0])
				if !ok {
					return fmt.Errorf("no cached impacts for %s", args[0])
				}
				return printImpacts(out, impacts)
			}

			ctx, cancel := g.context(cmd)
			defer cancel()

			api := g.client()
			detail, err := api.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			applicant := detail.Record()
			result, err := api.Predict(ctx, applicant)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Decision: %s\n", result.Decision)
			if result.Score != nil {
				fmt.Fprintf(out, "Score: %.3f\n", *result.Score)
			}
			if result.Explanation == nil {
				return nil
			}
			if err := store.CacheExplanation(detail.ID, result.Explanation); err != nil {
				log.Warn().Err(err).Msg("Failed to cache feature impacts")
			}
			impacts, _ := store.Impacts(detail.ID)
			return printImpacts(out, impacts)
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "Show the impacts cached by the last prediction without calling the service")
	return cmd
}

func printCase(out io.Writer, detail *entities.CaseDetail) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", detail.ID)
	fmt.Fprintf(tw, "Name\t%s\n", detail.Name)
	fmt.Fprintf(tw, "File\t%s\n", detail.Filename)
	fmt.Fprintf(tw, "Uploaded\t%s\n", detail.UploadedAt)
	fmt.Fprintln(tw, "\t")

	invalid := make(map[string]bool, len(detail.InvalidFields))
	for _, name := range detail.InvalidFields {
		invalid[name] = true
	}
	rec := detail.Record()
	for _, spec := range validation.Schema {
		marker := ""
		if invalid[spec.Name] {
			marker = "  !"
		}
		fmt.Fprintf(tw, "%s\t%s%s\n", spec.Label, valueText(rec[spec.Name]), marker)
	}

	fmt.Fprintln(tw, "\t")
	fmt.Fprintf(tw, "Model prediction\t%s\n", predictionText(detail.ModelPrediction))
	fmt.Fprintf(tw, "Human prediction\t%s\n", predictionText(detail.HumanPrediction))
	fmt.Fprintf(tw, "Status\t%s\n", detail.Status)
	return tw.Flush()
}

func printImpacts(out io.Writer, impacts map[string]float64) error {
	names := make([]string, 0, len(impacts))
	for name := range impacts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return abs(impacts[names[i]]) > abs(impacts[names[j]])
	})

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tIMPACT")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%+.3f\n", name, impacts[name])
	}
	return tw.Flush()
}

func predictionText(p *entities.Prediction) string {
	if p == nil {
		return "-"
	}
	return string(*p)
}

func valueText(v any) string {
	switch value := v.(type) {
	case nil:
		return "-"
	case bool:
		if value {
			return "yes"
		}
		return "no"
	case float64:
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprint(value)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

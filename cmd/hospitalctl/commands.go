package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xavierca1/hospital-leads/internal/dashboard"
	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/importer"
)

type criteriaFlags struct {
	search string
	city   string
	status string
	sort   string
	desc   bool
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "substring over name, city, emails, phones, address")
	cmd.Flags().StringVar(&f.city, "city", dashboard.All, "exact city")
	cmd.Flags().StringVar(&f.status, "status", dashboard.All, "exact status")
	cmd.Flags().StringVar(&f.sort, "sort", "", "name or created_at")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "descending order")
}

func (f *criteriaFlags) criteria() dashboard.Criteria {
	return dashboard.Criteria{
		Search: f.search,
		City:   f.city,
		Status: f.status,
		Sort:   dashboard.SortKey(f.sort),
		Desc:   f.desc,
	}
}

func newListCmd(a *app) *cobra.Command {
	var f criteriaFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hospitals with the dashboard filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			v := s.View(f.criteria())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCITY\tSTATUS\tRATING\tSCORE")
			for _, h := range v.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\n", h.ID, h.Name, h.City, h.Status, h.ManualRating, h.Score)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			c := v.Counts
			fmt.Fprintf(cmd.OutOrStdout(), "\ntotal %d  open %d  closed %d  telemedicine %d", c.Total, c.Open, c.Closed, c.Telemedicine)
			if v.Features.ColdEmailed {
				fmt.Fprintf(cmd.OutOrStdout(), "  cold-emailed %d", c.ColdEmailed)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Insert every row of a CSV file, one at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			records, err := importer.ReadCSV(file)
			if err != nil {
				return err
			}

			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.Import(cmd.Context(), records)
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d, failed %d\n", res.Inserted, res.Skipped, res.Failed)
			for _, e := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d rows failed", res.Failed)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		f   criteriaFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered hospitals as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			rows, withColdEmailed := s.ExportRows(f.criteria())
			return importer.WriteCSV(w, rows, withColdEmailed)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <status> <id>...",
		Short: "Set the status of one or more hospitals",
		Long:  "Set the status of one or more hospitals. Valid values: " + joinStatuses() + ".",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := entity.ParseStatus(args[0])
			if err != nil {
				return err
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ids := args[1:]
			var m *dashboard.Mutation
			if len(ids) == 1 {
				m, err = s.Coordinator().SetStatus(cmd.Context(), ids[0], status)
			} else {
				m, err = s.Coordinator().BulkSetStatus(cmd.Context(), ids, status)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d updated\n", m.ID, len(m.IDs))
			return nil
		},
	}
}

func newRateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <0-5>",
		Short: "Set the manual rating; the score follows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating %q: %w", args[1], err)
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Coordinator().SetRating(cmd.Context(), args[0], rating); err != nil {
				return err
			}
			h, _ := s.Cache().Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s rated %d, score %g\n", h.Name, h.ManualRating, h.Score)
			return nil
		},
	}
}

func newColdEmailCmd(a *app) *cobra.Command {
	var (
		unset bool
		note  string
	)
	cmd := &cobra.Command{
		Use:   "cold-email <id>",
		Short: "Mark a hospital as cold emailed and record an audit row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Coordinator().SetColdEmailed(cmd.Context(), args[0], !unset, a.cfg.Operator, note); err != nil {
				return err
			}
			verb := "marked"
			if unset {
				verb = "unmarked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the flag instead")
	cmd.Flags().StringVar(&note, "note", "", "audit note")
	return cmd
}

func joinStatuses() string {
	names := make([]string, len(entity.Statuses))
	for i, s := range entity.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

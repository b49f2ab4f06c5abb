package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
	"reelvault/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the resource catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogSearchCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogStaleCommand(ctx))
	catalogCmd.AddCommand(newCatalogUnmirroredCommand(ctx))
	catalogCmd.AddCommand(newCatalogRetitleCommand(ctx))
	catalogCmd.AddCommand(newCatalogRemoveCommand(ctx))
	catalogCmd.AddCommand(newCatalogHealthCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				result, err := store.List(cmd.Context(), page)
				if err != nil {
					return err
				}
				return writePage(cmd, ctx, result, "No resources cataloged")
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func newCatalogSearchCommand(ctx *commandContext) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Search resources by title (case-insensitive substring)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withStore(func(store *catalog.Store) error {
				result, err := store.Search(cmd.Context(), query, page)
				if err != nil {
					return err
				}
				return writePage(cmd, ctx, result, fmt.Sprintf("No resources match %q", query))
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|content-key|title>",
		Short: "Show a single resource",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := strings.Join(args, " ")
			return ctx.withStore(func(store *catalog.Store) error {
				rec, err := lookupRecord(cmd, store, ref)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.FromRecord(rec))
				}
				printRecordDetail(cmd.OutOrStdout(), rec, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func newCatalogStaleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List resources whose handle awaits a refresh from the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				records, err := store.ListNeedingRefresh(cmd.Context())
				if err != nil {
					return err
				}
				return writeRecords(cmd, ctx, records, "No stale handles")
			})
		},
	}
}

func newCatalogUnmirroredCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "unmirrored",
		Short: "List resources without a vault copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				records, err := store.ListUnmirrored(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeRecords(cmd, ctx, records, "Every resource has a vault copy")
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records to list (0 for all)")
	return cmd
}

func newCatalogRetitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retitle <id> <title>",
		Short: "Change a resource title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errors.New("title is required")
			}
			return ctx.withStore(func(store *catalog.Store) error {
				if err := store.UpdateTitle(cmd.Context(), id, title); err != nil {
					return notFoundMessage(err, id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resource %d retitled to %q\n", id, title)
				return nil
			})
		},
	}
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove resources from the catalog (vault copies are kept)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]catalog.RecordID, 0, len(args))
			for _, arg := range args {
				id, err := parseRecordID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *catalog.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					err := store.Remove(cmd.Context(), id)
					switch {
					case errors.Is(err, catalog.ErrRecordNotFound):
						fmt.Fprintf(out, "Resource %d not found\n", id)
					case err != nil:
						return err
					default:
						fmt.Fprintf(out, "Resource %d removed\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newCatalogHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check catalog database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend: %s\n", health.Backend)
				fmt.Fprintf(out, "Location: %s\n", health.Location)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "records table present: %s\n", yesNo(health.TableExists))
				if len(health.MissingColumns) > 0 {
					missing := append([]string(nil), health.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total records: %d\n", health.TotalRecords)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

// lookupRecord resolves a numeric id, then a content key, then an exact title.
func lookupRecord(cmd *cobra.Command, store *catalog.Store, ref string) (*catalog.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("resource reference is required")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		rec, err := store.GetByID(cmd.Context(), catalog.RecordID(id))
		if err != nil || rec != nil {
			return rec, err
		}
	}
	rec, err := store.GetByContentKey(cmd.Context(), ref)
	if err != nil || rec != nil {
		return rec, err
	}
	rec, err = store.FindByTitle(cmd.Context(), ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("resource %q not found", ref)
	}
	return rec, nil
}

func writePage(cmd *cobra.Command, ctx *commandContext, page catalog.Page, empty string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, api.FromPage(page))
	}
	out := cmd.OutOrStdout()
	if len(page.Records) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	fmt.Fprintln(out, renderRecordTable(page.Records))
	fmt.Fprintf(out, "Page %d of %d (%d resources)\n", page.Number, page.Pages(), page.Total)
	return nil
}

func writeRecords(cmd *cobra.Command, ctx *commandContext, records []*catalog.Record, empty string) error {
	if ctx.JSONMode() {
		resources := make([]api.Resource, 0, len(records))
		for _, rec := range records {
			resources = append(resources, api.FromRecord(rec))
		}
		return writeJSON(cmd, map[string]any{"resources": resources})
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	fmt.Fprintln(out, renderRecordTable(records))
	return nil
}

func renderRecordTable(records []*catalog.Record) string {
	columns := []column{
		{Header: "ID", Align: alignRight},
		{Header: "Title", MaxWidth: 40},
		{Header: "Content Key", MaxWidth: 24},
		{Header: "Vault"},
		{Header: "Handle"},
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(int64(rec.ID), 10),
			rec.DisplayTitle(),
			rec.ContentKey,
			formatLocation(rec.Archive),
			string(rec.State()),
		})
	}
	return renderTable(columns, rows)
}

func printRecordDetail(out io.Writer, rec *catalog.Record, colorize bool) {
	for _, line := range renderSectionHeader(fmt.Sprintf("Resource %d", rec.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Title", statusInfo, rec.DisplayTitle(), colorize))
	fmt.Fprintln(out, renderStatusLine("Content key", statusInfo, rec.ContentKey, colorize))
	fmt.Fprintln(out, renderStatusLine("Handle", handleKind(rec), rec.CurrentHandle, colorize))
	fmt.Fprintln(out, renderStatusLine("Vault", vaultKind(rec), formatLocation(rec.Archive), colorize))
	if rec.Caption != "" {
		fmt.Fprintln(out, renderStatusLine("Caption", statusInfo, rec.Caption, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), colorize))
	if rec.RefreshedAt != nil {
		fmt.Fprintln(out, renderStatusLine("Handle refreshed", statusInfo, rec.RefreshedAt.Local().Format("2006-01-02 15:04:05"), colorize))
	}
}

func formatLocation(loc *catalog.ArchiveLocation) string {
	if loc == nil {
		return "-"
	}
	return loc.String()
}

func parseRecordID(arg string) (catalog.RecordID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid resource id %q", arg)
	}
	return catalog.RecordID(id), nil
}

func notFoundMessage(err error, id catalog.RecordID) error {
	if errors.Is(err, catalog.ErrRecordNotFound) {
		return fmt.Errorf("resource %d not found", id)
	}
	return err
}

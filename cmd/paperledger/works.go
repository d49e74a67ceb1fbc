package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *cli) relinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relink <work-id> <document-id>...",
		Short: "Move documents onto a work",
		Long: `Point each listed document at the given work. Documents already linked to
the work are left alone, so re-running the command changes nothing. Works
left without documents are kept and reported by "orphans".`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.Relink(ctx, ids[1:], ids[0])
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), result)
		},
	}
}

func (c *cli) primaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "primary <work-id> <document-id>",
		Short: "Mark one of a work's documents as its primary copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			work, err := svc.SetPrimaryDocument(ctx, ids[0], ids[1])
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), work)
		},
	}
}

func (c *cli) orphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List works that no document points at any more",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			works, err := svc.ListOrphanWorks(ctx)
			if err != nil {
				return err
			}
			if works == nil {
				works = []*paperledger.Work{}
			}
			return outputJSON(cmd.OutOrStdout(), works)
		},
	}
}

func (c *cli) repairCmd() *cobra.Command {
	var opts paperledger.RunOptions
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Finish documents an interrupted upload left unstamped or unlinked",
		Long: `Stamp every document that has no provenance with one "Document Repair"
provenance record, then give each document without a work its initial work.
An upload batch records its documents before stamping them, so stop other
uploads and the server first: a live batch looks the same as a broken one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := svc.RepairDocuments(ctx, opts)
			if summary != nil {
				if outErr := outputJSON(cmd.OutOrStdout(), summary); outErr != nil {
					return outErr
				}
			}
			return err
		},
	}
	runOptionFlags(cmd, &opts)
	return cmd
}

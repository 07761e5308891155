package main

import (
	"fmt"

	"projectboard/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd(open opener) *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(true)
			if err != nil {
				return err
			}
			res, err := seed.Seed(rt.db, opts)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d boards, %d columns, %d cards\n",
				res.Users, res.Boards, res.Columns, res.Cards)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.NumUsers, "users", 8, "number of users to create")
	f.IntVar(&opts.NumBoards, "boards", 3, "number of boards to create")
	f.IntVar(&opts.CardsPerColumn, "cards", 5, "cards per column")
	f.IntVar(&opts.MaxDays, "max-days", 90, "spread card creation over this many days")
	f.Int64Var(&opts.RandomSeed, "seed", 0, "random seed, 0 for time based")
	f.BoolVar(&opts.ShouldClean, "clean", false, "delete existing board data first")
	f.BoolVar(&opts.DryRun, "dry-run", false, "log generated rows without writing")
	f.BoolVar(&opts.SkipBcrypt, "skip-bcrypt", false, "store the demo password unhashed (dev only)")
	return cmd
}

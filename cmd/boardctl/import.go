package main

import (
	"fmt"
	"os"

	"projectboard/internal/service"

	"github.com/spf13/cobra"
)

func newImportCmd(open opener) *cobra.Command {
	var (
		file    string
		userRef string
		boardID uint
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Trello board export synchronously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			export, err := service.ParseTrelloExport(data)
			if err != nil {
				return err
			}
			rt, err := open(true)
			if err != nil {
				return err
			}
			user, err := findUser(cmd.Context(), rt.store, userRef)
			if err != nil {
				return err
			}
			var opts service.ImportOptions
			if boardID > 0 {
				opts.BoardID = &boardID
			}
			importer := service.NewTrelloImporter(rt.core, rt.rdb, rt.cfg.ImportTimeout())
			res, err := importer.Import(cmd.Context(), user, export, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Trello export JSON file")
	cmd.Flags().StringVarP(&userRef, "user", "u", "", "importing user (id or email)")
	cmd.Flags().UintVar(&boardID, "board-id", 0, "import into this existing board")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"projectboard/internal/service"

	"github.com/spf13/cobra"
)

func newTemplateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create boards from YAML templates and export boards as templates",
	}

	var (
		file, userRef, name string
	)
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Create a board from a template file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, err := service.LoadTemplate(file)
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
			board, err := rt.boards().ApplyTemplate(cmd.Context(), user, tpl, name, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created board %d %q\n", board.ID, board.Name)
			return nil
		},
	}
	apply.Flags().StringVarP(&file, "file", "f", "", "template YAML file")
	apply.Flags().StringVarP(&userRef, "user", "u", "", "board admin (id or email)")
	apply.Flags().StringVar(&name, "name", "", "board name, defaults to the template name")
	_ = apply.MarkFlagRequired("file")
	_ = apply.MarkFlagRequired("user")

	var (
		exportUser string
		boardID    uint
		outPath    string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a board as a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(true)
			if err != nil {
				return err
			}
			user, err := findUser(cmd.Context(), rt.store, exportUser)
			if err != nil {
				return err
			}
			data, err := rt.boards().ExportTemplate(cmd.Context(), user, boardID)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(outPath, data, 0o600)
		},
	}
	export.Flags().StringVarP(&exportUser, "user", "u", "", "exporting user (id or email)")
	export.Flags().UintVar(&boardID, "board-id", 0, "board to export")
	export.Flags().StringVarP(&outPath, "out", "o", "", "output file, stdout when empty")
	_ = export.MarkFlagRequired("user")
	_ = export.MarkFlagRequired("board-id")

	cmd.AddCommand(apply, export)
	return cmd
}

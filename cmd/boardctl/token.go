package main

import (
	"fmt"
	"strconv"

	"projectboard/internal/service"

	"github.com/spf13/cobra"
)

func newTokenCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	var (
		userRef, name, expires string
		abilities              []string
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an API token and print its plaintext once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(true)
			if err != nil {
				return err
			}
			user, err := findUser(cmd.Context(), rt.store, userRef)
			if err != nil {
				return err
			}
			in := service.IssueTokenInput{Name: name, Abilities: abilities}
			if expires != "" {
				if in.ExpiresAt, err = service.ParseDate(expires); err != nil {
					return fmt.Errorf("invalid --expires: %w", err)
				}
			}
			// The CLI prints the secret itself, so no display link is staged.
			issued, err := service.NewTokenAuthority(rt.store, nil, 0).Issue(cmd.Context(), user, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token %d %q abilities=%v\n", issued.Token.ID, issued.Token.Name, []string(issued.Token.Abilities))
			fmt.Fprintln(out, issued.Plaintext)
			return nil
		},
	}
	issue.Flags().StringVarP(&userRef, "user", "u", "", "token owner (id or email)")
	issue.Flags().StringVar(&name, "name", "", "token name")
	issue.Flags().StringSliceVar(&abilities, "ability", nil, `ability to grant, repeatable; default "*"`)
	issue.Flags().StringVar(&expires, "expires", "", "expiry date (YYYY-MM-DD or RFC 3339)")
	_ = issue.MarkFlagRequired("user")
	_ = issue.MarkFlagRequired("name")

	var listUser string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(true)
			if err != nil {
				return err
			}
			user, err := findUser(cmd.Context(), rt.store, listUser)
			if err != nil {
				return err
			}
			tokens, err := service.NewTokenAuthority(rt.store, nil, 0).List(cmd.Context(), user)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tokens)
		},
	}
	list.Flags().StringVarP(&listUser, "user", "u", "", "token owner (id or email)")
	_ = list.MarkFlagRequired("user")

	var revokeUser string
	revoke := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke one of a user's tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q", args[0])
			}
			rt, err := open(true)
			if err != nil {
				return err
			}
			user, err := findUser(cmd.Context(), rt.store, revokeUser)
			if err != nil {
				return err
			}
			if err := service.NewTokenAuthority(rt.store, nil, 0).Revoke(cmd.Context(), user, uint(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked token %d\n", id)
			return nil
		},
	}
	revoke.Flags().StringVarP(&revokeUser, "user", "u", "", "token owner (id or email)")
	_ = revoke.MarkFlagRequired("user")

	cmd.AddCommand(issue, list, revoke)
	return cmd
}

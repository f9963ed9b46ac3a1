package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia"
)

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Manage read grants",
	Long: `Manage the read grants used by permissions.policy: grants.

A grant lets a subject read every file at or below a path prefix. The
subject "*" matches every caller, anonymous ones included, and the
prefix "/" covers the whole media root.`,
}

var grantAddCmd = &cobra.Command{
	Use:   "add <subject> <prefix>",
	Short: "Grant a subject read access to a path prefix",
	Example: `  privatemedia grant add alice invoices/alice
  privatemedia grant add '*' public`,
	Args: cobra.ExactArgs(2),
	RunE: runGrantAdd,
}

var grantRemoveCmd = &cobra.Command{
	Use:   "remove <subject> <prefix>",
	Short: "Revoke a grant",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrantRemove,
}

var grantListCmd = &cobra.Command{
	Use:   "list [subject]",
	Short: "List grants, optionally for one subject",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGrantList,
}

var (
	grantJSON  bool
	grantQuiet bool
	grantYes   bool
)

func init() {
	grantCmd.PersistentFlags().BoolVar(&grantJSON, "json", false, "output JSON")
	grantCmd.PersistentFlags().BoolVarP(&grantQuiet, "quiet", "q", false, "suppress informational output")
	grantRemoveCmd.Flags().BoolVarP(&grantYes, "yes", "y", false, "do not ask for confirmation")

	grantCmd.AddCommand(grantAddCmd, grantRemoveCmd, grantListCmd)
	rootCmd.AddCommand(grantCmd)
}

// withGrantRepo opens the grants database for the duration of fn.
func withGrantRepo(cmd *cobra.Command, fn func(repo privatemedia.GrantRepo) error) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openGrantsDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return fn(db.GetRepo())
}

func runGrantAdd(cmd *cobra.Command, args []string) error {
	return withGrantRepo(cmd, func(repo privatemedia.GrantRepo) error {
		grant, err := repo.Add(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("add grant: %w", err)
		}
		return NewFormatter(grantJSON, grantQuiet).FormatGrantChange(cmd.OutOrStdout(), "Granted", grant)
	})
}

func runGrantRemove(cmd *cobra.Command, args []string) error {
	subject, prefix, err := privatemedia.NormalizeGrant(args[0], args[1])
	if err != nil {
		return err
	}

	if !grantYes {
		ok, err := confirm(cmd.OutOrStdout(), fmt.Sprintf("Revoke %s on %s", subject, displayPrefix(prefix)))
		if err != nil || !ok {
			return err
		}
	}

	return withGrantRepo(cmd, func(repo privatemedia.GrantRepo) error {
		if err := repo.Remove(cmd.Context(), subject, prefix); err != nil {
			if errors.Is(err, privatemedia.ErrNotFound) {
				return fmt.Errorf("no grant for %s on %s", subject, displayPrefix(prefix))
			}
			return fmt.Errorf("remove grant: %w", err)
		}
		return NewFormatter(grantJSON, grantQuiet).FormatGrantChange(cmd.OutOrStdout(), "Revoked",
			privatemedia.Grant{Subject: subject, PathPrefix: prefix})
	})
}

func runGrantList(cmd *cobra.Command, args []string) error {
	subject := ""
	if len(args) == 1 {
		subject = args[0]
	}

	return withGrantRepo(cmd, func(repo privatemedia.GrantRepo) error {
		grants, err := repo.List(cmd.Context(), subject)
		if err != nil {
			return fmt.Errorf("list grants: %w", err)
		}
		return NewFormatter(grantJSON, grantQuiet).FormatGrants(cmd.OutOrStdout(), grants)
	})
}

// confirm asks a yes/no question. A declined or interrupted prompt is not an error.
func confirm(w io.Writer, label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			_, _ = fmt.Fprintln(w, "Cancelled.")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

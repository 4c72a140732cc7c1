package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/suPer8Hu/genrelay/internal/auth"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/secret"
)

func newAddCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <platform> <api-key>",
		Short: "Store a new active key for a platform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			k, err := a.keys.Add(cmd.Context(), args[0], args[1], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s key %s\n", k.Platform, k.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name for the key")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys without revealing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			keys, err := a.keys.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLATFORM\tNAME\tACTIVE\tPREVIEW\tLAST USED")
			for _, k := range keys {
				last := "-"
				if k.LastUsedAt != nil {
					last = k.LastUsedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n", k.ID, k.Platform, k.KeyName, k.IsActive, k.KeyPreview, last)
			}
			return tw.Flush()
		},
	}
}

func newSetActiveCmd(a *app, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a key %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			v := active
			if _, err := a.keys.Update(cmd.Context(), args[0], credential.KeyUpdate{IsActive: &v}); err != nil {
				if credential.IsNotFound(err) {
					return fmt.Errorf("key %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd %s\n", use, args[0])
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if err := a.keys.Delete(cmd.Context(), args[0]); err != nil {
				if credential.IsNotFound(err) {
					return fmt.Errorf("key %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newImportEnvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-env",
		Short: "Register keys found in provider environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			for _, r := range a.keys.ImportFromEnv(cmd.Context(), true) {
				fmt.Fprintln(cmd.OutOrStdout(), r.Message)
			}
			return nil
		},
	}
}

func newImportFileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: `Import keys from {"keys":{"<platform>":{"apiKey":"..","keyName":".."}}}`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var in struct {
				Keys map[string]credential.ImportEntry `json:"keys"`
			}
			if err := json.Unmarshal(b, &in); err != nil || in.Keys == nil {
				return fmt.Errorf("invalid keys format in %s", args[0])
			}
			if err := a.open(); err != nil {
				return err
			}
			for _, r := range a.keys.ImportFromJSON(cmd.Context(), in.Keys) {
				fmt.Fprintln(cmd.OutOrStdout(), r.Message)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print key metadata per platform as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out, err := a.keys.Export(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newUsageCmd(a *app) *cobra.Command {
	var platform string
	var limit int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recent provider calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if platform != "" && !credential.IsValidPlatform(platform) {
				return fmt.Errorf("unknown platform %q", platform)
			}
			if err := a.open(); err != nil {
				return err
			}
			entries, err := a.log.Recent(cmd.Context(), platform, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "filter by platform")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	return cmd
}

func newGenKeyCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Generate a random ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := secret.GenerateKey(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), k)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "key size in bytes (16, 24 or 32)")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/db"
	"github.com/suPer8Hu/genrelay/internal/secret"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

type app struct {
	dsn  string
	keys *credential.Service
	log  *usage.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "keyctl",
		Short:         "Manage genrelay provider API keys",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "database DSN (default from DB_DSN)")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSetActiveCmd(a, "activate", true),
		newSetActiveCmd(a, "deactivate", false),
		newDeleteCmd(a),
		newImportEnvCmd(a),
		newImportFileCmd(a),
		newExportCmd(a),
		newUsageCmd(a),
		newGenKeyCmd(),
		newHashPasswordCmd(),
	)
	return root
}

// open connects lazily so commands that need no database stay fast.
func (a *app) open() error {
	if a.keys != nil {
		return nil
	}
	cfg := config.Load()
	dsn := a.dsn
	if dsn == "" {
		dsn = cfg.DBDSN
	}
	gdb, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	c, err := secret.FromPassphrase(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		return err
	}
	a.keys = credential.NewService(credential.NewRepo(gdb), c)
	a.log = usage.NewService(usage.NewRepo(gdb), nil)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"education-agent/internal/app"
	"education-agent/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile <session-id>",
	Short: "Print the persisted intake record for a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StateBackend == config.BackendNone {
			return errors.New("profile needs STATE_BACKEND=dynamodb or sqlite")
		}
		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, ok, err := a.Profiles.GetProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no intake record for session %q", args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

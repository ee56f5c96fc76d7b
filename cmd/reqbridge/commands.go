package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

func newImportCommand() *cobra.Command {
	var workspace bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import every requirement into the graph once",
		Long: `Fetch every requirement record, map it to a graph object and upsert the
batch. Without --workspace the configured principal is ingested first and the
objects are restricted to it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.syncSvc.ImportRequirements(cmd.Context(), model.SyncScope{Workspace: workspace})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&workspace, "workspace", false, "Grant every user access instead of the configured principal")
	return cmd
}

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete everything previous imports wrote to the graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result := a.syncSvc.DeleteByProperties(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("purge incomplete")
			}
			return nil
		},
	}
}

func newLookupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Read graph objects and users by external id",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "object <objectType> <externalId>",
		Short: "Print one graph object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			payload, err := a.lookupSvc.GetObjectByExternalID(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), payload)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "user <externalId>",
		Short: "Print one graph user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			payload, err := a.lookupSvc.GetUserByExternalID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), payload)
		},
	})

	return cmd
}

func newCredentialsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Show the active credentials with the secret masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			creds, err := a.credentials.GetActiveCredentials(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"clientId":           creds.ClientID,
				"clientSecretMasked": creds.ClientSecretMasked,
				"connectionId":       creds.ConnectionID,
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRaw prints a verbatim graph payload, or null when absent.
func printRaw(w io.Writer, payload model.GraphPayload) error {
	if len(payload) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	return printJSON(w, json.RawMessage(payload))
}

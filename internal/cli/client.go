package cli

import (
	"context"
	"fmt"

	"github.com/asteroid-belt/farrierly/internal/cli/prompts"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/spf13/cobra"
)

var (
	clientAdd     models.Client
	clientListAll bool
	clientSearch  string
	clientForce   bool
)

var clientCmd = &cobra.Command{
	Use:     "client",
	Aliases: []string{"clients"},
	Short:   "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a client",
	Long: `Add a client to the local database and queue it for sync.

Examples:
  farrierly client add --name "Meadow Farm" --phone 555-0142 --city Lexington`,
	Args: cobra.NoArgs,
	RunE: runClientAdd,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	RunE:  runClientList,
}

var clientShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a client and their horses",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientShow,
}

var clientArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a client and all of their horses",
	Long: `Archive a client. The client and every horse they own are marked
inactive and each change is queued for sync.

If no id is given, an interactive selection dialog will be shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClientArchive,
}

var clientDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a client",
	Args:    cobra.ExactArgs(1),
	RunE:    runClientDelete,
}

func init() {
	f := clientAddCmd.Flags()
	f.StringVar(&clientAdd.Name, "name", "", "Client name (required)")
	f.StringVar(&clientAdd.Phone, "phone", "", "Phone number")
	f.StringVar(&clientAdd.Email, "email", "", "Email address")
	f.StringVar(&clientAdd.Address, "address", "", "Street address")
	f.StringVar(&clientAdd.City, "city", "", "City")
	f.StringVar(&clientAdd.State, "state", "", "State")
	f.StringVar(&clientAdd.ZipCode, "zip", "", "ZIP code")
	f.StringVar(&clientAdd.Notes, "notes", "", "Free-form notes")
	_ = clientAddCmd.MarkFlagRequired("name")

	clientListCmd.Flags().BoolVarP(&clientListAll, "all", "a", false, "Include archived clients")
	clientListCmd.Flags().StringVarP(&clientSearch, "search", "s", "", "Filter by name, city or phone")

	clientArchiveCmd.Flags().BoolVarP(&clientForce, "force", "f", false, "Skip confirmation prompt")
	clientDeleteCmd.Flags().BoolVarP(&clientForce, "force", "f", false, "Skip confirmation prompt")

	clientCmd.AddCommand(clientAddCmd, clientListCmd, clientShowCmd, clientArchiveCmd, clientDeleteCmd)
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	return trackCLIError("client add", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		c := clientAdd
		if err := a.repos.Clients.Create(ctx, a.session, &c); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added client %s (%s)\n", c.Name, c.ID)
		return nil
	}))
}

func runClientList(cmd *cobra.Command, args []string) error {
	return trackCLIError("client list", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		var clients []models.Client
		var err error
		if clientSearch != "" {
			clients, err = a.repos.Clients.Search(ctx, a.session, clientSearch, 0)
		} else {
			clients, err = a.repos.Clients.List(ctx, a.session, clientListAll)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(clients) == 0 {
			_, _ = fmt.Fprintln(out, "No clients yet.")
			_, _ = fmt.Fprintln(out, "\nUse 'farrierly client add --name <name>' to add one.")
			return nil
		}

		_, _ = fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render("CLIENTS"), len(clients))
		_, _ = fmt.Fprintln(out, "──────────────────────────────────────────────────")
		for _, c := range clients {
			_, _ = fmt.Fprintf(out, "  %-30s %-36s %s\n", c.Name, c.ID, syncBadge(c.SyncStatus))
			if !c.IsActive {
				_, _ = fmt.Fprintf(out, "    %s\n", mutedStyle.Render("archived"))
			}
		}
		return nil
	}))
}

func runClientShow(cmd *cobra.Command, args []string) error {
	return trackCLIError("client show", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		c, err := a.repos.Clients.GetWithHorses(ctx, a.session, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(c.Name), syncBadge(c.SyncStatus))
		for _, line := range []struct{ label, value string }{
			{"Phone", c.Phone},
			{"Email", c.Email},
			{"Address", joinNonEmpty(", ", c.Address, c.City, c.State, c.ZipCode)},
			{"Notes", c.Notes},
		} {
			if line.value != "" {
				_, _ = fmt.Fprintf(out, "  %-8s %s\n", line.label+":", line.value)
			}
		}
		if !c.IsActive {
			_, _ = fmt.Fprintf(out, "  %s\n", mutedStyle.Render("archived"))
		}

		_, _ = fmt.Fprintf(out, "\nHorses (%d)\n", len(c.Horses))
		for _, h := range c.Horses {
			printHorse(out, &h)
		}
		return nil
	}))
}

func runClientArchive(cmd *cobra.Command, args []string) error {
	return trackCLIError("client archive", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			clients, err := a.repos.Clients.List(ctx, a.session, false)
			if err != nil {
				return err
			}
			id, err = prompts.RunClientSelector("Select a client to archive", clients)
			if err != nil {
				return err
			}
			if id == "" {
				_, _ = fmt.Fprintln(out, "No client selected. Aborting.")
				return nil
			}
		}

		c, err := a.repos.Clients.GetWithHorses(ctx, a.session, id)
		if err != nil {
			return err
		}
		if !clientForce {
			ok, err := prompts.Confirm(
				fmt.Sprintf("Archive %s?", c.Name),
				fmt.Sprintf("The client and %d horse(s) will be marked inactive.", len(c.Horses)),
			)
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(out, "Aborting.")
				return nil
			}
		}

		if err := a.repos.Clients.Archive(ctx, a.session, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Archived %s and %d horse(s)\n", c.Name, len(c.Horses))
		return nil
	}))
}

func runClientDelete(cmd *cobra.Command, args []string) error {
	return trackCLIError("client delete", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		c, err := a.repos.Clients.Get(ctx, a.session, args[0])
		if err != nil {
			return err
		}
		if !clientForce {
			ok, err := prompts.Confirm(fmt.Sprintf("Delete %s?", c.Name), "This cannot be undone.")
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(out, "Aborting.")
				return nil
			}
		}
		if err := a.repos.Clients.Delete(ctx, a.session, c.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Deleted %s\n", c.Name)
		return nil
	}))
}

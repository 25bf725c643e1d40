package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"principal-registry/internal/domain"
	"principal-registry/internal/service/security"
)

func newCreateCmd(g *globals) *cobra.Command {
	var name, email, externalID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.CreatePrincipalRequest{Name: name, Email: email}
			if cmd.Flags().Changed("external-id") {
				req.ExternalID = &externalID
			}
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				p, err := svc.Create(ctx, req)
				if err != nil {
					return err
				}
				return printPrincipal(cmd, p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Identity provider subject")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newGetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a principal by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				p, err := svc.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				return printPrincipal(cmd, p)
			})
		},
	}
}

func newGetByEmailCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get-by-email <email>",
		Short: "Show a principal by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				p, err := svc.GetByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				return printPrincipal(cmd, p)
			})
		},
	}
}

func newListCmd(g *globals) *cobra.Command {
	var (
		start, maxCount int
		state           stateFlag
		nameContains    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List principals ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filters []domain.PrincipalFilter
			if state != "" {
				filters = append(filters, domain.FilterState(domain.PrincipalState(state)))
			}
			if nameContains != "" {
				filters = append(filters, domain.FilterNameContains(nameContains))
			}
			filter := domain.FilterAll
			if len(filters) > 0 {
				filter = domain.FilterAnd(filters...)
			}
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				ps, err := svc.List(ctx, start, maxCount, filter)
				if err != nil {
					return err
				}
				return printPrincipals(cmd, ps)
			})
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Index of the first matching principal")
	cmd.Flags().IntVar(&maxCount, "max", 100, "Maximum number of principals")
	cmd.Flags().Var(&state, "state", "Only principals in this state (ENABLED, DISABLED)")
	cmd.Flags().StringVar(&nameContains, "name-contains", "", "Only names containing this text")
	return cmd
}

func newUpdateCmd(g *globals) *cobra.Command {
	var (
		name, externalID string
		active           bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a principal's name, active flag or external id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req domain.UpdatePrincipalRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("active") {
				req.Active = &active
			}
			if cmd.Flags().Changed("external-id") {
				req.ExternalID = &externalID
			}
			if len(req.Fields()) == 0 {
				return fmt.Errorf("nothing to update: set --name, --active or --external-id")
			}
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				p, err := svc.Update(ctx, args[0], req)
				if err != nil {
					return err
				}
				return printPrincipal(cmd, p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().BoolVar(&active, "active", true, "Enable (true) or disable (false) the principal")
	cmd.Flags().StringVar(&externalID, "external-id", "", "New identity provider subject")
	return cmd
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Disable a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				if err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "state": string(domain.PrincipalDisabled)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Principal %s disabled.\n", args[0])
				return nil
			})
		},
	}
}

func newAuditCmd(g *globals) *cobra.Command {
	var maxEntries int
	cmd := &cobra.Command{
		Use:   "audit <id>",
		Short: "Show a principal's audit trail, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				entries, err := svc.ListAudit(ctx, args[0], domain.PageRequest{MaxResults: maxEntries})
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(cmd.OutOrStdout(), entries)
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					detail := ""
					if e.Detail != nil {
						detail = *e.Detail
					}
					rows[i] = []string{e.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"), e.Action, e.Actor, detail}
				}
				return PrintTable(cmd.OutOrStdout(), []string{"TIME", "ACTION", "ACTOR", "DETAIL"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&maxEntries, "max", 50, "Maximum number of entries")
	return cmd
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve the --as caller to a principal id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withService(cmd, func(ctx context.Context, svc *security.PrincipalService) error {
				id, ok, err := svc.ResolveCallerID(ctx, domain.StaticIdentity(g.as))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no caller: pass --as <email>")
				}
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(cmd.OutOrStdout(), map[string]string{"principal_id": id, "email": g.as})
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

package main

import (
	"context"

	appcert "github.com/jonathanEDR/facturadorfront-sub001/internal/application/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCertificateCmd(c *cli) *cobra.Command {
	cert := &cobra.Command{
		Use:     "cert",
		Aliases: []string{"certificados"},
		Short:   "Inspect and migrate the certificates of a company",
	}

	// run loads the bridge of the company and hands it to fn
	run := func(fn func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			companyID, err := c.companyID()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			b := appcert.NewBridge(c.client,
				appcert.WithPreferHybrid(c.cfg.Certificate.PreferHybrid),
				appcert.WithExpiryWarningDays(c.cfg.Certificate.ExpiryWarningDays),
				appcert.WithLogger(c.log),
				appcert.WithConfigChange(func(_ context.Context, v certificate.LegacyView) {
					c.log.Info("Certificate configuration changed",
						zap.String("company_id", v.CompanyID),
						zap.String("source", string(v.Source)),
					)
				}),
			)
			defer b.Close()
			if err := b.Load(ctx, companyID); err != nil {
				return err
			}
			return fn(ctx, cmd, b, args)
		}
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show presence, migration strategy and the active certificate",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, cmd *cobra.Command, b *appcert.Bridge, _ []string) error {
			state := b.Snapshot()
			return printJSON(cmd, dto.CertificateStatusResponse{
				CompanyID: state.CompanyID,
				Presence:  state.Presence,
				Strategy:  state.Strategy,
				Active:    dto.NewActiveCertificateResponse(b.GetActiveUnifiedCertificate()),
				Registry:  state.Registry,
				Legacy:    state.Legacy,
				View:      b.LegacyView(),
				Expiring:  b.Expiring(),
				SyncedAt:  state.SyncedAt,
			})
		}),
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the legacy certificate into the registry and disable it",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, _ []string) error {
			record, err := b.ExecuteMigration(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, dto.MigrationResponse{Record: record, View: b.LegacyView()})
		}),
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Re-read both representations and print the legacy view",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, _ []string) error {
			view, err := b.ForceSync(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}

	var reason string
	activate := &cobra.Command{
		Use:   "activate CERT_ID",
		Short: "Make a registry certificate the active one",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, args []string) error {
			registry, err := b.ActivateCertificate(ctx, args[0], reason)
			if err != nil {
				return err
			}
			return printJSON(cmd, registry)
		}),
	}
	activate.Flags().StringVar(&reason, "razon", "", "Reason recorded with the activation")

	deactivate := &cobra.Command{
		Use:   "deactivate CERT_ID",
		Short: "Disable a registry certificate",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, args []string) error {
			registry, err := b.DeactivateCertificate(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, registry)
		}),
	}

	remove := &cobra.Command{
		Use:   "delete CERT_ID",
		Short: "Remove a registry certificate",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, b *appcert.Bridge, args []string) error {
			registry, err := b.DeleteCertificate(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, registry)
		}),
	}

	cert.AddCommand(status, migrate, sync, activate, deactivate, remove)
	return cert
}

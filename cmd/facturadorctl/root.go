package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/authority"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/cache"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/config"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds what every command needs once the root pre-run has finished
type cli struct {
	configPath string
	token      string
	company    string
	timeout    time.Duration

	cfg    *config.Config
	log    *zap.Logger
	cache  shared.Cache
	client *authority.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "facturadorctl",
		Short:         "Manage document numbering and certificates of a company",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to config.toml (default: ./config.toml, /etc/facturador)")
	flags.StringVar(&c.token, "token", "", "Bearer token (default: authority.token)")
	flags.StringVar(&c.company, "empresa", "", "Company id (default: company claim of the token)")
	flags.DurationVar(&c.timeout, "timeout", 30*time.Second, "Timeout of one command")

	root.AddCommand(newNumberingCmds(c)...)
	root.AddCommand(newCertificateCmd(c))
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFrom(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.token == "" {
		c.token = cfg.Authority.Token
	}

	logCfg := logger.NewConfig(cfg.Log, "facturadorctl")
	logCfg.Format = "console"
	c.log = logger.NewWithWriter(logCfg, cmd.ErrOrStderr())

	respCache, err := cache.NewFactory(cfg.Cache, cfg.Redis, cache.WithLogger(c.log)).Create()
	if err != nil {
		return err
	}
	c.cache = respCache

	c.client, err = authority.NewClient(
		authority.NewConfig(cfg.Authority, cfg.Cache),
		auth.NewStaticTokenProvider(c.token),
		authority.WithCache(respCache),
		authority.WithLogger(c.log),
	)
	return err
}

func (c *cli) teardown() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// companyID returns the --empresa flag or the company claim of the token
func (c *cli) companyID() (string, error) {
	if c.company != "" {
		return c.company, nil
	}
	if claims, err := auth.Inspect(c.token, time.Now()); err == nil && claims.CompanyID != "" {
		return claims.CompanyID, nil
	}
	return "", errors.New("company id unknown: pass --empresa or use a token with a company claim")
}

// printJSON writes v to the command output as indented JSON
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

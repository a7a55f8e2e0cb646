package cli

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/vlei-verifier-client/internal/app"
	"github.com/samvad-hq/vlei-verifier-client/internal/config"
	"github.com/samvad-hq/vlei-verifier-client/internal/logger"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand. Non-empty values
// override the loaded configuration.
type rootOptions struct {
	BaseURL  string
	LogLevel string
	Pretty   bool
}

func (o *rootOptions) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.BaseURL, "base-url", "",
		"verifier base URL (overrides VERIFIER_BASE_URL)")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "",
		"log level: debug, info, warn or error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&o.Pretty, "pretty", false,
		"indent the JSON written to stdout")
}

// session is the state built once per invocation in PersistentPreRunE.
type session struct {
	opts   *rootOptions
	runner *app.Runner
	log    *logger.ZapLogger
}

// New builds the verifier-client command tree.
func New() *cobra.Command {
	s := &session{opts: &rootOptions{}}

	cmd := &cobra.Command{
		Use:           "verifier-client",
		Short:         "Client for the vLEI verifier service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd)
		},
	}
	s.opts.addFlags(cmd)

	cmd.AddCommand(authorizationCmd(s))
	cmd.AddCommand(presentationCmd(s))
	cmd.AddCommand(verifyHeadersCmd(s))
	cmd.AddCommand(verifySignatureCmd(s))
	cmd.AddCommand(addRootOfTrustCmd(s))
	cmd.AddCommand(statusCmd(s))
	cmd.AddCommand(resolveCmd(s))
	return cmd
}

func (s *session) open(cmd *cobra.Command) error {
	// cobra checks required flags after the pre-run hooks; fail before
	// opening the route cache so nothing is left unclosed.
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(s.opts.BaseURL); v != "" {
		cfg.VerifierBaseURL = v
	}
	if v := strings.TrimSpace(s.opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	s.log = log
	log.DebugObj("verifier-client starting", "config", cfg)

	runner, err := app.NewRunner(cmd.Context(), cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize runner", "error", err)
		_ = log.Close()
		return err
	}
	s.runner = runner
	return nil
}

func (s *session) close() {
	if s.runner != nil {
		defer func() { s.runner = nil }()
		if err := s.runner.Close(); err != nil {
			s.log.ErrorObj("runner close failed", "error", err)
		}
	}
	if s.log != nil {
		_ = s.log.Close()
	}
}

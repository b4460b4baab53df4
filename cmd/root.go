package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/config"
	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/logger"
)

var (
	basePath string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pgblueprint",
	Short: "Compile table blueprints into PostgreSQL DDL and migrations",
	Long: `pgblueprint compiles table blueprints, declared in YAML or as tagged Go
structs, into PostgreSQL DDL, writes migration files and applies them.

Examples:

  pgblueprint init
  pgblueprint compile
  pgblueprint generate --label "add users"
  pgblueprint migrate
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(basePath)
		if err != nil {
			return err
		}
		log = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		cmd.SetContext(log.WithContext(cmd.Context()))
		log.Debug().Str("env", cfg.EnvFile()).Str("migrations", cfg.MigrationsPath).Msg("configuration loaded")
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("❌ %v", err)
		os.Exit(1)
	}
}

func defaultBasePath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "iframework"
	}
	return filepath.Join(wd, "iframework")
}

// dialect returns the PostgreSQL grammar with the configured table prefix.
func dialect() *grammar.Postgres {
	return grammar.NewPostgres(cfg.TablePrefix)
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&basePath, "base", defaultBasePath(), "Framework directory; app, config and drive live next to it")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
}

func printStatements(title string, statements []string) {
	color.New(color.FgCyan, color.Bold).Println(title)
	if len(statements) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, stmt := range statements {
		fmt.Println(stmt)
	}
}

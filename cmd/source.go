package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/database"
	"github.com/ridoystarlord/pgblueprint/loader"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// blueprintSource selects where blueprints are read from.
type blueprintSource struct {
	file   string
	models string
	tags   bool
}

func (s *blueprintSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "Schema YAML file (default from configuration)")
	cmd.Flags().StringVarP(&s.models, "models", "m", "", "Models directory for --tags (default from configuration)")
	cmd.Flags().BoolVar(&s.tags, "tags", false, "Read blueprints from Go structs with blueprint tags")
}

func (s *blueprintSource) load() ([]*schema.Blueprint, error) {
	if s.tags {
		dir := s.models
		if dir == "" {
			dir = cfg.ModelsPath
		}
		log.Debug().Str("models", dir).Msg("loading blueprints from struct tags")
		blueprints, err := loader.LoadBlueprintsFromTags(dir)
		if err != nil {
			return nil, fmt.Errorf("loading models from structs: %w", err)
		}
		return blueprints, nil
	}

	file := s.file
	if file == "" {
		file = cfg.SchemaFile
	}
	log.Debug().Str("file", file).Msg("loading blueprints from YAML")
	blueprints, err := loader.LoadBlueprintsFromYAML(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return blueprints, nil
}

func openDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	url, err := cfg.RequireDatabaseURL()
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, url)
}

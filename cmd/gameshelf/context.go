package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gameshelf/internal/config"
	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/resolution"
	"gameshelf/internal/services"
)

type serviceFactory func(cfg *config.Config, logger *slog.Logger) (*resolution.Service, error)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	userFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	newService serviceFactory
}

func newCommandContext(configFlag *string, jsonFlag *bool, userFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		userFlag:   userFlag,
		newService: func(cfg *config.Config, logger *slog.Logger) (*resolution.Service, error) {
			return resolution.New(cfg, logger)
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) user() string {
	if c.userFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.userFlag)
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// withService builds a Service for one command and closes it afterwards.
func (c *commandContext) withService(fn func(*resolution.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}
	svc, err := c.newService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return fn(svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// parseIDArgs accepts IDs as separate arguments, comma lists, or both.
func parseIDArgs(args []string) ([]games.ID, error) {
	ids, err := games.ParseIDs(strings.Join(args, ","))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "cli", "parse ids", "at least one id is required", nil)
	}
	return ids, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatYear(rec games.Record) string {
	if year := rec.ReleaseYear(); year > 0 {
		return fmt.Sprintf("%d", year)
	}
	return "-"
}

func formatRating(value float64) string {
	if value <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", value)
}

func recordStatus(rec games.Record) string {
	if rec.Fallback == games.FallbackNone {
		return "ok"
	}
	return string(rec.Fallback)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhaopengme/transclaw/pkg/config"
	"github.com/zhaopengme/transclaw/pkg/handlers"
)

// loadToolConfig reads the config without requiring a bot token.
func loadToolConfig(path string) (*config.Config, error) {
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newTranslateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text once and print the reply the bot would send",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig(*configPath)
			if err != nil {
				return err
			}
			translator, _, err := buildServices(cfg)
			if err != nil {
				return err
			}

			res := translator.Translate(cmd.Context(), strings.Join(args, " "))
			cmd.Println(handlers.FormatTextReply(res, cfg.Translation.TargetLanguage))
			return nil
		},
	}
}

func newExtractCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract and translate the text in an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig(*configPath)
			if err != nil {
				return err
			}
			_, extraction, err := buildServices(cfg)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			res := extraction.Process(cmd.Context(), data)
			cmd.Println(handlers.FormatImageReply(res, cfg.Translation.TargetLanguage))
			return nil
		},
	}
}

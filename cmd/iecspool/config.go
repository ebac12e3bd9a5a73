/*
 * IECPrint - Print server configuration file.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rcornwell/iecprint/spool"
)

// Load configuration, empty path gives defaults.
func loadConfig(path string) (spool.Config, error) {
	cfg := spool.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("http", cfg.HTTP)
	v.SetDefault("out_dir", cfg.OutDir)
	v.SetDefault("width", cfg.Width)
	v.SetDefault("dpi", cfg.DPI)
	v.SetDefault("paper_width", cfg.PaperWidth)
	v.SetDefault("paper_height", cfg.PaperHeight)
	v.SetDefault("print", cfg.Print)
	v.SetDefault("print_cmd", cfg.PrintCmd)
	v.SetDefault("history", cfg.History)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetEnvPrefix("IECSPOOL")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return spool.Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return spool.Config{}, err
	}
	if cfg.Width <= 0 || cfg.DPI <= 0 {
		return spool.Config{}, fmt.Errorf("width and dpi must be positive")
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	var cfgPath string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	dump.Flags().StringVarP(&cfgPath, "config", "c", "", "Configuration file")
	cmd.AddCommand(dump)
	return cmd
}

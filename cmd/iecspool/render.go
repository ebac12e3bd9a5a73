/*
 * IECPrint - Print server render command.
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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcornwell/iecprint/spool/mps803"
)

func newRenderCmd() *cobra.Command {
	var cfgPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "render [flags] file...",
		Short: "Render captured jobs to BMP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			for _, name := range args {
				raw, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				dir := outDir
				if dir == "" {
					dir = filepath.Dir(name)
				}
				base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".bmp"
				img := mps803.Render(raw, cfg.Width)
				files, err := mps803.WriteBMP(filepath.Join(dir, base), mps803.Layout(img, cfg.Paper()))
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory, default next to input")
	return cmd
}

/*
 * IECPrint - Print server command.
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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcornwell/iecprint/util/logger"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("iecspool failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logFile string
	var debug bool
	var file *os.File

	root := &cobra.Command{
		Use:           "iecspool",
		Short:         "Receive, render and print jobs from the IEC printer interface",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := new(slog.LevelVar)
			level.Set(slog.LevelInfo)
			if debug {
				level.Set(slog.LevelDebug)
			}
			if logFile != "" {
				var err error
				file, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
			}
			h := logger.NewHandler(file, &slog.HandlerOptions{Level: level}, debug)
			h.SetConsole(cmd.ErrOrStderr())
			slog.SetDefault(slog.New(h))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if file != nil {
				file.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&logFile, "log", "l", "", "Log file")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log debug to console")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newConfigCmd())
	return root
}

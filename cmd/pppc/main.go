// Copyright (c) 2024 PT Defender Nusa Semesta and contributors, All rights reserved.
//
// This file is part of PPP Connectors.
//
// PPP Connectors is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation version 3 of the License.
//
// PPP Connectors is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PPP Connectors. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/defenxor/ppp-connectors/internal/pkg/server"
	"github.com/defenxor/ppp-connectors/internal/pkg/shared/apm"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
	"github.com/defenxor/ppp-connectors/internal/pkg/shared/pprof"
	"github.com/defenxor/ppp-connectors/pkg/broker"
	"github.com/defenxor/ppp-connectors/pkg/config"
	"github.com/defenxor/ppp-connectors/pkg/connector"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const progName = "pppc"

var version string
var buildTime string

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug messages for tracing and troubleshooting")
	rootCmd.PersistentFlags().StringP("env-file", "f", "", "KEY=VALUE file to read credentials from, default is the nearest .env")
	rootCmd.PersistentFlags().Bool("apm", false, "Enable elastic APM instrumentation")
	rootCmd.PersistentFlags().DurationP("timeout", "t", 0, "Client timeout for a single upstream request, 0 leaves it to the transport")
	listCmd.Flags().StringP("output", "o", "table", "Output format, can be table, json, or yaml")
	callCmd.Flags().String("profile", "", "Write a cpu|memory|mutex|block profile of the call to the temp directory")
	serverCmd.Flags().StringP("address", "a", "127.0.0.1", "IP address for the HTTP server to listen on")
	serverCmd.Flags().IntP("port", "p", 8080, "TCP port for the HTTP server to listen on")
	serverCmd.Flags().Bool("pprof", false, "Enable go pprof on the web interface")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	viper.BindPFlag("apm", rootCmd.PersistentFlags().Lookup("apm"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("output", listCmd.Flags().Lookup("output"))
	viper.BindPFlag("profile", callCmd.Flags().Lookup("profile"))
	viper.BindPFlag("address", serverCmd.Flags().Lookup("address"))
	viper.BindPFlag("port", serverCmd.Flags().Lookup("port"))
	viper.BindPFlag("pprof", serverCmd.Flags().Lookup("pprof"))
}

func initConfig() {
	viper.SetEnvPrefix(progName)
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exit("Error returned from command", err)
	}
}

func exit(msg string, err error) {
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   progName,
	Short: "Threat intel API connectors",
	Long: `
pppc calls third-party threat intelligence APIs (Flashpoint, IPQualityScore,
SpyCloud, Twilio, urlscan.io) using credentials from a .env file or the
environment, and prints the raw responses.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long:  `Print the version and build information`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version, buildTime)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available operations",
	Long:  `List available operations together with the configuration keys each of them requires`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := connector.WriteCatalog(os.Stdout, viper.GetString("output")); err != nil {
			exit("Cannot write operation table", err)
		}
	},
}

var callCmd = &cobra.Command{
	Use:   "call <operation> [name=value ...]",
	Short: "Run an operation once",
	Long: `
Run an operation once and print the response body to stdout. The HTTP status
is printed to stderr. Arguments are given as name=value pairs, bare values
fill the operation's parameters in order.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setup()
		err := withProfile(viper.GetString("profile"), os.TempDir(), func() error {
			e, err := newExecutor()
			if err != nil {
				return fmt.Errorf("cannot initialize connectors: %w", err)
			}
			return runCall(context.Background(), e, os.Stdout, os.Stderr, args[0], args[1:])
		})
		if err != nil {
			if config.IsMissingKeys(err) {
				color.New(color.FgRed).Fprintln(os.Stderr, missingKeysMessage(err))
				os.Exit(1)
			}
			exit("Cannot run "+args[0], err)
		}
	},
}

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `
Start an HTTP server that runs operations on request. GET /operations lists
them, GET or POST /operations/<name> runs one and relays the upstream response.`,
	Run: func(cmd *cobra.Command, args []string) {
		setup()
		e, err := newExecutor()
		if err != nil {
			exit("Cannot initialize connectors", err)
		}
		s, err := server.New(server.Config{
			Addr:     viper.GetString("address"),
			Port:     viper.GetInt("port"),
			Executor: e,
			Timeout:  viper.GetDuration("timeout"),
			Pprof:    viper.GetBool("pprof"),
		})
		if err != nil {
			exit("Incorrect server configuration", err)
		}
		log.Info(log.M{Msg: "Starting " + progName + " " + version})

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			log.Info(log.M{Msg: "Shutting down server"})
			if err := s.Shutdown(); err != nil {
				log.Warn(log.M{Msg: "Error while shutting down: " + err.Error()})
			}
		}()

		if err := s.Start(); err != nil {
			exit("Error from server", err)
		}
	},
}

func setup() {
	if err := log.Setup(viper.GetBool("debug")); err != nil {
		exit("Cannot initialize logger", err)
	}
	apm.Enable(viper.GetBool("apm"))
}

func newExecutor() (*connector.Executor, error) {
	cfg, err := config.Resolve(config.Options{File: viper.GetString("env-file")})
	if err != nil {
		return nil, err
	}
	if cfg.File() != "" {
		log.Debug(log.M{Msg: "Read configuration from " + cfg.File()})
	}
	b, err := broker.New(cfg,
		broker.WithTimeout(viper.GetDuration("timeout")),
		broker.WithAPM(apm.Enabled()))
	if err != nil {
		return nil, err
	}
	return connector.NewExecutor(cfg, b), nil
}

// withProfile runs fn under the named profiler, if any. The profile is
// flushed before returning, whether fn fails or not.
func withProfile(p, dir string, fn func() error) error {
	if p == "" {
		return fn()
	}
	prof, err := pprof.GetProfiler(p, dir)
	if err != nil {
		return err
	}
	log.Info(log.M{Msg: "Writing " + p + " profile to " + dir})
	defer prof.Stop()
	return fn()
}

// runCall runs one operation, writing the status line to status and the
// body to out. Non-2xx responses are printed like any other.
func runCall(ctx context.Context, e *connector.Executor, out, status io.Writer, name string, tokens []string) error {
	op, ok := connector.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", connector.ErrUnknownOperation, name)
	}
	args, err := connector.ParseArgs(op, tokens)
	if err != nil {
		return err
	}
	resp, err := e.Call(ctx, name, args)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	statusColor(resp.StatusCode).Fprintln(status, resp.Proto, resp.Status)
	_, err = io.Copy(out, resp.Body)
	return err
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 400:
		return color.New(color.FgRed)
	case code >= 300:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func missingKeysMessage(err error) string {
	var mk *config.MissingKeysError
	if !errors.As(err, &mk) {
		return "[!] Error: " + err.Error()
	}
	return "[!] Error: " + mk.Error() + ". Please ensure these are present either in your .env file, or in the system's environment variables."
}

// Package main implements the realmdbg CLI tool for inspecting a remote
// database engine through its debug server.
//
// The tool runs the connection bootstrap against the configured candidate
// hosts, opens a realm, and reports its path and schema version. It can also
// clear all engine instances on the remote side for test isolation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/remoterealm/remoterealm/bootstrap"
	"github.com/remoterealm/remoterealm/realm"
	"github.com/remoterealm/remoterealm/rpc"
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `realmdbg

A development utility for inspecting a remote database engine through its
debug server.

Usage:
  %s [options]

Options:
`, os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  %s -path=default.realm
  %s -config=realmdbg.toml -verbose
  %s -clear-test-state

`, os.Args[0], os.Args[0], os.Args[0])
}

// promptCredentials interactively prompts for a username and password when
// the debug server requires authentication.
func promptCredentials() (username, password string, err error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, err = reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", fmt.Errorf("username cannot be empty")
	}

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	password = strings.TrimSpace(string(passwordBytes))
	if password == "" {
		return "", "", fmt.Errorf("password cannot be empty")
	}

	return username, password, nil
}

func main() {
	var (
		configPath     string
		realmPath      string
		clearTestState bool
		verbose        bool
		showHelp       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to a TOML bootstrap configuration file")
	flag.StringVar(&realmPath, "path", "", "Realm file path to open (defaults to the engine default)")
	flag.BoolVar(&clearTestState, "clear-test-state", false, "Discard every engine instance on the remote side and exit")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&showHelp, "help", false, "Show usage information")
	flag.Usage = printUsage
	flag.Parse()

	if showHelp {
		printUsage()
		os.Exit(0)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.TraceLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	registry := rpc.NewRegistry()
	if err := realm.RegisterConverters(registry); err != nil {
		logger.Fatal().Err(err).Msg("failed to register type converters")
	}

	ctx := context.Background()
	channel, err := bootstrap.Establish(ctx, cfg, registry, bootstrap.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	realm.Init(channel)

	if clearTestState {
		if err := realm.ClearTestState(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to clear test state")
		}
		logger.Info().Msg("remote test state cleared")
		return
	}

	r, err := openRealm(ctx, logger, channel, realmPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open realm")
	}

	path, err := r.Path(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read realm path")
	}
	version, err := r.SchemaVersion(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read schema version")
	}

	fmt.Printf("Realm:          %s\n", r.ID())
	fmt.Printf("Path:           %s\n", path)
	fmt.Printf("Schema version: %d\n", version)

	if err := r.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to close realm")
	}
}

// openRealm opens a realm, prompting for credentials and retrying once when
// the debug server rejects the session as unauthenticated.
func openRealm(ctx context.Context, logger zerolog.Logger, channel *rpc.Channel, path string) (*realm.Realm, error) {
	r, err := realm.New(ctx, realm.Config{Path: path})
	if err == nil || !isUnauthorized(err) {
		return r, err
	}

	logger.Info().Msg("debug server requires authentication")
	username, password, promptErr := promptCredentials()
	if promptErr != nil {
		return nil, promptErr
	}

	token, loginErr := channel.Login(ctx, username, password)
	if loginErr != nil {
		return nil, loginErr
	}
	channel.SetToken(token)

	return realm.New(ctx, realm.Config{Path: path})
}

func isUnauthorized(err error) bool {
	return rpc.IsRPCError(err) && strings.Contains(strings.ToLower(err.Error()), "unauthorized")
}

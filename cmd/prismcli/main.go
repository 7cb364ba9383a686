package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	didprism "github.com/did-method-prism/go-didprism"

	"github.com/urfave/cli/v3"
)

const PRISMCLI_USER_AGENT = "go-didprism/prismcli"

func main() {
	app := cli.Command{
		Name:  "prismcli",
		Usage: "simple CLI client tool for prism DID resolution",
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "resolver-url",
			Usage:   "method, hostname, and port of the Prism Node resolver",
			Value:   "http://localhost:8080",
			Sources: cli.EnvVars("PRISM_RESOLVER_URL"),
		},
		&cli.StringFlag{
			Name:    "ledger",
			Usage:   "ledger (network) to resolve against, e.g. mainnet or preprod",
			Sources: cli.EnvVars("PRISM_LEDGER"),
		},
	}
	versionFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "version-id",
			Usage: "resolve a specific version of the DID document",
		},
		&cli.StringFlag{
			Name:  "version-time",
			Usage: "resolve the version current at the given instant (RFC 3339)",
		},
		&cli.BoolFlag{
			Name:  "include-network",
			Usage: "include the network identifier in returned identifiers",
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:      "resolve",
			Usage:     "resolve a DID to its full resolution result",
			ArgsUsage: "<did>",
			Action:    runResolve,
			Flags:     versionFlags,
		},
		{
			Name:      "doc",
			Usage:     "resolve a DID to its bare DID document",
			ArgsUsage: "<did>",
			Action:    runDoc,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "accept",
					Usage: "response media type; one of 'application/did+ld+json' or 'application/did+json'",
					Value: didprism.AcceptDIDLDJSON,
				},
			}, versionFlags...),
		},
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(h))
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Println("Error:", err)
		os.Exit(-1)
	}
}

func parseArgs(cmd *cli.Command) (string, *didprism.ResolutionOptions, error) {
	s := cmd.Args().First()
	if s == "" {
		return "", nil, fmt.Errorf("need to provide DID as an argument")
	}

	did, err := syntax.ParseDID(s)
	if err != nil {
		return "", nil, err
	}

	var opts didprism.ResolutionOptions
	if v := cmd.String("version-id"); v != "" {
		opts.VersionID = v
	}
	if v := cmd.String("version-time"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", nil, fmt.Errorf("invalid --version-time: %w", err)
		}
		opts.VersionTime = &ts
	}
	if cmd.IsSet("include-network") {
		inc := cmd.Bool("include-network")
		opts.IncludeNetworkIdentifier = &inc
	}

	return did.String(), &opts, nil
}

func newClient(cmd *cli.Command) *didprism.Client {
	return didprism.DefaultClient(didprism.ClientConfig{
		ResolverURL:   cmd.String("resolver-url"),
		DefaultLedger: cmd.String("ledger"),
		UserAgent:     PRISMCLI_USER_AGENT,
	})
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}

func runResolve(ctx context.Context, cmd *cli.Command) error {
	did, opts, err := parseArgs(cmd)
	if err != nil {
		return err
	}

	res, err := newClient(cmd).ResolveResult(ctx, did, opts, "")
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDoc(ctx context.Context, cmd *cli.Command) error {
	did, opts, err := parseArgs(cmd)
	if err != nil {
		return err
	}

	doc, err := newClient(cmd).ResolveDocument(ctx, did, opts, "", cmd.String("accept"))
	if err != nil {
		return err
	}
	return printJSON(doc)
}

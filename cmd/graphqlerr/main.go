package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hanpama/graphqlerr/internal/config"
	"github.com/hanpama/graphqlerr/internal/errfmt"
	"github.com/hanpama/graphqlerr/internal/eventbus"
	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/fixture"
	"github.com/hanpama/graphqlerr/internal/introspection"
	"github.com/hanpama/graphqlerr/internal/language"
	"github.com/hanpama/graphqlerr/internal/logging"
	"github.com/hanpama/graphqlerr/internal/otel"
	"github.com/hanpama/graphqlerr/internal/schema"
	"github.com/hanpama/graphqlerr/internal/server"
)

const rootUsage = `graphqlerr - GraphQL error presentation playground

USAGE:
  graphqlerr <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint backed by YAML fixtures
  query            Execute one query against the fixtures and print the response
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                      YAML configuration file
  -schema <file>                      GraphQL SDL schema (required)
  -fixtures <file>                    YAML resolver fixtures
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.debug                       Add the "exception" extension to errors.
                                      Never enable on untrusted networks
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes N            Maximum request body size (default: 1048576)
  -server.metadata-header <name>      Forward HTTP header to gRPC metadata. Repeatable
  -server.cors-origin <origin>        Allowed CORS origin. Repeatable
  -server.introspection <bool>        Answer __schema and __type queries (default: true)
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: graphqlerr)
  -log.level <level>                  Log level (default: info)
  -log.format <json|console>          Log format (default: console)

Every flag can also be set in the configuration file or as an environment
variable: -server.addr is GRAPHQLERR_SERVER_ADDR.
`

const queryUsage = `query FLAGS:
  -schema <file>                      GraphQL SDL schema (required)
  -fixtures <file>                    YAML resolver fixtures
  -variables <json>                   Variables as a JSON object
  -operation <name>                   Operation to run
  -server.debug                       Add the "exception" extension to errors
  (the query is read from the first argument, or stdin when absent)
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "query":
		return cmdQuery(cmdArgs, stdin, stdout, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "query":
		fmt.Fprint(stdout, queryUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	cfg, err := config.Load(fs.Lookup("config").Value.String(), fs)
	if err != nil {
		return err
	}
	if cfg.Log.Output == nil {
		cfg.Log.Output = stderr
	}
	logger := logging.New(cfg.Log)

	sch, rt, err := load(cfg.Schema, cfg.Fixtures)
	if err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	if cfg.Server.Introspection {
		w := introspection.Wrap(rt, sch)
		sch, rt = w.Schema, w.Runtime
	}

	eventbus.Use(eventbus.New())
	defer logging.Subscribe(logger)()
	shutdown, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := server.New(rt, sch, serverOptions(cfg.Server)...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return listen(ctx, logger, &http.Server{Addr: cfg.Server.Addr, Handler: mux}, cfg.Server.Debug)
}

func serverOptions(c config.Server) []server.Option {
	var opts []server.Option
	if c.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if c.Timeout > 0 {
		opts = append(opts, server.WithTimeout(c.Timeout))
	}
	if c.MaxBodyBytes > 0 {
		opts = append(opts, server.WithMaxBodyBytes(c.MaxBodyBytes))
	}
	if len(c.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(c.MetadataHeaders...))
	}
	if len(c.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(c.CORSOrigins...))
	}
	return append(opts, server.WithDebug(c.Debug))
}

func listen(ctx context.Context, logger zerolog.Logger, srv *http.Server, debug bool) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	ev := logger.Info()
	if debug {
		ev = logger.Warn()
	}
	ev.Str("addr", srv.Addr).Bool("debug", debug).Msg("GraphQL server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cmdQuery(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		schemaPath, fixturesPath, variables, operation string
		debug                                          bool
	)
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", "", "GraphQL SDL schema")
	fs.StringVar(&fixturesPath, "fixtures", "", "YAML resolver fixtures")
	fs.StringVar(&variables, "variables", "", "variables as a JSON object")
	fs.StringVar(&operation, "operation", "", "operation to run")
	fs.BoolVar(&debug, "server.debug", false, "add the exception extension to errors")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, queryUsage)
		return err
	}

	sch, rt, err := load(schemaPath, fixturesPath)
	if err != nil {
		fmt.Fprint(stderr, queryUsage)
		return err
	}
	w := introspection.Wrap(rt, sch)

	query := fs.Arg(0)
	if query == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read query: %w", err)
		}
		query = string(b)
	}
	vars := map[string]any{}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &vars); err != nil {
			return fmt.Errorf("parse -variables: %w", err)
		}
	}

	var res *executor.ExecutionResult
	if doc, err := language.ParseQuery(query); err != nil {
		res = &executor.ExecutionResult{Errors: []executor.GraphQLError{server.SyntaxError(err)}}
	} else {
		res = executor.NewExecutor(w.Runtime, w.Schema).ExecuteRequest(context.Background(), doc, operation, vars, nil)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(server.Response{Data: res.Data, Errors: errfmt.FormatErrors(res, errfmt.Default, debug)})
}

// load reads the schema and, when fixturesPath is set, the fixtures serving it.
func load(schemaPath, fixturesPath string) (*schema.Schema, executor.Runtime, error) {
	if schemaPath == "" {
		return nil, nil, fmt.Errorf("-schema is required")
	}
	sdl, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.Build(schemaPath, string(sdl))
	if err != nil {
		return nil, nil, fmt.Errorf("build schema: %w", err)
	}
	if fixturesPath == "" {
		rt, err := fixture.NewRuntime(fixture.File{}, sch)
		return sch, rt, err
	}
	rt, err := fixture.Load(fixturesPath, sch)
	if err != nil {
		return nil, nil, err
	}
	return sch, rt, nil
}

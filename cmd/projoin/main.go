package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/skaldby/projoin/internal/codec"
	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/eventbus"
	"github.com/skaldby/projoin/internal/metrics"
	"github.com/skaldby/projoin/internal/otel"
	"github.com/skaldby/projoin/internal/projection"
	"github.com/skaldby/projoin/internal/schema"
	"github.com/skaldby/projoin/internal/selection"
	"github.com/skaldby/projoin/internal/server"
	"github.com/skaldby/projoin/internal/storage/sqlite"
)

const rootUsage = `projoin — document field projection & reference joins

USAGE:
  projoin <command> [flags]

COMMANDS:
  serve            Run the projection HTTP service over a document store
  project          Project JSONL documents from stdin to stdout
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema.registry <file>   Document type registry JSON (required; or PROJOIN_REGISTRY)
  -db.path <file>           SQLite document store path (default: projoin.db; or PROJOIN_DB)
  -server.addr <addr>       HTTP listen address (default: :8080; or PROJOIN_ADDR)
  -server.pretty            Pretty-print JSON responses
  -server.timeout <dur>     Per-request timeout, e.g. 10s (default: 10s)
  -otel.endpoint <addr>     OTLP collector endpoint (or PROJOIN_OTEL_ENDPOINT)
  -otel.service <name>      OpenTelemetry service name (default: projoin)
`

const projectUsage = `project FLAGS:
  -schema.registry <file>   Document type registry JSON (required)
  -type <name>              Document type of the input documents (required)
  -fields <p1,p2,...>       Projection paths, comma separated
  -query <selection>        Projection as a GraphQL selection set, e.g. '{ name project { name } }'
  -db.path <file>           SQLite store used to resolve reference joins
  -expand                   Expand un-joined reference ids to {id} placeholders

Reads one JSON document per line on stdin, writes projected documents to stdout.
`

type config struct {
	Addr         string `env:"PROJOIN_ADDR" envDefault:":8080"`
	DBPath       string `env:"PROJOIN_DB" envDefault:"projoin.db"`
	RegistryPath string `env:"PROJOIN_REGISTRY"`
	OtelEndpoint string `env:"PROJOIN_OTEL_ENDPOINT"`
	OtelService  string `env:"PROJOIN_OTEL_SERVICE" envDefault:"projoin"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("projoin", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "project":
		return cmdProject(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "project":
		fmt.Print(projectUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string) error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	registryPath := fs.String("schema.registry", cfg.RegistryPath, "")
	dbPath := fs.String("db.path", cfg.DBPath, "")
	addr := fs.String("server.addr", cfg.Addr, "")
	pretty := fs.Bool("server.pretty", false, "")
	timeout := fs.Duration("server.timeout", 10*time.Second, "")
	otelEndpoint := fs.String("otel.endpoint", cfg.OtelEndpoint, "")
	otelService := fs.String("otel.service", cfg.OtelService, "")
	fs.Usage = func() { fmt.Fprint(os.Stderr, serveUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *registryPath == "" {
		return fmt.Errorf("-schema.registry is required")
	}

	registry, err := schema.LoadRegistryFile(*registryPath)
	if err != nil {
		return err
	}
	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(*otelEndpoint, *otelService)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()
	collector := metrics.NewCollector()

	opts := []server.Option{server.WithTimeout(*timeout)}
	if *pretty {
		opts = append(opts, server.WithPretty())
	}
	mux := http.NewServeMux()
	mux.Handle("/v1/project", server.New(registry, store, opts...))
	mux.Handle("/metrics", collector.Handler())

	log.Printf("projoin listening on %s", *addr)
	return http.ListenAndServe(*addr, mux)
}

func cmdProject(args []string) error {
	fs := flag.NewFlagSet("project", flag.ContinueOnError)
	registryPath := fs.String("schema.registry", "", "")
	typeName := fs.String("type", "", "")
	fields := fs.String("fields", "", "")
	query := fs.String("query", "", "")
	dbPath := fs.String("db.path", "", "")
	expand := fs.Bool("expand", false, "")
	fs.Usage = func() { fmt.Fprint(os.Stderr, projectUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *registryPath == "" || *typeName == "" {
		return fmt.Errorf("-schema.registry and -type are required")
	}

	registry, err := schema.LoadRegistryFile(*registryPath)
	if err != nil {
		return err
	}
	docType, ok := registry.Lookup(*typeName)
	if !ok {
		return fmt.Errorf("unknown document type %q", *typeName)
	}

	var paths []string
	switch {
	case *query != "" && *fields != "":
		return fmt.Errorf("-fields and -query are mutually exclusive")
	case *query != "":
		if paths, err = selection.Paths(*query); err != nil {
			return err
		}
	case *fields != "":
		for _, f := range strings.Split(*fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				paths = append(paths, f)
			}
		}
	}

	var opts []projection.Option
	if *expand {
		opts = append(opts, projection.WithExpandReferenceIDs())
	}
	helper, err := projection.NewHelper(docType, paths, opts...)
	if err != nil {
		return err
	}

	var exec projection.QueryExecutor = projection.QueryFunc(
		func(context.Context, schema.Type, []string, []any) ([]document.Document, error) {
			return nil, fmt.Errorf("reference joins require -db.path")
		})
	if *dbPath != "" {
		store, err := sqlite.Open(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		exec = store
	}

	docs, err := codec.DecodeJSONL(os.Stdin)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	if docs, err = projectDocs(context.Background(), docType, helper, docs, exec); err != nil {
		return err
	}
	return codec.EncodeJSONL(os.Stdout, docs)
}

// projectDocs applies the local projection to each input document and then
// resolves reference joins. Logical paths are normalized first: documents
// store the physical field of an aliased reference, and the raw ids must
// survive the copy for the join to find them.
func projectDocs(ctx context.Context, docType schema.Type, helper *projection.Helper, docs []document.Document, exec projection.QueryExecutor) ([]document.Document, error) {
	if local := helper.DocProjection(); local != nil {
		paths := make([]string, len(local))
		for i, p := range local {
			paths[i] = docType.NormalizePath(p)
		}
		var err error
		for i, doc := range docs {
			if docs[i], err = projection.ProjectDocument(doc, paths); err != nil {
				return nil, err
			}
		}
	}
	return helper.Project(ctx, docs, exec)
}

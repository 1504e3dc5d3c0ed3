// gqlping obtains a client from the registry and runs a single GraphQL query
// against it. Mainly a smoke-test tool for a deployed configuration.
//
// Identity comes from the environment: GQLREG_USERNAME/GQLREG_PASSWORD for a
// Cognito sign-in, or GQLREG_TOKEN for a pre-issued token.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
	"github.com/joho/godotenv"
	"github.com/machinebox/graphql"
	log "github.com/sirupsen/logrus"

	"gqlreg/backends"
	"gqlreg/backends/cognito"
	"gqlreg/backends/filecfg"
	"gqlreg/ports"
	"gqlreg/registry"
	"gqlreg/types"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	var (
		configPath = flag.String("config", "gqlreg.json", "platform config file (json or yaml)")
		namespace  = flag.String("namespace", "", "backend namespace (default service if empty)")
		query      = flag.String("query", "", "GraphQL document, or @path to read it from a file")
		filter     = flag.String("filter", "", "JMESPath expression applied to the response data")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *query == "" {
		log.Fatal("-query is required")
	}
	document := *query
	if strings.HasPrefix(document, "@") {
		raw, err := os.ReadFile(document[1:])
		if err != nil {
			log.Fatal(err)
		}
		document = string(raw)
	}

	src, err := filecfg.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	identity, err := identityFromEnv(ctx, src)
	if err != nil {
		log.Fatal(err)
	}

	reg := registry.New(src)
	client, err := reg.GetClient(ctx, identity, *namespace)
	if err != nil {
		log.Fatal(err)
	}

	var data map[string]any
	if err := client.Run(ctx, graphql.NewRequest(document), &data); err != nil {
		log.Fatal(err)
	}

	var out any = data
	if *filter != "" {
		out, err = jmespath.Search(*filter, data)
		if err != nil {
			log.Fatalf("jmespath: %v", err)
		}
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(encoded))
}

// identityFromEnv prefers a Cognito sign-in when credentials are present and
// falls back to a static pre-issued token.
func identityFromEnv(ctx context.Context, src ports.ConfigSource) (ports.IdentityClient, error) {
	username := os.Getenv("GQLREG_USERNAME")
	if username != "" {
		set, ok := src.GetConfigSet(types.IdentityNamespace)
		if !ok {
			return nil, types.Err(types.ErrConfigMissing, nil, "config set %q", types.IdentityNamespace)
		}
		cfg, err := types.IdentityConfigFrom(set)
		if err != nil {
			return nil, err
		}
		return cognito.New(ctx, cfg, username, os.Getenv("GQLREG_PASSWORD"))
	}
	token := os.Getenv("GQLREG_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("set GQLREG_USERNAME/GQLREG_PASSWORD or GQLREG_TOKEN")
	}
	return backends.StaticIdentity("gqlping", token), nil
}

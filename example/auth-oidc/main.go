package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mnehpets/onerpc/httprpc"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/middleware"
)

func handle(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "whoami":
		subject, ok := middleware.SubjectFromContext(ctx)
		if !ok {
			return nil, jsonrpc.ErrInternal.WithMessage("no authenticated subject")
		}
		return map[string]any{"subject": subject}, nil
	default:
		return nil, jsonrpc.ErrMethodNotFound
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	issuer := os.Getenv("OIDC_ISSUER")
	clientID := os.Getenv("OIDC_CLIENT_ID")
	if issuer == "" || clientID == "" {
		log.Fatal("OIDC_ISSUER and OIDC_CLIENT_ID must be set")
	}

	verifier, err := middleware.NewOIDCVerifier(context.Background(), issuer, clientID)
	if err != nil {
		log.Fatal(err)
	}

	core := jsonrpc.NewCore(jsonrpc.HandlerFunc(handle))
	http.Handle("/rpc", &httprpc.Handler{
		Server: core,
		Processors: []httprpc.Processor{
			middleware.NewRequestIDProcessor(),
			middleware.NewLoggingProcessor(),
			middleware.NewBearerAuthProcessor(verifier),
		},
	})

	log.Println("Listening on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}

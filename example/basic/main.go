package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mnehpets/onerpc/httprpc"
	"github.com/mnehpets/onerpc/jsonrpc"
)

func handle(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "greet":
		var p struct {
			Name string `json:"name"`
		}
		if err := jsonrpc.Bind(params, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = "World"
		}
		return "Hello, " + p.Name + "!", nil
	default:
		return nil, jsonrpc.ErrMethodNotFound
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	addr := os.Getenv("ONERPC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	core := jsonrpc.NewCore(jsonrpc.HandlerFunc(handle))
	http.Handle("/rpc", &httprpc.Handler{Server: core})

	log.Println("Listening on " + addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

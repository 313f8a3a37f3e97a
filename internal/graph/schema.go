// Package graph serves the CRM over GraphQL. Resolvers are thin: every
// rule lives in crm.Service.
package graph

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

//go:embed schema.graphql
var schemaSDL string

const maxQueryDepth = 12

func NewSchema(svc *crm.Service, log *slog.Logger) (*graphql.Schema, error) {
	if log == nil {
		log = slog.Default()
	}
	return graphql.ParseSchema(schemaSDL, &Resolver{Svc: svc, Log: log},
		graphql.UseStringDescriptions(),
		graphql.MaxDepth(maxQueryDepth),
		graphql.Logger(panicLogger{log: log}),
	)
}

// Handler serves POST /graphql.
func Handler(schema *graphql.Schema) http.Handler {
	return &relay.Handler{Schema: schema}
}

type panicLogger struct {
	log *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.log.ErrorContext(ctx, "graphql resolver panic", "panic", value, "trace_id", crm.TraceID(ctx))
}

package feed

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/Borislavv/go-feed-cache/internal/feed")

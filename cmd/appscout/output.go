package main

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-apps/config"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
)

// createWriter opens one output stream. For mongo the stream name picks the
// collection; appending keeps its existing documents.
func createWriter(ctx context.Context, out config.OutputConfig, filename, stream string, appendMode bool, opts ...pipeline.Option) (pipeline.OutputWriter, error) {
	if appendMode {
		opts = append(opts, pipeline.WithAppend())
	}
	switch out.Format {
	case "json":
		return pipeline.NewJSONWriter(filename, opts...)
	case "csv":
		return pipeline.NewCSVWriter(filename, opts...)
	case "dual":
		return pipeline.NewDualWriter(filename, pipeline.JSONPath(filename), opts...)
	case "mongo":
		return pipeline.NewMongoWriter(ctx, out.MongoURI, out.MongoDatabase, stream, !appendMode)
	default:
		return nil, fmt.Errorf("unsupported format: %s", out.Format)
	}
}

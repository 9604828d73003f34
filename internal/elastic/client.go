package elastic

import (
	"fmt"
	"log/slog"

	es "github.com/elastic/go-elasticsearch/v8"
)

func Connect(url string) (*es.Client, error) {
	client, err := es.NewClient(es.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	slog.Info("Connected to Elasticsearch", "url", url)
	return client, nil
}

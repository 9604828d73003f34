package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// SearchParticipants returns the IDs of participants in one hackathon matching q,
// best match first.
func SearchParticipants(ctx context.Context, c *es.Client, hackathonID uuid.UUID, q string, limit int) ([]uuid.UUID, error) {
	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"hackathon_id": hackathonID.String()}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"name^2", "email", "answers"},
						"fuzziness": "AUTO",
					}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := c.Search(
		c.Search.WithContext(ctx),
		c.Search.WithIndex(IdxParticipants),
		c.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search participants: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search participants: %s", res.String())
	}
	return decodeHitIDs(res.Body)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHitIDs(r io.Reader) ([]uuid.UUID, error) {
	var sr searchResponse
	if err := json.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Searcher adapts a client to the participant search the services expect.
type Searcher struct {
	Client *es.Client
}

func (s Searcher) SearchParticipants(ctx context.Context, hackathonID uuid.UUID, q string, limit int) ([]uuid.UUID, error) {
	return SearchParticipants(ctx, s.Client, hackathonID, q, limit)
}

package elastic

import (
	"bytes"
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

const (
	IdxHackathons   = "hackathons_v1"
	IdxParticipants = "participants_v1"
	IdxTeams        = "teams_v1"
)

func EnsureIndexes(ctx context.Context, c *es.Client) error {
	mapping := `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"title":{"type":"text"},"location":{"type":"keyword"},"status":{"type":"keyword"},
		"start_date":{"type":"date"},"end_date":{"type":"date"},"updated_at":{"type":"date"}
	}}}`
	if err := ensure(ctx, c, IdxHackathons, mapping); err != nil {
		return err
	}

	mapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"hackathon_id":{"type":"keyword"},"name":{"type":"text"},"email":{"type":"keyword"},
		"status":{"type":"keyword"},"team_id":{"type":"keyword"},"answers":{"type":"text"},
		"updated_at":{"type":"date"}
	}}}`
	if err := ensure(ctx, c, IdxParticipants, mapping); err != nil {
		return err
	}

	mapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"hackathon_id":{"type":"keyword"},"name":{"type":"text"},"idea_title":{"type":"text"},
		"idea_description":{"type":"text"},"updated_at":{"type":"date"}
	}}}`
	return ensure(ctx, c, IdxTeams, mapping)
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, err := c.Indices.Exists([]string{index}, c.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}
	res, err := c.Indices.Create(index, c.Indices.Create.WithBody(bytes.NewBufferString(body)), c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.String())
	}
	return nil
}

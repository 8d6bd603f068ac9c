package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/mail-ledger/internal/logger"
	"github.com/dvloznov/mail-ledger/internal/mirror"
)

const (
	usersTable  = "users"
	eventsTable = "events"
)

// Store implements mirror.Store over one BigQuery dataset.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return NewStoreWithClient(client, projectID, datasetID), nil
}

// NewStoreWithClient wraps an existing client; the caller keeps ownership
// of it.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) *bigquery.Table {
	return s.client.DatasetInProject(s.projectID, s.datasetID).Table(name)
}

func (s *Store) qualified(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*mirror.User, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT user_id, external_id, email, name, created_ts
		FROM %s
		WHERE external_id = @external_id
		LIMIT 1
	`, s.qualified(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "external_id", Value: externalID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUserByExternalID: query read: %w", err)
	}

	var row UserRow
	switch err := it.Next(&row); {
	case err == iterator.Done:
		return nil, mirror.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("GetUserByExternalID: iter next: %w", err)
	}
	return row.toMirror(), nil
}

func (s *Store) CreateUser(ctx context.Context, u *mirror.User) error {
	inserter := s.table(usersTable).Inserter()
	if err := inserter.Put(ctx, userRowFrom(u)); err != nil {
		return fmt.Errorf("CreateUser: inserting row: %w", err)
	}
	return nil
}

func (s *Store) GetEvents(ctx context.Context, userID string) ([]mirror.Event, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT user_id, external_id, event_date, amount, direction,
		       category, source, description, created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY event_date DESC, created_ts DESC
	`, s.qualified(eventsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetEvents: query read: %w", err)
	}

	var events []mirror.Event
	for {
		var row EventRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetEvents: iter next: %w", err)
		}
		events = append(events, row.toMirror())
	}
	return events, nil
}

// existingEventIDs returns which of the given external ids are already
// mirrored for the user.
func (s *Store) existingEventIDs(ctx context.Context, userID string, externalIDs []string) (map[string]bool, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT external_id
		FROM %s
		WHERE user_id = @user_id
		  AND external_id IN UNNEST(@external_ids)
	`, s.qualified(eventsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "external_ids", Value: externalIDs},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("existing ids: query read: %w", err)
	}

	existing := map[string]bool{}
	for {
		var row struct {
			ExternalID string `bigquery:"external_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("existing ids: iter next: %w", err)
		}
		existing[row.ExternalID] = true
	}
	return existing, nil
}

// CreateEvents inserts the batch minus rows already mirrored. Duplicates are
// sync normality (incremental runs re-see recent messages), so they are
// skipped, never errors. A failed batch insert falls back to row-by-row so
// one bad row cannot sink the rest.
func (s *Store) CreateEvents(ctx context.Context, userID string, events []mirror.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	log := logger.FromContext(ctx)

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ExternalID)
	}
	existing, err := s.existingEventIDs(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("CreateEvents: %w", err)
	}

	var rows []*EventRow
	for _, e := range events {
		if existing[e.ExternalID] {
			continue
		}
		e.UserID = userID
		rows = append(rows, eventRowFrom(e))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	inserter := s.table(eventsTable).Inserter()
	if err := inserter.Put(ctx, rows); err == nil {
		return len(rows), nil
	} else if !isPartialInsertError(err) {
		return 0, fmt.Errorf("CreateEvents: inserting rows: %w", err)
	}

	inserted := 0
	for _, row := range rows {
		if err := inserter.Put(ctx, row); err != nil {
			log.Warn().Str("externalID", row.ExternalID).Err(err).Msg("event row insert failed")
			continue
		}
		inserted++
	}
	return inserted, nil
}

func isPartialInsertError(err error) bool {
	var multi bigquery.PutMultiError
	return errors.As(err, &multi)
}

func (s *Store) DeleteEventByExternalID(ctx context.Context, userID, externalID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND external_id = @external_id
	`, s.qualified(eventsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "external_id", Value: externalID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("DeleteEventByExternalID: run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("DeleteEventByExternalID: wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("DeleteEventByExternalID: job: %w", err)
	}
	return nil
}

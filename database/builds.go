package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Volodya262/jb-products-info/model"
)

// GetAllBuilds loads every stored event row and reconstructs the aggregates,
// grouped by (product_code, build_full_number). Replay ordering is handled by
// the aggregate itself, so no ORDER BY is required here.
func (d Datasource) GetAllBuilds(ctx context.Context) ([]*model.BuildInProcess, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT product_code, build_full_number, data
		FROM build_process_events
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query build events")
	}
	defer rows.Close()

	type buildKey struct {
		productCode     string
		buildFullNumber string
	}
	grouped := make(map[buildKey][]model.BuildEvent)
	var order []buildKey

	for rows.Next() {
		var productCode, buildFullNumber string
		var data []byte
		if err := rows.Scan(&productCode, &buildFullNumber, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan build event row")
		}

		var event model.BuildEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, errors.Wrapf(err, "failed to decode event for build %s:%s", productCode, buildFullNumber)
		}

		key := buildKey{productCode, buildFullNumber}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate build event rows")
	}

	builds := make([]*model.BuildInProcess, 0, len(order))
	for _, key := range order {
		builds = append(builds, model.BuildInProcessFromEvents(key.productCode, key.buildFullNumber, grouped[key]))
	}
	return builds, nil
}

// GetBuild reconstructs one aggregate from its stored events. Returns
// model.BuildNotFoundError when no events exist for the identity.
func (d Datasource) GetBuild(ctx context.Context, productCode, buildFullNumber string) (*model.BuildInProcess, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT data
		FROM build_process_events
		WHERE product_code = $1 AND build_full_number = $2
	`, productCode, buildFullNumber)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query build events")
	}
	defer rows.Close()

	var events []model.BuildEvent
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "failed to scan build event row")
		}
		var event model.BuildEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, errors.Wrapf(err, "failed to decode event for build %s:%s", productCode, buildFullNumber)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate build event rows")
	}

	if len(events) == 0 {
		return nil, &model.BuildNotFoundError{ProductCode: productCode, BuildFullNumber: buildFullNumber}
	}
	return model.BuildInProcessFromEvents(productCode, buildFullNumber, events), nil
}

// SaveNewBuilds persists a batch of aggregates atomically: one summary row
// upsert plus all pending events per build, all-or-nothing. Publishing to the
// queue must only happen after this call succeeds.
func (d Datasource) SaveNewBuilds(ctx context.Context, builds []*model.BuildInProcess) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, build := range builds {
		var releaseDate sql.NullTime
		if build.ReleaseDate() != nil {
			releaseDate = sql.NullTime{Time: *build.ReleaseDate(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO build (product_code, build_full_number, release_date)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, build.ProductCode, build.BuildFullNumber, releaseDate)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert build %s", build.ID())
		}

		if err := insertPendingEvents(ctx, tx, build); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit builds batch")
	}
	return nil
}

// SaveBuildEvents appends one aggregate's pending events in a single transaction.
func (d Datasource) SaveBuildEvents(ctx context.Context, build *model.BuildInProcess) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertPendingEvents(ctx, tx, build); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed to commit events of build %s", build.ID())
	}
	return nil
}

func insertPendingEvents(ctx context.Context, tx *sql.Tx, build *model.BuildInProcess) error {
	for _, event := range build.EventsToStore() {
		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "failed to encode event %d of build %s", event.EventNumber, build.ID())
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO build_process_events (product_code, build_full_number, event_number, data)
			VALUES ($1, $2, $3, $4)
		`, build.ProductCode, build.BuildFullNumber, event.EventNumber, data)
		if err != nil {
			return errors.Wrapf(err, "failed to insert event %d of build %s", event.EventNumber, build.ID())
		}
	}
	return nil
}

// DeleteAllBuilds wipes all build state. Full reset only, used by tests.
func (d Datasource) DeleteAllBuilds(ctx context.Context) error {
	for _, table := range []string{"build_process_events", "build"} {
		if _, err := d.Conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return errors.Wrapf(err, "failed to delete from %s", table)
		}
	}
	return nil
}

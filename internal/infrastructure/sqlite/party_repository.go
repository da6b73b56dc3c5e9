package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/raidline/internal/party"
)

// partyColumns is the list of columns to select for party queries.
const partyColumns = `channel_id, kind, exclusive, created_at, hatch_at,
	meet_at, meet_cleared, end_at, end_cleared, subject_json,
	groups_json, attendees_json, route_json, current_index, conductor, updated_at`

// PartyRepository persists party snapshots keyed by channel id.
type PartyRepository struct {
	db *sql.DB
}

// NewPartyRepository creates a new PartyRepository instance.
func NewPartyRepository(db *sql.DB) *PartyRepository {
	return &PartyRepository{db: db}
}

func scanParty(scanner interface{ Scan(...any) error }) (*PartyModel, error) {
	var model PartyModel
	err := scanner.Scan(
		&model.ChannelID, &model.Kind, &model.Exclusive, &model.CreatedAt, &model.HatchAt,
		&model.MeetAt, &model.MeetCleared, &model.EndAt, &model.EndCleared, &model.SubjectJSON,
		&model.GroupsJSON, &model.AttendeesJSON, &model.RouteJSON,
		&model.CurrentIndex, &model.Conductor, &model.UpdatedAt,
	)
	return &model, err
}

// Save upserts a snapshot, keyed by channel id.
func (r *PartyRepository) Save(ctx context.Context, snap party.Snapshot) error {
	model, err := toPartyModel(snap)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO parties (
			channel_id, kind, exclusive, created_at, hatch_at,
			meet_at, meet_cleared, end_at, end_cleared, subject_json,
			groups_json, attendees_json, route_json, current_index, conductor, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			kind = excluded.kind,
			exclusive = excluded.exclusive,
			created_at = excluded.created_at,
			hatch_at = excluded.hatch_at,
			meet_at = excluded.meet_at,
			meet_cleared = excluded.meet_cleared,
			end_at = excluded.end_at,
			end_cleared = excluded.end_cleared,
			subject_json = excluded.subject_json,
			groups_json = excluded.groups_json,
			attendees_json = excluded.attendees_json,
			route_json = excluded.route_json,
			current_index = excluded.current_index,
			conductor = excluded.conductor,
			updated_at = excluded.updated_at`,
		model.ChannelID, model.Kind, model.Exclusive, model.CreatedAt, model.HatchAt,
		model.MeetAt, model.MeetCleared, model.EndAt, model.EndCleared, model.SubjectJSON,
		model.GroupsJSON, model.AttendeesJSON, model.RouteJSON,
		model.CurrentIndex, model.Conductor, model.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save party: %w", err)
	}
	return nil
}

// Load retrieves one snapshot by channel id. Returns party.ErrNoParty
// when no row exists.
func (r *PartyRepository) Load(ctx context.Context, channelID string) (party.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE channel_id = ?`, channelID)
	model, err := scanParty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return party.Snapshot{}, party.ErrNoParty
	}
	if err != nil {
		return party.Snapshot{}, fmt.Errorf("failed to load party: %w", err)
	}
	return model.toSnapshot()
}

// LoadAll retrieves every persisted snapshot, oldest first.
func (r *PartyRepository) LoadAll(ctx context.Context) ([]party.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+partyColumns+` FROM parties ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []party.Snapshot
	for rows.Next() {
		model, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party row: %w", err)
		}
		snap, err := model.toSnapshot()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating party rows: %w", err)
	}
	return snaps, nil
}

// Delete hard-deletes a party row. Deleting a missing row is not an
// error; the registry may have reaped before the persist caught up.
func (r *PartyRepository) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parties WHERE channel_id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	return nil
}

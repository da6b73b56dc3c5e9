package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/raidline/internal/party"
)

// PartyModel mirrors one row of the parties table. Timestamps are unix
// seconds; nested collections are stored as JSON.
type PartyModel struct {
	ChannelID     string
	Kind          string
	Exclusive     bool
	CreatedAt     int64
	HatchAt       sql.NullInt64
	MeetAt        sql.NullInt64
	MeetCleared   bool
	EndAt         sql.NullInt64
	EndCleared    bool
	SubjectJSON   sql.NullString
	GroupsJSON    string
	AttendeesJSON string
	RouteJSON     sql.NullString
	CurrentIndex  int
	Conductor     string
	UpdatedAt     int64
}

func toPartyModel(snap party.Snapshot) (*PartyModel, error) {
	model := &PartyModel{
		ChannelID:    snap.ChannelID,
		Kind:         string(snap.Kind),
		Exclusive:    snap.Exclusive,
		CreatedAt:    snap.CreationTime.Unix(),
		MeetCleared:  snap.MeetTime.Cleared,
		EndCleared:   snap.EndTime.Cleared,
		CurrentIndex: snap.CurrentIndex,
		Conductor:    snap.Conductor,
		UpdatedAt:    time.Now().Unix(),
	}
	if snap.HatchTime != nil {
		model.HatchAt = sql.NullInt64{Int64: snap.HatchTime.Unix(), Valid: true}
	}
	if snap.MeetTime.Set {
		model.MeetAt = sql.NullInt64{Int64: snap.MeetTime.Time.Unix(), Valid: true}
	}
	if snap.EndTime.Set {
		model.EndAt = sql.NullInt64{Int64: snap.EndTime.Time.Unix(), Valid: true}
	}
	if snap.Subject != nil {
		data, err := json.Marshal(snap.Subject)
		if err != nil {
			return nil, fmt.Errorf("marshal subject: %w", err)
		}
		model.SubjectJSON = sql.NullString{String: string(data), Valid: true}
	}

	groups, err := json.Marshal(snap.Groups)
	if err != nil {
		return nil, fmt.Errorf("marshal groups: %w", err)
	}
	model.GroupsJSON = string(groups)

	attendees := snap.Attendees
	if attendees == nil {
		attendees = map[string]party.Attendee{}
	}
	attendeesData, err := json.Marshal(attendees)
	if err != nil {
		return nil, fmt.Errorf("marshal attendees: %w", err)
	}
	model.AttendeesJSON = string(attendeesData)

	if snap.Route != nil {
		data, err := json.Marshal(snap.Route)
		if err != nil {
			return nil, fmt.Errorf("marshal route: %w", err)
		}
		model.RouteJSON = sql.NullString{String: string(data), Valid: true}
	}
	return model, nil
}

func (m *PartyModel) toSnapshot() (party.Snapshot, error) {
	snap := party.Snapshot{
		ChannelID:    m.ChannelID,
		Kind:         party.Kind(m.Kind),
		Exclusive:    m.Exclusive,
		CreationTime: time.Unix(m.CreatedAt, 0),
		MeetTime:     party.TimeSetting{Cleared: m.MeetCleared},
		EndTime:      party.TimeSetting{Cleared: m.EndCleared},
		CurrentIndex: m.CurrentIndex,
		Conductor:    m.Conductor,
	}
	if m.HatchAt.Valid {
		h := time.Unix(m.HatchAt.Int64, 0)
		snap.HatchTime = &h
	}
	if m.MeetAt.Valid {
		snap.MeetTime = party.TimeSetting{Time: time.Unix(m.MeetAt.Int64, 0), Set: true}
	}
	if m.EndAt.Valid {
		snap.EndTime = party.TimeSetting{Time: time.Unix(m.EndAt.Int64, 0), Set: true}
	}
	if m.SubjectJSON.Valid {
		var s party.Subject
		if err := json.Unmarshal([]byte(m.SubjectJSON.String), &s); err != nil {
			return party.Snapshot{}, fmt.Errorf("unmarshal subject: %w", err)
		}
		snap.Subject = &s
	}
	if err := json.Unmarshal([]byte(m.GroupsJSON), &snap.Groups); err != nil {
		return party.Snapshot{}, fmt.Errorf("unmarshal groups: %w", err)
	}
	if err := json.Unmarshal([]byte(m.AttendeesJSON), &snap.Attendees); err != nil {
		return party.Snapshot{}, fmt.Errorf("unmarshal attendees: %w", err)
	}
	if m.RouteJSON.Valid {
		if err := json.Unmarshal([]byte(m.RouteJSON.String), &snap.Route); err != nil {
			return party.Snapshot{}, fmt.Errorf("unmarshal route: %w", err)
		}
	}
	return snap, nil
}

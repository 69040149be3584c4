package state

import (
	"database/sql"
	"errors"
)

// PlayerState is what survives a restart: the scanned folder, the selected
// track and the audio settings.
type PlayerState struct {
	Folder       string
	TrackIndex   int
	Volume       float64
	Speed        float64
	OutputDevice string
}

func getPlayer(db *sql.DB) (*PlayerState, error) {
	row := db.QueryRow(`
		SELECT folder, track_index, volume, speed, output_device
		FROM player_state WHERE id = 1
	`)

	var state PlayerState
	var device sql.NullString

	err := row.Scan(&state.Folder, &state.TrackIndex, &state.Volume, &state.Speed, &device)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved state is valid on first run
	}
	if err != nil {
		return nil, err
	}

	if device.Valid {
		state.OutputDevice = device.String
	}

	return &state, nil
}

func savePlayer(db *sql.DB, state PlayerState) error {
	_, err := db.Exec(`
		INSERT INTO player_state (id, folder, track_index, volume, speed, output_device)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder = excluded.folder,
			track_index = excluded.track_index,
			volume = excluded.volume,
			speed = excluded.speed,
			output_device = excluded.output_device
	`, state.Folder, state.TrackIndex, state.Volume, state.Speed, state.OutputDevice)

	return err
}

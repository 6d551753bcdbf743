package attstats

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE recording(
			id INTEGER PRIMARY KEY,
			camera INT NOT NULL,
			name TEXT,
			start_time INT NOT NULL,
			end_time INT,
			num_frames INT NOT NULL DEFAULT 0,
			summary TEXT
		);

		CREATE INDEX idx_recording_camera ON recording (camera);

		CREATE TABLE sample(
			id INTEGER PRIMARY KEY,
			recording_id INT NOT NULL,
			time INT NOT NULL,
			attentive INT NOT NULL,
			distracted INT NOT NULL,
			not_attentive INT NOT NULL,
			total INT NOT NULL
		);

		CREATE INDEX idx_sample_recording_time ON sample (recording_id, time);
	`))

	return migs
}

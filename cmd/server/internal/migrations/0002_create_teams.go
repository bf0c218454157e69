package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0002, Down0002)
}

func Up0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE teams (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    name TEXT NOT NULL,
    password TEXT NOT NULL,
    members JSONB,
    active BOOLEAN,
    admin BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`},
		statement{query: `CREATE UNIQUE INDEX idx_teams_name ON teams (name);`},
	)
}

func Down0002(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE teams;`)
	return err
}

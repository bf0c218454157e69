package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0003, Down0003)
}

func Up0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE FUNCTION touch_updated_at()
RETURNS TRIGGER AS $$
BEGIN
NEW.updated_at = current_timestamp;
RETURN NEW;
END;
$$ language 'plpgsql';
`},
		statement{query: `
CREATE TRIGGER touch_updated_at_trigger
BEFORE UPDATE ON teams
FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`},
	)
}

func Down0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TRIGGER touch_updated_at_trigger ON teams;`},
		statement{query: `DROP FUNCTION touch_updated_at();`},
	)
}

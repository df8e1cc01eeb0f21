package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id                   TEXT PRIMARY KEY,
	handle               TEXT NOT NULL,
	bio                  TEXT NOT NULL DEFAULT '',
	profile_color        TEXT NOT NULL DEFAULT '',
	profile_image_url    TEXT NOT NULL DEFAULT '',
	friend_ids           TEXT NOT NULL DEFAULT '[]',
	incoming_request_ids TEXT NOT NULL DEFAULT '[]',
	outgoing_request_ids TEXT NOT NULL DEFAULT '[]',
	is_current           INTEGER NOT NULL DEFAULT 0 CHECK(is_current IN (0, 1)),
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id                    TEXT PRIMARY KEY,
	owner_id              TEXT NOT NULL,
	author_id             TEXT NOT NULL DEFAULT '',
	name                  TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL,
	deadline              DATETIME,
	group_id              TEXT,
	assigned_ids          TEXT NOT NULL DEFAULT '[]',
	difficulty            TEXT NOT NULL DEFAULT 'medium',
	custom_hours          REAL,
	is_completed          INTEGER NOT NULL DEFAULT 0 CHECK(is_completed IN (0, 1)),
	proof_url             TEXT NOT NULL DEFAULT '',
	proof_description     TEXT NOT NULL DEFAULT '',
	requires_confirmation INTEGER NOT NULL DEFAULT 0 CHECK(requires_confirmation IN (0, 1)),
	is_confirmed          INTEGER NOT NULL DEFAULT 0 CHECK(is_confirmed IN (0, 1)),
	confirmer_id          TEXT NOT NULL DEFAULT '',
	confirmed_at          DATETIME,
	privacy_level         TEXT NOT NULL DEFAULT 'everyone',
	privacy_group_id      TEXT,
	privacy_except_ids    TEXT NOT NULL DEFAULT '[]',
	flag_set              INTEGER NOT NULL DEFAULT 0 CHECK(flag_set IN (0, 1)),
	flag_color            TEXT NOT NULL DEFAULT '',
	flag_name             TEXT NOT NULL DEFAULT '',
	display_order         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	creator_id  TEXT NOT NULL,
	member_ids  TEXT NOT NULL DEFAULT '[]',
	admin_ids   TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS read_notifications (
	id        TEXT PRIMARY KEY,
	marked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id);
CREATE INDEX IF NOT EXISTS idx_tasks_group_id ON tasks(group_id);
CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks(deadline);
CREATE INDEX IF NOT EXISTS idx_tasks_display_order ON tasks(owner_id, display_order);
CREATE INDEX IF NOT EXISTS idx_users_is_current ON users(is_current);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	target_user_id TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL,
	size           TEXT NOT NULL DEFAULT 'small',
	created_at     DATETIME NOT NULL,
	expires_at     DATETIME,
	task_ids       TEXT NOT NULL DEFAULT '[]',
	streak_days    INTEGER NOT NULL DEFAULT 0,
	like_count     INTEGER NOT NULL DEFAULT 0,
	comment_count  INTEGER NOT NULL DEFAULT 0,
	liked_by_ids   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);
CREATE INDEX IF NOT EXISTS idx_events_expires_at ON events(expires_at);
CREATE INDEX IF NOT EXISTS idx_tasks_completion
	ON tasks(is_completed, requires_confirmation, is_confirmed);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

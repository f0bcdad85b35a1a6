package sqlite

// Timestamps are TEXT in a fixed-width UTC layout written by sqlstore, so
// ORDER BY created_at is chronological. Referential integrity between tasks
// and dependencies is maintained by explicit cascades in DeleteTask.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		task_type TEXT NOT NULL DEFAULT 'task',
		priority INTEGER NOT NULL DEFAULT 2 CHECK (priority >= 0 AND priority <= 4),
		story_points INTEGER,
		estimated_minutes INTEGER,
		status TEXT NOT NULL DEFAULT 'open',
		parent_id TEXT,
		acceptance_criteria TEXT NOT NULL DEFAULT '',
		quality_score REAL,
		assignee TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		closed_at TEXT,
		due_at TEXT,
		defer_until TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_priority_created ON tasks(priority, created_at)`,

	`CREATE TABLE IF NOT EXISTS labels (
		task_id TEXT NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (task_id, label)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_labels_label ON labels(label)`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		dep_type TEXT NOT NULL DEFAULT 'blocks',
		created_at TEXT NOT NULL,
		UNIQUE (task_id, depends_on_id, dep_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_task ON dependencies(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON dependencies(depends_on_id)`,

	`CREATE TABLE IF NOT EXISTS hooks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		command TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hooks_event ON hooks(event)`,

	`CREATE TABLE IF NOT EXISTS config (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

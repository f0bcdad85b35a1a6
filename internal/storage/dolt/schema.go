package dolt

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
// Text keys are VARCHAR because MySQL cannot index unbounded TEXT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id VARCHAR(255) PRIMARY KEY,
		title VARCHAR(500) NOT NULL,
		description TEXT NOT NULL,
		task_type VARCHAR(32) NOT NULL DEFAULT 'task',
		priority INT NOT NULL DEFAULT 2,
		story_points INT,
		estimated_minutes INT,
		status VARCHAR(32) NOT NULL DEFAULT 'open',
		parent_id VARCHAR(255),
		acceptance_criteria TEXT NOT NULL,
		quality_score DOUBLE,
		assignee VARCHAR(255) NOT NULL DEFAULT '',
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL,
		closed_at VARCHAR(40),
		due_at VARCHAR(40),
		defer_until VARCHAR(40),
		INDEX idx_tasks_status (status),
		INDEX idx_tasks_parent (parent_id),
		INDEX idx_tasks_priority_created (priority, created_at)
	)`,

	`CREATE TABLE IF NOT EXISTS labels (
		task_id VARCHAR(255) NOT NULL,
		label VARCHAR(255) NOT NULL,
		PRIMARY KEY (task_id, label),
		INDEX idx_labels_label (label)
	)`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		task_id VARCHAR(255) NOT NULL,
		depends_on_id VARCHAR(255) NOT NULL,
		dep_type VARCHAR(32) NOT NULL DEFAULT 'blocks',
		created_at VARCHAR(40) NOT NULL,
		UNIQUE KEY uq_dependency (task_id, depends_on_id, dep_type),
		INDEX idx_dependencies_task (task_id),
		INDEX idx_dependencies_depends_on (depends_on_id)
	)`,

	`CREATE TABLE IF NOT EXISTS hooks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event VARCHAR(255) NOT NULL,
		command TEXT NOT NULL,
		enabled TINYINT NOT NULL DEFAULT 1,
		created_at VARCHAR(40) NOT NULL,
		INDEX idx_hooks_event (event)
	)`,

	`CREATE TABLE IF NOT EXISTS config (
		name VARCHAR(255) PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

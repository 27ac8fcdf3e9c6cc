package sqlite

const schema = `
-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    local_path TEXT NOT NULL DEFAULT '',
    origin_url TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Tasks table
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
    task_type TEXT NOT NULL DEFAULT 'concrete',
    priority TEXT NOT NULL DEFAULT 'medium',
    title TEXT NOT NULL CHECK(length(title) >= 3 AND length(title) <= 100),
    task_instruction TEXT NOT NULL CHECK(length(task_instruction) >= 10),
    verification_instruction TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    assigned_agent TEXT,
    assigned_at TEXT,
    task_status TEXT NOT NULL DEFAULT 'available',
    verification_status TEXT NOT NULL DEFAULT 'unverified',
    estimated_hours REAL CHECK(estimated_hours IS NULL OR estimated_hours >= 0.1),
    actual_hours REAL CHECK(actual_hours IS NULL OR actual_hours >= 0.1),
    due_date TEXT,
    created_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL,
    completed_at TEXT,
    github_issue_url TEXT NOT NULL DEFAULT '',
    github_pr_url TEXT NOT NULL DEFAULT '',
    -- Stale marker set by the sweeper, cleared on completion
    stale_unlocked_at TEXT,
    stale_previous_agent TEXT NOT NULL DEFAULT '',
    stale_reason TEXT NOT NULL DEFAULT '',
    -- Reservation and verification invariants hold at every commit.
    -- Completed tasks keep their agent for attribution; available tasks
    -- never carry one.
    CHECK (task_status != 'in_progress' OR (assigned_agent IS NOT NULL AND assigned_at IS NOT NULL)),
    CHECK (task_status != 'available' OR assigned_agent IS NULL),
    CHECK (task_status != 'complete' OR completed_at IS NOT NULL),
    CHECK (task_status = 'complete' OR completed_at IS NULL),
    CHECK (verification_status = 'unverified' OR task_status = 'complete')
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(task_status);
CREATE INDEX IF NOT EXISTS idx_tasks_status_type ON tasks(task_status, task_type);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_agent ON tasks(assigned_agent);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_at ON tasks(assigned_at);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_completed_at ON tasks(completed_at);

-- Relationships table (directed edges between tasks)
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    child_task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    relationship_type TEXT NOT NULL,
    created_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    UNIQUE(parent_task_id, child_task_id, relationship_type),
    CHECK (parent_task_id != child_task_id)
);

CREATE INDEX IF NOT EXISTS idx_relationships_parent ON relationships(parent_task_id, relationship_type);
CREATE INDEX IF NOT EXISTS idx_relationships_child ON relationships(child_task_id, relationship_type);

-- Tags
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS task_tags (
    task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (task_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_task_tags_tag ON task_tags(tag_id);

-- Agent-authored narrative updates.
-- No FK on task_id: updates survive task deletion.
CREATE TABLE IF NOT EXISTS task_updates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    agent_id TEXT NOT NULL,
    update_type TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_updates_task ON task_updates(task_id, created_at);

-- Append-only change log, one row per field mutation.
-- No FK on task_id: the audit trail survives task deletion.
CREATE TABLE IF NOT EXISTS task_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    agent_id TEXT NOT NULL,
    change_type TEXT NOT NULL,
    field_name TEXT NOT NULL DEFAULT '',
    old_value TEXT NOT NULL DEFAULT '',
    new_value TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_changes_task ON task_changes(task_id, id);
CREATE INDEX IF NOT EXISTS idx_task_changes_created_at ON task_changes(created_at);

-- Numbered task snapshots, 1..N per task.
-- No FK on task_id: versions survive task deletion.
CREATE TABLE IF NOT EXISTS task_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    payload TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE(task_id, version)
);

-- Threaded comments; replies cascade with their parent.
CREATE TABLE IF NOT EXISTS task_comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    agent_id TEXT NOT NULL,
    content TEXT NOT NULL,
    parent_comment_id INTEGER REFERENCES task_comments(id) ON DELETE CASCADE,
    mentions TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_task_comments_task ON task_comments(task_id, created_at);
CREATE INDEX IF NOT EXISTS idx_task_comments_parent ON task_comments(parent_comment_id);

-- Task templates
CREATE TABLE IF NOT EXISTS task_templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    title_template TEXT NOT NULL,
    task_type TEXT NOT NULL DEFAULT 'concrete',
    task_instruction TEXT NOT NULL,
    verification_instruction TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT 'medium',
    estimated_hours REAL,
    created_at TEXT NOT NULL
);

-- Recurring task definitions; instantiation is always explicit
CREATE TABLE IF NOT EXISTS recurring_tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    title_template TEXT NOT NULL,
    task_type TEXT NOT NULL DEFAULT 'concrete',
    task_instruction TEXT NOT NULL,
    verification_instruction TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT 'medium',
    project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
    interval_hours REAL NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    next_run_at TEXT,
    last_instantiated_at TEXT,
    created_at TEXT NOT NULL
);

-- Metadata table (schema version, migration bookkeeping)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Blocked tasks view.
-- A task is blocked when:
--   * a blocked_by edge points at it from an incomplete task,
--   * it carries a blocking edge toward an incomplete task,
--   * its status is 'blocked',
--   * or any of its subtask descendants is blocked (propagates up).
CREATE VIEW IF NOT EXISTS blocked_tasks AS
WITH RECURSIVE blocked(task_id) AS (
    SELECT r.child_task_id
    FROM relationships r
    JOIN tasks b ON b.id = r.parent_task_id
    WHERE r.relationship_type = 'blocked_by'
      AND b.task_status != 'complete'
    UNION
    SELECT r.parent_task_id
    FROM relationships r
    JOIN tasks b ON b.id = r.child_task_id
    WHERE r.relationship_type = 'blocking'
      AND b.task_status != 'complete'
    UNION
    SELECT id FROM tasks WHERE task_status = 'blocked'
    UNION
    SELECT r.parent_task_id
    FROM relationships r
    JOIN blocked bl ON bl.task_id = r.child_task_id
    WHERE r.relationship_type = 'subtask'
)
SELECT DISTINCT task_id FROM blocked;
`

// internal/store/sqlite/schema.go
package sqlite

// Schema 是单库模式：情景节点、父子边、角色、角色-情景绑定、对话
// 情景图按邻接表存储，scene_edges 回答 "父情景有哪些" 的查询
const Schema = `
CREATE TABLE IF NOT EXISTS scenes (
    sid         TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    summary     TEXT NOT NULL DEFAULT '',
    is_main     INTEGER NOT NULL DEFAULT 0,
    is_root     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scene_edges (
    parent_sid  TEXT NOT NULL REFERENCES scenes(sid) ON DELETE CASCADE,
    child_sid   TEXT NOT NULL REFERENCES scenes(sid) ON DELETE CASCADE,
    PRIMARY KEY (parent_sid, child_sid)
);

CREATE TABLE IF NOT EXISTS characters (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    prompt      TEXT NOT NULL DEFAULT '',
    is_visible  INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS character_bindings (
    id                 TEXT PRIMARY KEY,
    character_id       TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
    scene_id           TEXT NOT NULL,
    sort_order         INTEGER NOT NULL DEFAULT 0,
    is_visible         INTEGER NOT NULL DEFAULT 1,
    parent_binding_id  TEXT NULL REFERENCES character_bindings(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT PRIMARY KEY,
    scene_id    TEXT NOT NULL,
    sender_id   TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
    role        TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
    message     TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_edges_child ON scene_edges(child_sid);
CREATE INDEX IF NOT EXISTS idx_bindings_scene ON character_bindings(scene_id);
CREATE INDEX IF NOT EXISTS idx_bindings_character ON character_bindings(character_id);
CREATE INDEX IF NOT EXISTS idx_conversations_scene ON conversations(scene_id);
CREATE INDEX IF NOT EXISTS idx_conversations_sender ON conversations(sender_id);
`

package db

const schemaSQL = `
-- ===========================================================================
-- PROFILES (auth)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  avatar_url TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- ===========================================================================
-- ROOMS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS rooms (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  cover_image TEXT,
  is_private INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (created_by) REFERENCES profiles(id)
);

CREATE INDEX IF NOT EXISTS idx_rooms_created_by ON rooms(created_by);
CREATE INDEX IF NOT EXISTS idx_rooms_created_at ON rooms(created_at);

CREATE TABLE IF NOT EXISTS room_members (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  joined_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
  FOREIGN KEY (user_id) REFERENCES profiles(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_room_members_room_user ON room_members(room_id, user_id);
CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);

-- ===========================================================================
-- SONGS (canonical track records, deduplicated by Spotify id)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS songs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  artist TEXT,
  duration INTEGER NOT NULL,
  thumbnail TEXT,
  spotify_id TEXT NOT NULL,
  spotify_uri TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_songs_spotify_id ON songs(spotify_id);

-- ===========================================================================
-- QUEUE ENTRIES (ordered per room)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS queue_entries (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  song_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  added_by TEXT NOT NULL,
  added_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
  FOREIGN KEY (song_id) REFERENCES songs(id),
  FOREIGN KEY (added_by) REFERENCES profiles(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_room_position ON queue_entries(room_id, position);
CREATE INDEX IF NOT EXISTS idx_queue_room ON queue_entries(room_id);

-- ===========================================================================
-- PLAYBACK STATES (one row per room, last-writer-wins with staleness guard)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS playback_states (
  room_id TEXT PRIMARY KEY,
  current_song_id TEXT,
  is_playing INTEGER NOT NULL DEFAULT 0,
  current_position REAL NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL,
  FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
  FOREIGN KEY (current_song_id) REFERENCES songs(id)
);

-- ===========================================================================
-- SPOTIFY ACCOUNT LINKS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS spotify_credentials (
  user_id TEXT PRIMARY KEY,
  access_token TEXT NOT NULL,
  refresh_token TEXT NOT NULL,
  token_type TEXT NOT NULL DEFAULT 'Bearer',
  expires_at TEXT NOT NULL,
  scope TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS spotify_link_states (
  state TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_link_states_expires ON spotify_link_states(expires_at);
`

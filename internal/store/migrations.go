package store

import "database/sql"

// RunMigrations creates the schema if it does not exist. Statements are
// idempotent so the service can run them on every boot.
func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS topics(
  id UUID PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT DEFAULT '',
  topic_type TEXT NOT NULL DEFAULT 'keyword',
  region TEXT DEFAULT '',
  keywords JSONB NOT NULL DEFAULT '[]',
  landmarks JSONB NOT NULL DEFAULT '[]',
  postcodes JSONB NOT NULL DEFAULT '[]',
  organizations JSONB NOT NULL DEFAULT '[]',
  negative_keywords JSONB NOT NULL DEFAULT '[]',
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  is_public BOOLEAN NOT NULL DEFAULT FALSE,
  auto_simplify_enabled BOOLEAN NOT NULL DEFAULT TRUE,
  default_tone TEXT NOT NULL DEFAULT 'conversational',
  audience_expertise TEXT NOT NULL DEFAULT 'intermediate',
  drip JSONB NOT NULL DEFAULT '{}',
  created_by TEXT DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE topics ADD COLUMN IF NOT EXISTS drip JSONB NOT NULL DEFAULT '{}';

CREATE TABLE IF NOT EXISTS articles(
  id UUID PRIMARY KEY,
  topic_id UUID NOT NULL REFERENCES topics(id),
  title TEXT NOT NULL,
  body TEXT DEFAULT '',
  source_url TEXT NOT NULL,
  author TEXT DEFAULT '',
  image_url TEXT DEFAULT '',
  published_at TIMESTAMPTZ,
  word_count INTEGER NOT NULL DEFAULT 0,
  relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'new',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_articles_topic_status ON articles(topic_id, status);
CREATE INDEX IF NOT EXISTS idx_articles_relevance ON articles(relevance_score);
CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_topic_url ON articles(topic_id, source_url);

CREATE TABLE IF NOT EXISTS story_queue(
  id UUID PRIMARY KEY,
  article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  topic_id UUID NOT NULL REFERENCES topics(id),
  status TEXT NOT NULL DEFAULT 'pending',
  slide_type TEXT NOT NULL DEFAULT 'tabloid',
  tone TEXT NOT NULL DEFAULT 'conversational',
  audience_expertise TEXT NOT NULL DEFAULT 'intermediate',
  attempts INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL DEFAULT 3,
  error_message TEXT DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  started_at TIMESTAMPTZ,
  completed_at TIMESTAMPTZ
);

-- One live job per article. Completed and failed rows stay for history.
CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_active_article
  ON story_queue(article_id) WHERE status IN ('pending','processing');
CREATE INDEX IF NOT EXISTS idx_queue_status ON story_queue(status);

CREATE TABLE IF NOT EXISTS stories(
  id UUID PRIMARY KEY,
  article_id UUID NOT NULL REFERENCES articles(id),
  topic_id UUID NOT NULL REFERENCES topics(id),
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  author TEXT DEFAULT '',
  cover_illustration_url TEXT DEFAULT '',
  cover_illustration_prompt TEXT DEFAULT '',
  published_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_stories_topic_status ON stories(topic_id, status);

CREATE TABLE IF NOT EXISTS slides(
  id UUID PRIMARY KEY,
  story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
  slide_order INTEGER NOT NULL,
  content TEXT NOT NULL,
  image_url TEXT DEFAULT '',
  alt_text TEXT DEFAULT '',
  word_count INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_slides_story ON slides(story_id, slide_order);

CREATE TABLE IF NOT EXISTS cover_options(
  id UUID PRIMARY KEY,
  story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
  image_url TEXT NOT NULL,
  prompt TEXT DEFAULT '',
  selected BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- At most one selected option per story.
CREATE UNIQUE INDEX IF NOT EXISTS idx_cover_selected
  ON cover_options(story_id) WHERE selected;
CREATE INDEX IF NOT EXISTS idx_cover_story ON cover_options(story_id);

CREATE TABLE IF NOT EXISTS carousel_exports(
  id UUID PRIMARY KEY,
  story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'pending',
  export_formats JSONB NOT NULL DEFAULT '{}',
  file_paths JSONB NOT NULL DEFAULT '[]',
  zip_url TEXT DEFAULT '',
  error_message TEXT DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_exports_story ON carousel_exports(story_id);

CREATE TABLE IF NOT EXISTS error_tickets(
  id UUID PRIMARY KEY,
  ticket_type TEXT NOT NULL,
  source_info TEXT DEFAULT '',
  summary TEXT NOT NULL,
  details JSONB NOT NULL DEFAULT '{}',
  severity TEXT NOT NULL DEFAULT 'low',
  status TEXT NOT NULL DEFAULT 'new',
  topic_id UUID,
  resolved_at TIMESTAMPTZ,
  resolved_note TEXT DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tickets_status ON error_tickets(status);

CREATE TABLE IF NOT EXISTS email_subscribers(
  id UUID PRIMARY KEY,
  topic_id UUID NOT NULL REFERENCES topics(id),
  email TEXT NOT NULL,
  name TEXT DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active',
  verified_at TIMESTAMPTZ,
  unsubscribed_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE(topic_id, email)
);

CREATE TABLE IF NOT EXISTS push_subscribers(
  id UUID PRIMARY KEY,
  topic_id UUID NOT NULL REFERENCES topics(id),
  endpoint TEXT NOT NULL,
  keys JSONB NOT NULL DEFAULT '{}',
  user_agent TEXT DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE(topic_id, endpoint)
);

CREATE TABLE IF NOT EXISTS events(
  id UUID PRIMARY KEY,
  topic_id UUID NOT NULL REFERENCES topics(id),
  title TEXT NOT NULL,
  description TEXT DEFAULT '',
  location TEXT DEFAULT '',
  event_type TEXT DEFAULT '',
  source_url TEXT DEFAULT '',
  starts_at TIMESTAMPTZ NOT NULL,
  ends_at TIMESTAMPTZ,
  status TEXT NOT NULL DEFAULT 'active',
  rank INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_topic_start ON events(topic_id, starts_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedupe ON events(topic_id, title, starts_at);

CREATE TABLE IF NOT EXISTS api_usage(
  id UUID PRIMARY KEY,
  provider TEXT NOT NULL,
  operation TEXT NOT NULL,
  topic_id UUID,
  tokens_used BIGINT NOT NULL DEFAULT 0,
  cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_usage_created ON api_usage(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_provider ON api_usage(provider);

CREATE TABLE IF NOT EXISTS settings(
  key TEXT PRIMARY KEY,
  value JSONB NOT NULL DEFAULT '{}',
  updated_by TEXT DEFAULT '',
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := db.Exec(initSQL)
	return err
}

package postgres

const schema = `
CREATE TABLE IF NOT EXISTS outbreaks (
    id                    TEXT PRIMARY KEY,
    source_url            TEXT NOT NULL UNIQUE,
    disease_name          TEXT NOT NULL DEFAULT '',
    pathogen_type         TEXT NOT NULL DEFAULT 'unknown',
    location_country      TEXT NOT NULL DEFAULT '',
    location_region       TEXT NOT NULL DEFAULT '',
    latitude              DOUBLE PRECISION,
    longitude             DOUBLE PRECISION,
    outbreak_date         DATE,
    outbreak_status       TEXT NOT NULL DEFAULT 'unknown',
    reported_cases        INTEGER,
    reported_deaths       INTEGER,
    case_fatality_rate    DOUBLE PRECISION,
    severity_level        TEXT NOT NULL DEFAULT 'unknown',
    severity_reasoning    TEXT NOT NULL DEFAULT '',
    urgency_score         DOUBLE PRECISION,
    transmission_risk     TEXT NOT NULL DEFAULT 'unknown',
    spread_potential      TEXT NOT NULL DEFAULT 'unknown',
    response_level        TEXT NOT NULL DEFAULT 'unknown',
    agencies_involved     TEXT[] NOT NULL DEFAULT '{}',
    key_insights          TEXT[] NOT NULL DEFAULT '{}',
    stakeholders_affected TEXT[] NOT NULL DEFAULT '{}',
    tags                  TEXT[] NOT NULL DEFAULT '{}',
    key_numbers           TEXT NOT NULL DEFAULT '',
    intelligence_summary  TEXT NOT NULL DEFAULT '',
    confidence_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    data_reliability      TEXT NOT NULL DEFAULT 'unknown',
    source_organization   TEXT NOT NULL DEFAULT '',
    news_title            TEXT NOT NULL DEFAULT '',
    published_at          TEXT NOT NULL DEFAULT '',
    extraction_method     TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS outbreaks_created_at_idx ON outbreaks (created_at DESC);
CREATE INDEX IF NOT EXISTS outbreaks_country_idx ON outbreaks (location_country);
`

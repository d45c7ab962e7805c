package sqlinline

const QEnsureGenerationTables = `--sql 4676511e-2f98-427d-8836-801f42c84b2e
create table if not exists generation_jobs (
    id uuid primary key,
    request_id text not null default '',
    backend text not null,
    strategy text not null,
    prompt text not null,
    status text not null,
    image_count integer not null default 0,
    error_kind text not null default '',
    error_message text not null default '',
    country text not null default '',
    duration_ms bigint not null default 0,
    created_at timestamptz not null default now()
);
create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QInsertGenerationJob = `--sql 0b095dd9-bb51-4461-a214-5f4c547054fa
insert into generation_jobs (
    id, request_id, backend, strategy, prompt, status,
    image_count, error_kind, error_message, country, duration_ms, created_at
)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text,
        $7::int, $8::text, $9::text, $10::text, $11::bigint, $12::timestamptz);
`

const QSelectRecentGenerationJobs = `--sql 009e3639-d724-40d3-941f-ebb158fd999a
select id::text, request_id, backend, strategy, prompt, status,
       image_count, error_kind, error_message, country, duration_ms, created_at
from generation_jobs
order by created_at desc
limit $1::int;
`

const QCountGenerationOutcomes = `--sql 80b18864-db93-4f81-908c-9dbd0971c3f6
select status, count(*)
from generation_jobs
where created_at >= now() - interval '24 hours'
group by status;
`

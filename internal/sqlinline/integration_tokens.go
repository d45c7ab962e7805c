package sqlinline

// Provider keys saved with cmd/providerkey. The environment always wins over
// these rows.

const QSelectIntegrationToken = `--sql 3f0c1b7e-52a4-4d8e-9b61-0c7d2e5a9f14
select token
from integration_tokens
where provider = lower($1::text)
  and token <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql a2d94e60-7b1f-4c3a-8e25-5f9b1c6d7e83
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), lower($1::text), $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

const QDeleteIntegrationToken = `--sql 7c61e2d8-0f3b-4a97-b5d4-2e8a9c1f6b50
delete from integration_tokens
where provider = lower($1::text);
`

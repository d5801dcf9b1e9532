package sqlgen

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// targetGuidance holds the non-obvious domain knowledge the model needs for
// one database. Kept as data so each target's prompt stays independently
// reviewable.
type targetGuidance struct {
	hints              string
	softDeleteReminder string
}

var guidanceByTarget = map[schema.Target]targetGuidance{
	schema.TargetEntities: {
		hints: `# Entities-Specific Guidance (CRITICAL)
- Soft delete: prefer (entity.is_deleted = 0 OR entity.is_deleted IS NULL).
- Only add deleted_at IS NULL for tables that actually have a deleted_at column; do NOT add it on entity_property.
- Phones/emails:
  - Prefer entity.computed_phones and entity.computed_emails when listing contact info.
  - Otherwise use entity_property with property_id IN ('phone','mobile','phone_number','telephone','email','work_email','personal_email').
  - Join entity_property ON entity_property.entity_id = entity.entity_id. Do NOT join the phone table (it has no entity_id link).
  - For numeric matching, normalize by removing spaces/dashes using REPLACE before LIKE/REGEXP.
- People: if matching by person name, use entity.name or people.first_name/last_name joined to entity.
- Buy table: typical numeric fields include face_value, purchased; dates like issued. Use date ranges for performance.`,
		softDeleteReminder: "Soft delete: (entity.is_deleted = 0 OR entity.is_deleted IS NULL); add deleted_at IS NULL where present.",
	},
	schema.TargetDMS: {
		hints: `# DMS-Specific Guidance (CRITICAL)
- Soft delete on tickets: (t.is_delete = 0 OR t.is_delete IS NULL) AND t.deleted_at IS NULL.
- Master tickets: master_ticket_crm_id IS NULL.
- Ticket code parsing: 'TK188089' => master_ticket_prefix = 'TK' AND ticket_number = '188089'.
- Leads notes: there is NO leads_tickets_id; link via leads_transactions_id between leads_tickets and leads_notes.
- Email history uses mail_content (not content), often filtered by leads_transactions_id and ordered by sent_date DESC.
- Do NOT reference Entities tables (entity, entity_property, people, address, etc.) when target is DMS.
- Contact info in DMS:
  - Use global_entity_contacts (GEC) where contact_type IN ('phone','mobile','email').
  - Organisation contacts: join global_entity_contacts.contact_for = 'organisation' and global_entity_contacts.entity_id = global_organisations.id.
  - Person/user contacts: join contact_for = 'people' or 'user' and entity_id to the appropriate table id (often users.id).
  - Apply soft delete on global_entity_contacts when present: (is_delete = 0 OR is_delete IS NULL) AND deleted_at IS NULL.
- Names in DMS:
  - Organisation name: global_organisations.organisation_name (and trade_name if relevant).
  - User/person name: users.first_name, users.last_name.
- Common joins:
  - leads_tickets t -> users u via t.assigned_to = u.id (for the current owner/assignee).
  - leads_tickets t -> leads_transactions lt via t.leads_transactions_id = lt.id (deal/summary metrics live on lt, not t).
  - leads_tickets t -> global_organisations go via t.global_organisation_id = go.id (ticket's organisation).`,
		softDeleteReminder: "Soft delete: (t.is_delete = 0 OR t.is_delete IS NULL) AND t.deleted_at IS NULL; master tickets: master_ticket_crm_id IS NULL.",
	},
}

// normalizeTarget maps unknown to entities, matching catalog fallback
func normalizeTarget(target schema.Target) schema.Target {
	if target == schema.TargetDMS {
		return schema.TargetDMS
	}

	return schema.TargetEntities
}

// BuildSystemPrompt assembles the generation prompt for one target
func BuildSystemPrompt(target schema.Target, schemaSummary string) string {
	target = normalizeTarget(target)
	guidance := guidanceByTarget[target]

	var b strings.Builder
	fmt.Fprintf(&b, `You are a senior MySQL expert. Generate a single best SELECT query for the %s database.

# Schema (truncated)
%s

# Universal Rules
- Only SELECT queries. No DML/DDL.
- Use indexed joins where possible.
- Use LOWER() for case-insensitive text match where needed.
- Do not use SELECT *; specify columns.
- If user implies a limit like 'top 5', add LIMIT ? or a safe LIMIT.
- Use ONLY tables that exist in the provided schema for the selected target. Do NOT mix tables across databases.
- If target is DMS, NEVER use Entities tables like entity, entity_property, people, address, bank, etc.
- If target is Entities, NEVER use DMS tables like leads_tickets, leads_transactions, users (CRM), global_organisations, email_history, etc.

%s

# Reminders
- %s

# Response JSON format
{
  "sql": "SELECT ...",
  "explanation": "why this query answers the question clearly"
}`,
		strings.ToUpper(string(target)),
		schemaSummary,
		guidance.hints,
		guidance.softDeleteReminder,
	)

	return b.String()
}

// BuildUserPrompt wraps the question for the generation call
func BuildUserPrompt(question string) string {
	return fmt.Sprintf("Question: %q\nReturn only JSON.", question)
}

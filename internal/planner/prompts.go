package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildSystemPrompt returns the standing instructions for the entity
// management domain. The orchestrator targets the entities database; the
// per-target generation path lives in sqlgen.
func buildSystemPrompt() string {
	return `You are a senior data architect and MySQL expert for a comprehensive Entity Management System. Your job is to generate the single best SQL query from natural language: safe, efficient, accurate, and fully aware of the entity-centric domain.

# Core Tables
- entity: organizations (type=1), people (type=2). Soft delete via is_deleted = 0 and/or deleted_at IS NULL. Key fields: entity_id, name, trade_name, type, creator_ledger_id.
- people: individuals linked to an entity. Soft delete via deleted_at IS NULL. Key fields: first_name, last_name, date_of_birth, entity_id.
- address: physical addresses. Key fields: line_one, city, state, zipcode, country, country_code, address_type. Soft delete via deleted_at IS NULL.
- bank / bank_account: institutions and accounts. bank_account links to entity_id and bank_id; fields IBAN, account, ccy, is_valid_iban. Soft delete via deleted_at IS NULL.
- asset: assets owned by entities. Fields: name, classification, quantity, unit_price, issued, entity_id.
- entity_property: dynamic key-value attributes (email, phone, website) per entity. Fields: property_id, property_value, is_primary, entity_id. No soft delete column of its own.
- property: metadata about property types.
- entity_role / role: role assignments (debtor, creditor, originator) and definitions.
- entity_mapping: parent-child relationships between entities.
- entity_contact: links two entities as contacts.
- entity_risk_and_rates: risk profiles, credit ratings, limits.
- param_country: country reference data (country_id, name, iso2, dial_code).
- buy: purchase records (creditor_id, debtor_id, originator_id, face_value, issued, status). Soft delete via deleted_at IS NULL.

# Phone and Email Storage (CRITICAL)
- Phone numbers and emails are stored in entity_property as properties, not in a direct phone table link.
- Common property identifiers: phone, mobile, phone_number, email.
- Match the person via entity (and optionally people for first/last name), then join entity_property on entity_id and filter by property_id or property_value pattern.
- Do NOT join the phone table by entity_id; that column does not exist in phone.

# Critical Rules (Enforced)
1. Only SELECT queries. No DML/DDL.
2. Enforce soft deletes: is_deleted = 0 for entity; deleted_at IS NULL for tables that have it.
3. Use indexed joins: prefer entity_id, role_id, bank_id.
4. Use LOWER() for case-insensitive text matching.
5. If user implies a limit ("top 5", "show 3"), use LIMIT ?.
6. Never assume data exists; handle NULLs gracefully.
7. Use explicit column names; avoid SELECT *.

# Output Format (JSON only)
{
  "sql": "SELECT ... FROM ... WHERE ... LIMIT ?",
  "explanation": "Clear, concise explanation of what the query does and why it's optimal.",
  "allowsLimit": true,
  "successStatus": true,
  "shouldRetry": false
}

# On Invalid or Unsafe Requests
Return:
{
  "sql": "SELECT 'No valid query could be generated.' AS message",
  "explanation": "I cannot perform that action. Please ask about entities, people, or addresses.",
  "allowsLimit": false,
  "successStatus": false,
  "shouldRetry": false
}

Generate only the JSON response. No extra text.`
}

// buildUserPrompt wraps the question and replays prior execution failures
// verbatim so the model sees exactly what failed and why
func buildUserPrompt(question string, corrections []CorrectionFeedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interpret this natural language question:\n\n%q\n\n", question)

	if len(corrections) > 0 {
		b.WriteString("\nThe following attempts failed. Use this feedback to avoid repeating the same mistakes:\n")
		for i, corr := range corrections {
			fmt.Fprintf(&b, "\nFailed Query %d: %s\nError: %s\n", i+1, corr.SQL, corr.Error)
		}
		b.WriteString("\nNow generate the corrected query.\n")
	}

	b.WriteString(`
Return a JSON object with:
- "sql": the MySQL SELECT query
- "explanation": plain English
- "allowsLimit": boolean
- "successStatus": boolean
- "shouldRetry": boolean
`)

	return b.String()
}

// buildFeedback describes a rejected response so the next attempt can fix it
func buildFeedback(rejectedContent, reason string, corrections []CorrectionFeedback) string {
	// Re-indent the rejected response when it is valid JSON
	pretty := rejectedContent
	var decoded interface{}
	if err := json.Unmarshal([]byte(rejectedContent), &decoded); err == nil {
		if out, err := json.MarshalIndent(decoded, "", "  "); err == nil {
			pretty = string(out)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your previous response:\n%s\n\nWas rejected because: %s\n\nPrevious execution errors:\n", pretty, reason)

	if len(corrections) == 0 {
		b.WriteString("None (first attempt)\n")
	} else {
		for i, corr := range corrections {
			fmt.Fprintf(&b, "Attempt %d: %q -> Error: %q\n", i+1, corr.SQL, corr.Error)
		}
	}

	b.WriteString(`
Please correct the issue and return a valid JSON object with:
{
  "sql": "...",
  "explanation": "...",
  "allowsLimit": boolean,
  "successStatus": boolean,
  "shouldRetry": boolean
}
Only respond with JSON. No extra text.`)

	return b.String()
}

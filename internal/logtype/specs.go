package logtype

import (
	"fmt"
	"strings"
)

// specs is the registry of log type variants. Ordering of All() is the
// authority; this map only stores the handlers.
var specs = map[LogType]Spec{
	SignIn: {
		Name:         "signin",
		Table:        "signin_events",
		Patterns:     []string{"*signin*.csv", "*sign-in*.csv", "*interactivesignin*.csv"},
		TimeField:    "timestamp",
		ActorField:   "user_principal",
		OriginField:  "ip_address",
		CountryField: "location",
		NaturalKey:   []string{"timestamp", "user_principal", "ip_address", "application"},
		RelevantFields: []string{
			"status", "error_code", "conditional_access_status", "location", "client_app",
		},
		AuthCandidates: []string{"status", "error_code", "conditional_access_status"},
		SuccessValues:  []string{"success", "0", "interrupted"},
		FailureValues:  []string{"failure", "failed", "50126", "50053", "blocked"},
		Normalize:      canonicalNormalizer,
	},
	UnifiedAudit: {
		Name:         "unified_audit",
		Table:        "unified_audit",
		Patterns:     []string{"*unified*audit*.csv", "*ual*.csv", "*auditlog*.csv"},
		TimeField:    "creation_time",
		ActorField:   "user_id",
		OriginField:  "client_ip",
		CountryField: "location",
		NaturalKey:   []string{"creation_time", "user_id", "operation", "client_ip"},
		RelevantFields: []string{
			"operation", "result_status", "workload", "record_type",
		},
		AuthCandidates: []string{"result_status", "operation"},
		SuccessValues:  []string{"succeeded", "success", "true"},
		FailureValues:  []string{"failed", "false", "denied"},
		Normalize:      canonicalNormalizer,
	},
	MailboxAudit: {
		Name:         "mailbox_audit",
		Table:        "mailbox_audit",
		Patterns:     []string{"*mailbox*.csv"},
		TimeField:    "timestamp",
		ActorField:   "mailbox_owner",
		OriginField:  "client_ip",
		CountryField: "location",
		NaturalKey:   []string{"timestamp", "mailbox_owner", "operation", "client_ip"},
		RelevantFields: []string{
			"operation", "logon_type", "result",
		},
		AuthCandidates: []string{"result", "logon_type"},
		SuccessValues:  []string{"succeeded", "success"},
		FailureValues:  []string{"failed", "denied"},
		Normalize:      canonicalNormalizer,
	},
	AdminAudit: {
		Name:         "admin_audit",
		Table:        "admin_audit",
		Patterns:     []string{"*admin*audit*.csv", "*directoryaudit*.csv"},
		TimeField:    "timestamp",
		ActorField:   "initiated_by",
		OriginField:  "ip_address",
		CountryField: "location",
		NaturalKey:   []string{"timestamp", "initiated_by", "activity", "target"},
		RelevantFields: []string{
			"activity", "category", "result",
		},
		AuthCandidates: []string{"result"},
		SuccessValues:  []string{"success", "succeeded"},
		FailureValues:  []string{"failure", "failed"},
		Normalize:      canonicalNormalizer,
	},
	MessageTrace: {
		Name:         "message_trace",
		Table:        "message_trace",
		Patterns:     []string{"*message*trace*.csv", "*messagetrace*.csv"},
		TimeField:    "received",
		ActorField:   "sender",
		OriginField:  "from_ip",
		CountryField: "location",
		NaturalKey:   []string{"received", "message_id", "recipient"},
		RelevantFields: []string{
			"status", "event_type",
		},
		AuthCandidates: []string{"status", "event_type"},
		SuccessValues:  []string{"delivered", "deliver"},
		FailureValues:  []string{"failed", "quarantined", "dropped"},
		Normalize:      canonicalNormalizer,
	},
}

// canonicalNormalizer zips a header and record into the canonical field dict.
// Header names are canonicalized mechanically (lower case, separators to
// underscores); it carries no vendor-specific knowledge.
func canonicalNormalizer(header, record []string) (map[string]string, error) {
	if len(record) != len(header) {
		return nil, fmt.Errorf("row has %d fields, header has %d", len(record), len(header))
	}
	fields := make(map[string]string, len(header))
	for i, h := range header {
		fields[CanonicalField(h)] = strings.TrimSpace(record[i])
	}
	return fields, nil
}

// CanonicalField canonicalizes one column name: lower case, spaces and
// dashes collapsed to single underscores, BOM and surrounding space dropped.
func CanonicalField(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '/':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		default:
			b.WriteRune(r)
			lastUnderscore = false
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
